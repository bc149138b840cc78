package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/ashwinramesh022/AI-Sandbox-Agent/internal/logging"
)

// Load loads configuration: defaults, then the global config file if present,
// then environment variable overrides. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if path := configPath(); path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)
	return cfg, nil
}

func configPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "autoland", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "autoland", "config.yaml")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Config may contain credentials; warn about loose permissions.
	if info, statErr := os.Stat(path); statErr == nil {
		if mode := info.Mode().Perm(); mode&0o077 != 0 {
			logging.Warn("config file has insecure permissions",
				"path", path,
				"mode", fmt.Sprintf("%04o", mode))
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	// Priority: AUTOLAND_API_KEY > OPENAI_API_KEY.
	if key := os.Getenv("AUTOLAND_API_KEY"); key != "" {
		cfg.API.Key = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.API.Key = key
	}
	if base := os.Getenv("AUTOLAND_BASE_URL"); base != "" {
		cfg.API.BaseURL = base
	}
	if model := os.Getenv("AUTOLAND_MODEL"); model != "" {
		cfg.Model.Name = model
	}
	if fallback := os.Getenv("AUTOLAND_FALLBACK_MODEL"); fallback != "" {
		cfg.Model.Fallback = fallback
	}
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.Git.Token = token
	}
	if raw := os.Getenv("AUTOLAND_MAX_ITERATIONS"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.Loop.MaxIterations = n
		}
	}
	if level := os.Getenv("AUTOLAND_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// ConfigError is a configuration validation failure. It aborts the run before
// the loop starts.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

// ErrMissingAPIKey is returned by Validate when no LLM credential is
// available from any source.
const ErrMissingAPIKey = ConfigError(
	"missing LLM credential: set AUTOLAND_API_KEY or OPENAI_API_KEY, or add api.key to the config file")

// Validate checks startup invariants. A missing LLM credential is fatal; a
// missing git hosting token is not (push/PR tools fail individually instead).
func (c *Config) Validate() error {
	if c.API.Key == "" {
		return ErrMissingAPIKey
	}
	if c.Loop.MaxIterations <= 0 {
		return ConfigError("loop.max_iterations must be positive")
	}
	if c.API.MaxRetries < 0 {
		return ConfigError("api.max_retries must be >= 0")
	}
	if c.Loop.SummaryEvery < 0 {
		return ConfigError("loop.summary_every must be >= 0")
	}
	return nil
}

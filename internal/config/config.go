// Package config defines the runtime configuration for the agent: LLM
// endpoint credentials, model names, loop budget, tool timeouts, and git
// hosting access. Config is loaded from an optional YAML file and overridden
// by environment variables.
package config

import (
	"time"
)

// Config is the root configuration object.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Model ModelConfig `yaml:"model"`
	Git   GitConfig   `yaml:"git"`
	Loop  LoopConfig  `yaml:"loop"`
	Tools ToolsConfig `yaml:"tools"`
	Audit AuditConfig `yaml:"audit"`
	Log   LogConfig   `yaml:"log"`
}

// APIConfig holds LLM endpoint settings.
type APIConfig struct {
	Key         string        `yaml:"key"`
	BaseURL     string        `yaml:"base_url"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// ModelConfig names the primary and fallback models.
type ModelConfig struct {
	Name      string `yaml:"name"`
	Fallback  string `yaml:"fallback"`
	MaxTokens int    `yaml:"max_tokens"`
}

// GitConfig holds version-control hosting settings.
type GitConfig struct {
	Token         string `yaml:"token"`
	PrimaryBranch string `yaml:"primary_branch"`
	AuthorName    string `yaml:"author_name"`
	AuthorEmail   string `yaml:"author_email"`
	APIBaseURL    string `yaml:"api_base_url"`
}

// LoopConfig bounds the orchestration loop.
type LoopConfig struct {
	MaxIterations int `yaml:"max_iterations"`
	// SummaryEvery controls how often a compact state summary is appended
	// to history to keep the model anchored.
	SummaryEvery int `yaml:"summary_every"`
}

// ToolsConfig holds per-tool execution limits.
type ToolsConfig struct {
	CommandTimeout time.Duration `yaml:"command_timeout"`
	InstallTimeout time.Duration `yaml:"install_timeout"`
	BuildTimeout   time.Duration `yaml:"build_timeout"`
	GitTimeout     time.Duration `yaml:"git_timeout"`
	MaxSearchHits  int           `yaml:"max_search_hits"`
}

// AuditConfig controls the tool-invocation audit log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the built-in defaults applied before file and
// environment overrides.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:     "https://api.openai.com/v1",
			HTTPTimeout: 120 * time.Second,
			MaxRetries:  3,
			RetryDelay:  1 * time.Second,
			MaxDelay:    30 * time.Second,
		},
		Model: ModelConfig{
			Name:      "gpt-4o",
			Fallback:  "gpt-4o-mini",
			MaxTokens: 4096,
		},
		Git: GitConfig{
			PrimaryBranch: "main",
			AuthorName:    "autoland-agent",
			AuthorEmail:   "agent@autoland.invalid",
			APIBaseURL:    "https://api.github.com",
		},
		Loop: LoopConfig{
			MaxIterations: 30,
			SummaryEvery:  5,
		},
		Tools: ToolsConfig{
			CommandTimeout: 60 * time.Second,
			InstallTimeout: 5 * time.Minute,
			BuildTimeout:   3 * time.Minute,
			GitTimeout:     5 * time.Minute,
			MaxSearchHits:  50,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    "", // defaults to <workdir>/.autoland/audit.db at open time
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

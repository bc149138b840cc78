package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir()) // no config file
	t.Setenv("AUTOLAND_API_KEY", "env-key")
	t.Setenv("AUTOLAND_MODEL", "custom-model")
	t.Setenv("AUTOLAND_MAX_ITERATIONS", "7")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Key != "env-key" {
		t.Errorf("API.Key = %q", cfg.API.Key)
	}
	if cfg.Model.Name != "custom-model" {
		t.Errorf("Model.Name = %q", cfg.Model.Name)
	}
	if cfg.Loop.MaxIterations != 7 {
		t.Errorf("MaxIterations = %d", cfg.Loop.MaxIterations)
	}
	if cfg.Model.Fallback == "" {
		t.Error("default fallback model should survive env overrides")
	}
	if cfg.Tools.BuildTimeout != 3*time.Minute {
		t.Errorf("BuildTimeout = %v", cfg.Tools.BuildTimeout)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AUTOLAND_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AUTOLAND_MODEL", "")
	t.Setenv("AUTOLAND_MAX_ITERATIONS", "")
	t.Setenv("AUTOLAND_FALLBACK_MODEL", "")
	t.Setenv("AUTOLAND_BASE_URL", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("AUTOLAND_LOG_LEVEL", "")

	confDir := filepath.Join(dir, "autoland")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := "api:\n  key: file-key\nmodel:\n  name: file-model\nloop:\n  max_iterations: 12\n"
	if err := os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Key != "file-key" {
		t.Errorf("API.Key = %q", cfg.API.Key)
	}
	if cfg.Model.Name != "file-model" {
		t.Errorf("Model.Name = %q", cfg.Model.Name)
	}
	if cfg.Loop.MaxIterations != 12 {
		t.Errorf("MaxIterations = %d", cfg.Loop.MaxIterations)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("AUTOLAND_API_KEY", "env-wins")

	confDir := filepath.Join(dir, "autoland")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte("api:\n  key: file-key\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.Key != "env-wins" {
		t.Errorf("API.Key = %q, want env-wins", cfg.API.Key)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate without key = %v, want ErrMissingAPIKey", err)
	}

	cfg.API.Key = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate = %v", err)
	}

	// A missing git token is not a startup failure; push/PR tools fail
	// individually instead.
	cfg.Git.Token = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate without git token = %v", err)
	}

	cfg.Loop.MaxIterations = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero iteration budget must be rejected")
	}
}

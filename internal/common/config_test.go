package common

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestLoadConfigYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  driver: postgres
  dsn: postgres://localhost/docproof
gemini:
  api_key: ${TEST_GEMINI_KEY}
cache:
  ttl: 1h
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEST_GEMINI_KEY", "from-env-expansion")
	t.Setenv("CACHE_TTL", "30m")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %s", cfg.Database.Driver)
	}
	if cfg.Gemini.APIKey != "from-env-expansion" {
		t.Errorf("api key = %q, want value expanded from env", cfg.Gemini.APIKey)
	}
	// env overrides beat file values
	if cfg.Cache.TTL != 30*time.Minute {
		t.Errorf("ttl = %s, want 30m from env", cfg.Cache.TTL)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Gemini.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	cfg.Database.Driver = "oracle"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}

	cfg.Database.Driver = "sqlite"
	cfg.Gemini.APIKey = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Storage.Backend != BackendFile {
		t.Errorf("expected file backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Location != "./save/" {
		t.Errorf("expected location ./save/, got %s", cfg.Storage.Location)
	}
	if cfg.Activation.CooldownOnMiss != "keep" {
		t.Errorf("expected cooldown keep, got %s", cfg.Activation.CooldownOnMiss)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
storage:
  backend: postgres
  location: home
server:
  port: "9090"
postgres:
  max_conns: 20
activation:
  cooldown_on_miss: advance
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Storage.Backend != BackendPostgres || cfg.Storage.Location != "home" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Activation.CooldownOnMiss != "advance" {
		t.Errorf("expected advance, got %s", cfg.Activation.CooldownOnMiss)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Errorf("expected default NATS URL, got %s", cfg.NATS.URL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("storage: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("TBD_STORAGE_BACKEND", "nats")
	t.Setenv("TBD_STORAGE_LOCATION", "team")
	t.Setenv("TBD_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("TBD_PG_MAX_CONNS", "25")
	t.Setenv("NATS_URL", "nats://nats:4222")
	t.Setenv("TBD_NATS_PUBLISH", "true")
	t.Setenv("TBD_LOG_LEVEL", "warn")
	t.Setenv("TBD_BREAKER_TIMEOUT", "1m")
	t.Setenv("TBD_CACHE_L1_SIZE_MB", "64")
	t.Setenv("TBD_COOLDOWN_ON_MISS", "advance")

	loadEnv(&cfg)

	if cfg.Storage.Backend != "nats" || cfg.Storage.Location != "team" {
		t.Errorf("unexpected storage %+v", cfg.Storage)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Postgres.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("unexpected DSN: %s", cfg.Postgres.DSN)
	}
	if cfg.Postgres.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.NATS.URL != "nats://nats:4222" || !cfg.NATS.Publish {
		t.Errorf("unexpected nats %+v", cfg.NATS)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Cache.L1MaxSizeMB != 64 {
		t.Errorf("expected 64, got %d", cfg.Cache.L1MaxSizeMB)
	}
	if cfg.Activation.CooldownOnMiss != "advance" {
		t.Errorf("expected advance, got %s", cfg.Activation.CooldownOnMiss)
	}
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	cfg := Defaults()

	t.Setenv("TBD_PG_MAX_CONNS", "not-a-number")
	t.Setenv("TBD_BREAKER_TIMEOUT", "forever")
	t.Setenv("TBD_NATS_PUBLISH", "maybe")

	loadEnv(&cfg)

	if cfg.Postgres.MaxConns != 10 {
		t.Errorf("invalid int must keep default, got %d", cfg.Postgres.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("invalid duration must keep default, got %v", cfg.Breaker.Timeout)
	}
	if cfg.NATS.Publish {
		t.Error("invalid bool must keep default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"empty location", func(c *Config) { c.Storage.Location = "" }, "storage.location"},
		{"empty port", func(c *Config) { c.Server.Port = "" }, "server.port"},
		{"postgres without dsn", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Postgres.DSN = ""
		}, "postgres.dsn"},
		{"postgres dsn not needed for file", func(c *Config) { c.Postgres.DSN = "" }, ""},
		{"publish without nats url", func(c *Config) {
			c.NATS.Publish = true
			c.NATS.URL = ""
		}, "nats.url"},
		{"nats backend without bucket", func(c *Config) {
			c.Storage.Backend = BackendNATS
			c.NATS.Bucket = ""
		}, "nats.bucket"},
		{"bad cooldown", func(c *Config) { c.Activation.CooldownOnMiss = "reset" }, "cooldown_on_miss"},
		{"zero breaker", func(c *Config) { c.Breaker.MaxFailures = 0 }, "breaker.max_failures"},
		{"zero cache", func(c *Config) { c.Cache.L1MaxSizeMB = 0 }, "cache.l1_max_size_mb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := validate(&cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFrom_FullHierarchy(t *testing.T) {
	// YAML sets port=9090, env overrides to 7070. Env must win.
	yamlPath := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
server:
  port: "9090"
logging:
  level: "debug"
storage:
  location: "./from-yaml/"
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TBD_PORT", "7070")
	t.Setenv("TBD_LOG_LEVEL", "warn")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("env should override YAML: got port %q, want 7070", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("env should override YAML: got level %q, want warn", cfg.Logging.Level)
	}
	if cfg.Storage.Location != "./from-yaml/" {
		t.Errorf("YAML should override defaults: got %q", cfg.Storage.Location)
	}
}

func TestLoadFrom_ValidationError(t *testing.T) {
	t.Setenv("TBD_STORAGE_BACKEND", "floppy")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected validation error")
	}
}

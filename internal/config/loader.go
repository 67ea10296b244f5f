package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tbd.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Storage.Backend, "TBD_STORAGE_BACKEND")
	setString(&cfg.Storage.Location, "TBD_STORAGE_LOCATION")

	setString(&cfg.Server.Port, "TBD_PORT")
	setString(&cfg.Server.CORSOrigin, "TBD_CORS_ORIGIN")

	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TBD_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TBD_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TBD_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TBD_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TBD_PG_HEALTH_CHECK")

	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.Bucket, "TBD_NATS_BUCKET")
	setBool(&cfg.NATS.Publish, "TBD_NATS_PUBLISH")

	setString(&cfg.Logging.Level, "TBD_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TBD_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TBD_LOG_ASYNC")

	setString(&cfg.Activation.CooldownOnMiss, "TBD_COOLDOWN_ON_MISS")

	setInt(&cfg.Breaker.MaxFailures, "TBD_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TBD_BREAKER_TIMEOUT")

	setInt64(&cfg.Cache.L1MaxSizeMB, "TBD_CACHE_L1_SIZE_MB")
	setDuration(&cfg.Cache.TTL, "TBD_CACHE_TTL")

	setString(&cfg.OTEL.Endpoint, "TBD_OTEL_ENDPOINT")
	setString(&cfg.OTEL.ServiceName, "TBD_OTEL_SERVICE_NAME")
	setBool(&cfg.OTEL.Insecure, "TBD_OTEL_INSECURE")
}

// validate checks that required fields are set and enums hold known values.
func validate(cfg *Config) error {
	switch cfg.Storage.Backend {
	case BackendFile, BackendPostgres, BackendNATS:
	default:
		return fmt.Errorf("storage.backend %q must be one of file, postgres, nats", cfg.Storage.Backend)
	}
	if cfg.Storage.Location == "" {
		return errors.New("storage.location is required")
	}
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Storage.Backend == BackendPostgres {
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required for the postgres backend")
		}
		if cfg.Postgres.MaxConns < 1 {
			return errors.New("postgres.max_conns must be >= 1")
		}
	}
	if (cfg.Storage.Backend == BackendNATS || cfg.NATS.Publish) && cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Storage.Backend == BackendNATS && cfg.NATS.Bucket == "" {
		return errors.New("nats.bucket is required for the nats backend")
	}
	switch cfg.Activation.CooldownOnMiss {
	case "", "keep", "advance":
	default:
		return fmt.Errorf("activation.cooldown_on_miss %q must be keep or advance", cfg.Activation.CooldownOnMiss)
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Cache.L1MaxSizeMB < 1 {
		return errors.New("cache.l1_max_size_mb must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

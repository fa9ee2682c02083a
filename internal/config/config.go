// Package config loads the service configuration from a YAML file and
// applies SIGEX_* environment variable overrides on top.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fidde/signal_explorer/internal/backend"
	"github.com/fidde/signal_explorer/internal/catalog/clickhouse"
	"github.com/fidde/signal_explorer/internal/catalog/s3"
	"github.com/fidde/signal_explorer/internal/kvstore"
)

// Config is the root service configuration.
type Config struct {
	Server     ServerConfig       `yaml:"server"`
	Logging    LoggingConfig      `yaml:"logging"`
	Auth       AuthConfig         `yaml:"auth"`
	Backend    backend.PPLConfig  `yaml:"backend"`
	Prometheus backend.PromConfig `yaml:"prometheus"`
	Cache      kvstore.Config     `yaml:"cache"`
	Catalog    CatalogConfig      `yaml:"catalog"`
	LiveTail   LiveTailConfig     `yaml:"livetail"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Level maps the configured level name to a slog level.
// Unknown names fall back to info.
func (c LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// AuthConfig enables bearer token verification on the /api/v1 routes.
// /health and /metrics are always open.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
}

// CatalogConfig lists the live catalog providers to register.
type CatalogConfig struct {
	ClickHouse []clickhouse.Config `yaml:"clickhouse"`
	S3         []s3.Config         `yaml:"s3"`
}

// LiveTailConfig controls the WebSocket live tail poller.
type LiveTailConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the configuration used when no file is given. Every field
// has a working value so the service starts with no file at all.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: "0.0.0.0:8080"},
		Logging: LoggingConfig{Level: "info"},
		Backend: backend.PPLConfig{
			Endpoint: "http://localhost:9200",
			Timeout:  30 * time.Second,
		},
		Prometheus: backend.PromConfig{
			Endpoint: "http://localhost:9090",
			Timeout:  30 * time.Second,
		},
		Cache:    kvstore.DefaultConfig(),
		LiveTail: LiveTailConfig{PollInterval: 2 * time.Second},
	}
}

// Load reads the configuration file at path into the defaults, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config YAML: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("SIGEX_API_ADDR", c.Server.Addr)
	c.Logging.Level = getEnv("SIGEX_LOG_LEVEL", c.Logging.Level)
	c.Auth.Enabled = getEnvBool("SIGEX_AUTH_ENABLED", c.Auth.Enabled)
	c.Auth.Secret = getEnv("SIGEX_AUTH_SECRET", c.Auth.Secret)
	c.Auth.Issuer = getEnv("SIGEX_AUTH_ISSUER", c.Auth.Issuer)
	c.Backend.Endpoint = getEnv("SIGEX_PPL_ENDPOINT", c.Backend.Endpoint)
	c.Backend.Username = getEnv("SIGEX_PPL_USERNAME", c.Backend.Username)
	c.Backend.Password = getEnv("SIGEX_PPL_PASSWORD", c.Backend.Password)
	c.Prometheus.Endpoint = getEnv("SIGEX_PROM_ENDPOINT", c.Prometheus.Endpoint)
	c.Cache.Backend = getEnv("SIGEX_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Dir = getEnv("SIGEX_CACHE_DIR", c.Cache.Dir)
	c.Cache.Path = getEnv("SIGEX_CACHE_PATH", c.Cache.Path)
	c.LiveTail.PollInterval = getEnvDuration("SIGEX_LIVETAIL_POLL_INTERVAL", c.LiveTail.PollInterval)
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default fallback.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default fallback.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

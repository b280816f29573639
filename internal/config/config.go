// Package config loads the service configuration from a YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alex-user-go/pricecheck/internal/newbook"
	"github.com/alex-user-go/pricecheck/internal/ratelimit"
	"github.com/alex-user-go/pricecheck/internal/sites"
)

// Rate limiter and site store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the complete service configuration.
type Config struct {
	Env string `yaml:"env"`

	Log struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		AddSource bool   `yaml:"add_source"`
	} `yaml:"log"`

	Server struct {
		Addr                   string `yaml:"addr"`
		ReadTimeoutSeconds     int    `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds    int    `yaml:"write_timeout_seconds"`
		ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
	} `yaml:"server"`

	Upstream struct {
		Endpoint            string `yaml:"endpoint"`
		TimeoutSeconds      int    `yaml:"timeout_seconds"`
		FallbackConcurrency int    `yaml:"fallback_concurrency"`
	} `yaml:"upstream"`

	RateLimit struct {
		Backend       string `yaml:"backend"` // memory|redis
		Limit         int    `yaml:"limit"`
		WindowSeconds int    `yaml:"window_seconds"`
		RedisURL      string `yaml:"redis_url"`
		KeyPrefix     string `yaml:"key_prefix"`

		// TrustProxyHeaders keys clients by Client-IP, X-Forwarded-For or
		// X-Real-IP. Enable only behind a proxy that overwrites them.
		TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
	} `yaml:"rate_limit"`

	Store struct {
		Backend     string `yaml:"backend"` // file|postgres
		DatabaseURL string `yaml:"database_url"`
		Refresh     string `yaml:"refresh"`
		// Seed writes the sites of this file to Postgres on startup.
		Seed bool `yaml:"seed"`
	} `yaml:"store"`

	Options sites.Options `yaml:"options"`
	Sites   []sites.Site  `yaml:"sites"`
}

// Load reads path (when non-empty), applies environment overrides and fills
// in defaults.
func Load(path string) (*Config, error) {
	c := &Config{Options: sites.DefaultOptions()}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(c)
	applyDefaults(c)

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// UpstreamTimeout is the per-call timeout for the pricing API.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// RateWindow is the rate limit window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}

func applyEnv(c *Config) {
	c.Server.Addr = getEnv("ADDR", c.Server.Addr)
	c.Upstream.Endpoint = getEnv("NEWBOOK_ENDPOINT", c.Upstream.Endpoint)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RateLimit.RedisURL = v
		c.RateLimit.Backend = BackendRedis
	}
	if v, err := strconv.ParseBool(os.Getenv("TRUST_PROXY_HEADERS")); err == nil {
		c.RateLimit.TrustProxyHeaders = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
		c.Store.Backend = BackendPostgres
	}
}

func applyDefaults(c *Config) {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.Env == "" {
		c.Env = "local"
	}

	if c.Log.Level == "" {
		if c.Env == "prod" {
			c.Log.Level = "info"
		} else {
			c.Log.Level = "debug"
		}
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	// Two sequential upstream timeouts must fit in a write timeout.
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = 70
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 10
	}

	if c.Upstream.Endpoint == "" {
		c.Upstream.Endpoint = newbook.DefaultEndpoint
	}
	if c.Upstream.TimeoutSeconds <= 0 {
		c.Upstream.TimeoutSeconds = 30
	}
	if c.Upstream.FallbackConcurrency <= 0 {
		c.Upstream.FallbackConcurrency = 4
	}

	c.RateLimit.Backend = strings.ToLower(strings.TrimSpace(c.RateLimit.Backend))
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = BackendMemory
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = ratelimit.DefaultLimit
	}
	if c.RateLimit.WindowSeconds <= 0 {
		c.RateLimit.WindowSeconds = int(ratelimit.DefaultWindow / time.Second)
	}
	if c.RateLimit.KeyPrefix == "" {
		c.RateLimit.KeyPrefix = ratelimit.DefaultKeyPrefix
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFile
	}
	if c.Store.Refresh == "" {
		c.Store.Refresh = "@every 5m"
	}

	c.Options = sites.SanitizeOptions(c.Options)
	c.Sites = sites.Sanitize(c.Sites)
}

func (c *Config) validate() error {
	switch c.RateLimit.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.RateLimit.RedisURL == "" {
			return fmt.Errorf("rate_limit.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown rate_limit.backend=%q (expected memory|redis)", c.RateLimit.Backend)
	}

	switch c.Store.Backend {
	case BackendFile:
		if len(c.Sites) == 0 {
			return fmt.Errorf("no sites configured")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("store.database_url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown store.backend=%q (expected file|postgres)", c.Store.Backend)
	}
	return nil
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

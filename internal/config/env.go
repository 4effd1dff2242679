// Package config loads runtime settings for the character CLI from the
// environment. Command-line flags override these values.
package config

import (
	"fmt"
	"time"

	"github.com/Sternrassler/rickmorty-client/pkg/client"
	"github.com/Sternrassler/rickmorty-client/pkg/logging"
	"github.com/caarlos0/env/v11"
)

// DefaultUserAgent identifies the CLI when RM_USER_AGENT is unset.
const DefaultUserAgent = "rickmorty-client/1.0 (+https://github.com/Sternrassler/rickmorty-client)"

// Config holds all environment settings.
type Config struct {
	APIURL    string        `env:"RM_API_URL"`
	UserAgent string        `env:"RM_USER_AGENT"`
	RedisAddr string        `env:"RM_REDIS_ADDR"`
	Lang      string        `env:"RM_LANG"`
	LogLevel  string        `env:"RM_LOG_LEVEL"`
	CacheTTL  time.Duration `env:"RM_CACHE_TTL"`
	Timeout   time.Duration `env:"RM_TIMEOUT"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		APIURL:    client.DefaultEndpoint,
		UserAgent: DefaultUserAgent,
		Lang:      "en",
		LogLevel:  string(logging.LevelWarn),
		CacheTTL:  5 * time.Minute,
		Timeout:   15 * time.Second,
	}
}

// Load parses the environment over Default.
func Load() (Config, error) {
	cfg := Default()
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks values that env parsing alone cannot.
func (c Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("RM_API_URL must not be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("RM_USER_AGENT must not be empty")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("RM_CACHE_TTL must be >= 0 (got %s)", c.CacheTTL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("RM_TIMEOUT must be > 0 (got %s)", c.Timeout)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("RM_LOG_LEVEL: %w", err)
	}
	return nil
}

// ClientConfig converts c into an API client configuration. Redis is
// attached by the caller.
func (c Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig(nil, c.UserAgent)
	cfg.Endpoint = c.APIURL
	cfg.CacheTTL = c.CacheTTL
	cfg.Timeout = c.Timeout
	return cfg
}

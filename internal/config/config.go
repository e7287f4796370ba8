// Package config loads gaiaflow settings from the environment, with
// optional .env file support.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the gaiaflow CLI.
type Config struct {
	// Provider selects the chat model backend.
	Provider string `env:"GAIAFLOW_PROVIDER" envDefault:"openai"`
	// Model overrides the provider's default model when set.
	Model string `env:"GAIAFLOW_MODEL"`

	// API keys. Only the configured provider's key is required.
	OpenAIKey    string `env:"OPENAI_API_KEY"`
	AnthropicKey string `env:"ANTHROPIC_API_KEY"`
	GoogleKey    string `env:"GOOGLE_API_KEY"`
	// TavilyKey upgrades web_search from DuckDuckGo scraping to the
	// Tavily API. Optional.
	TavilyKey string `env:"TAVILY_API_KEY"`

	// Store configures run persistence.
	Store StoreConfig

	// MaxSteps bounds the engine steps of a single run.
	MaxSteps int `env:"GAIAFLOW_MAX_STEPS" envDefault:"50"`

	// Logging
	LogFormat string `env:"GAIAFLOW_LOG_FORMAT" envDefault:"text"`
	LogLevel  string `env:"GAIAFLOW_LOG_LEVEL" envDefault:"info"`
}

// StoreConfig holds run persistence configuration.
type StoreConfig struct {
	Backend string `env:"GAIAFLOW_STORE" envDefault:"memory"`

	SQLitePath string `env:"GAIAFLOW_SQLITE_PATH" envDefault:"gaiaflow.db"`

	RedisAddr     string `env:"GAIAFLOW_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"GAIAFLOW_REDIS_PASSWORD"`
	RedisDB       int    `env:"GAIAFLOW_REDIS_DB" envDefault:"0"`

	MySQLDSN string `env:"GAIAFLOW_MYSQL_DSN"`
}

// Load reads and validates configuration from the environment. When path
// is non-empty that .env file must exist and load; otherwise a ./.env
// file is loaded best effort. Values already present in the environment
// always win over file values.
func Load(path string) (*Config, error) {
	cfg, err := Parse(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse reads configuration without validating it. Diagnostic tooling
// uses it to report problems instead of failing on them.
func Parse(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	} else {
		// A missing .env is fine, the environment may already be populated.
		_ = godotenv.Load()
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider (set it in your environment or .env file)")
		}
	case "anthropic":
		if c.AnthropicKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider (set it in your environment or .env file)")
		}
	case "google":
		if c.GoogleKey == "" {
			return fmt.Errorf("GOOGLE_API_KEY is required for the google provider (set it in your environment or .env file)")
		}
	default:
		return fmt.Errorf("unsupported provider: %s (must be openai, anthropic, or google)", c.Provider)
	}

	switch c.Store.Backend {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("GAIAFLOW_SQLITE_PATH is required for the sqlite store")
		}
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("GAIAFLOW_REDIS_ADDR is required for the redis store")
		}
	case "mysql":
		if c.Store.MySQLDSN == "" {
			return fmt.Errorf("GAIAFLOW_MYSQL_DSN is required for the mysql store")
		}
	default:
		return fmt.Errorf("unsupported store backend: %s (must be memory, sqlite, redis, or mysql)", c.Store.Backend)
	}

	if c.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1, got %d", c.MaxSteps)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.LogFormat)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch c.Provider {
	case "anthropic":
		return c.AnthropicKey
	case "google":
		return c.GoogleKey
	default:
		return c.OpenAIKey
	}
}

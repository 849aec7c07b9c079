// Package config provides configuration loading for the fetcher.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the fetcher configuration.
type Config struct {
	// HTTP settings shared by all API clients
	HTTP HTTPConfig `yaml:"http"`

	// Trade pagination settings
	Trades TradesConfig `yaml:"trades"`

	// Price history settings
	Prices PricesConfig `yaml:"prices"`

	// Order book settings
	Book BookConfig `yaml:"book"`

	// Storage settings
	Storage StorageConfig `yaml:"storage"`

	// WebSocket settings for the live watcher
	WebSocket WebSocketConfig `yaml:"websocket"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging"`
}

// HTTPConfig contains HTTP client settings.
type HTTPConfig struct {
	// Per-call network timeout
	Timeout time.Duration `yaml:"timeout"`
}

// TradesConfig contains trade pagination settings.
type TradesConfig struct {
	// Rows per page
	PageLimit int `yaml:"page_limit"`

	// Safety cap on pages per token
	MaxPages int `yaml:"max_pages"`

	// Courtesy delay between page requests
	PageDelay time.Duration `yaml:"page_delay"`
}

// PricesConfig contains price history settings.
type PricesConfig struct {
	// History window: "1m", "1w", "1d", "6h", "1h", or "max"
	Interval string `yaml:"interval"`

	// Resolution in minutes
	Fidelity int `yaml:"fidelity"`
}

// BookConfig contains order book settings.
type BookConfig struct {
	// Levels kept per side
	Depth int `yaml:"depth"`
}

// StorageConfig contains storage settings.
type StorageConfig struct {
	// Base directory for run output
	OutputDir string `yaml:"output_dir"`
}

// WebSocketConfig contains settings for the live watcher.
type WebSocketConfig struct {
	// Custom WebSocket URL (optional)
	URL string `yaml:"url"`

	// Initial reconnection backoff
	InitialBackoff time.Duration `yaml:"initial_backoff"`

	// Maximum reconnection backoff
	MaxBackoff time.Duration `yaml:"max_backoff"`

	// Backoff multiplier
	BackoffFactor float64 `yaml:"backoff_factor"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Log level: debug, info, warn, error
	Level string `yaml:"level"`

	// Log format: text or json
	Format string `yaml:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout: 30 * time.Second,
		},
		Trades: TradesConfig{
			PageLimit: 1000,
			MaxPages:  50,
			PageDelay: 250 * time.Millisecond,
		},
		Prices: PricesConfig{
			Interval: "max",
			Fidelity: 1,
		},
		Book: BookConfig{
			Depth: 20,
		},
		Storage: StorageConfig{
			OutputDir: "runs",
		},
		WebSocket: WebSocketConfig{
			InitialBackoff: 1 * time.Second,
			MaxBackoff:     30 * time.Second,
			BackoffFactor:  2.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, overlaying the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides settings from environment variables, typically loaded
// from a .env file by the command.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("POLYMARKET_OUTPUT_DIR"); v != "" {
		c.Storage.OutputDir = v
	}
	if v := os.Getenv("POLYMARKET_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage.OutputDir == "" {
		return fmt.Errorf("storage.output_dir is required")
	}
	if c.Trades.PageLimit <= 0 {
		return fmt.Errorf("trades.page_limit must be positive")
	}
	if c.Trades.MaxPages <= 0 {
		return fmt.Errorf("trades.max_pages must be positive")
	}
	if c.Book.Depth <= 0 {
		return fmt.Errorf("book.depth must be positive")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}
	return nil
}

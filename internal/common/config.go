// Package common provides shared utilities for wonfolio
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for wonfolio
type Config struct {
	Environment  string        `toml:"environment"`
	HomeCurrency string        `toml:"home_currency"` // reporting currency for all valuations (default "KRW")
	Server       ServerConfig  `toml:"server"`
	Storage      StorageConfig `toml:"storage"`
	Clients      ClientsConfig `toml:"clients"`
	Refresh      RefreshConfig `toml:"refresh"`
	Alerting     AlertConfig   `toml:"alerting"`
	Logging      LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds blob storage configuration.
// Backend "file" stores the state document on the local filesystem;
// "drive" is reserved for the cloud file store backend.
type StorageConfig struct {
	Backend  string `toml:"backend"`
	BasePath string `toml:"base_path"`
	StateKey string `toml:"state_key"` // blob key of the state document
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Quotes  QuotesConfig  `toml:"quotes"`
	FXRates FXRatesConfig `toml:"fxrates"`
}

// QuotesConfig holds price feed API configuration
type QuotesConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *QuotesConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FXRatesConfig holds FX rate API configuration
type FXRatesConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *FXRatesConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// RefreshConfig controls the background price refresh cycle.
type RefreshConfig struct {
	Interval     string `toml:"interval"`      // refresh cadence, e.g. "10m"
	HistoryBatch int    `toml:"history_batch"` // tickers per historical-series request batch
	BatchDelay   string `toml:"batch_delay"`   // pause between batches, e.g. "500ms"
}

// GetInterval parses and returns the refresh interval
func (c *RefreshConfig) GetInterval() time.Duration {
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// GetBatchDelay parses and returns the inter-batch delay
func (c *RefreshConfig) GetBatchDelay() time.Duration {
	d, err := time.ParseDuration(c.BatchDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// AlertConfig holds portfolio-wide alert defaults.
type AlertConfig struct {
	DefaultDropRate float64 `toml:"default_drop_rate"` // drop-from-high alert threshold, percent (negative)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment:  "development",
		HomeCurrency: "KRW",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:  "file",
			BasePath: "data",
			StateKey: "state/portfolio.json",
		},
		Clients: ClientsConfig{
			Quotes: QuotesConfig{
				BaseURL:   "https://api.wonfolio.dev/quotes",
				RateLimit: 10,
				Timeout:   "30s",
			},
			FXRates: FXRatesConfig{
				BaseURL:   "https://api.wonfolio.dev/fx",
				RateLimit: 5,
				Timeout:   "30s",
			},
		},
		Refresh: RefreshConfig{
			Interval:     "10m",
			HistoryBatch: 10,
			BatchDelay:   "500ms",
		},
		Alerting: AlertConfig{
			DefaultDropRate: -15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Apply environment overrides
	applyEnvOverrides(config)

	validateHomeCurrency(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("WONFOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("WONFOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("WONFOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("WONFOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("WONFOLIO_DATA_PATH"); path != "" {
		config.Storage.BasePath = path
	}

	if key := os.Getenv("WONFOLIO_QUOTES_API_KEY"); key != "" {
		config.Clients.Quotes.APIKey = key
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// validateHomeCurrency pins the reporting currency to KRW.
// All historical state documents were written with KRW valuations, so a
// different value would silently corrupt cost-basis figures on load.
func validateHomeCurrency(config *Config) {
	if strings.ToUpper(config.HomeCurrency) != "KRW" {
		config.HomeCurrency = "KRW"
	}
}

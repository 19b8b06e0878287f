// Package config holds all application configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// SHIFTWATCH_CONFIG, then SHIFTWATCH_* environment variables. Durations are
// plain integers with the unit in the key name so every layer can set them.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all application configuration.
type Config struct {
	// Database configuration
	DatabaseURL string `koanf:"database_url"`

	// Logging
	LogLevel string `koanf:"log_level"`

	// Metrics listener address; empty disables the listener.
	MetricsAddr string `koanf:"metrics_addr"`

	// Timezone the venues operate in. Business-hours gating and business-day
	// arithmetic happen in this location.
	Timezone string `koanf:"timezone"`

	// Collection scheduling
	PollIntervalMinutes      int `koanf:"poll_interval_minutes"`
	CollectionBufferMinutes  int `koanf:"collection_buffer_minutes"`
	CollectionWorkers        int `koanf:"collection_workers"`
	CollectionTimeoutMinutes int `koanf:"collection_timeout_minutes"`

	// Aggregation scheduling
	AggregationBufferMinutes int `koanf:"aggregation_buffer_minutes"`
	AggregationSweepMinutes  int `koanf:"aggregation_sweep_minutes"`

	// Fetching
	FetchTimeoutSeconds int     `koanf:"fetch_timeout_seconds"`
	FetchMaxRetries     uint64  `koanf:"fetch_max_retries"`
	FetchRatePerSecond  float64 `koanf:"fetch_rate_per_second"`
	FetchUserAgent      string  `koanf:"fetch_user_agent"`

	// Classification: the shift-end proximity window for the fully-booked
	// rule. Operational heuristic, deliberately tunable.
	FullyBookedEndWindowMinutes int `koanf:"fully_booked_end_window_minutes"`
}

// Load builds a Config by layering defaults, optional file, and env vars.
func Load() (*Config, error) {
	cfg := defaults()

	k := koanf.New(".")

	if path := os.Getenv("SHIFTWATCH_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("SHIFTWATCH_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "SHIFTWATCH_"))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LogLevel:                    "info",
		Timezone:                    "Asia/Tokyo",
		PollIntervalMinutes:         30,
		CollectionBufferMinutes:     30,
		CollectionWorkers:           4,
		CollectionTimeoutMinutes:    10,
		AggregationBufferMinutes:    60,
		AggregationSweepMinutes:     10,
		FetchTimeoutSeconds:         45,
		FetchMaxRetries:             3,
		FetchRatePerSecond:          0.5,
		FetchUserAgent:              "Mozilla/5.0 (compatible; shiftwatch/1.0)",
		FullyBookedEndWindowMinutes: 60,
	}
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database_url must not be empty")
	}
	if c.PollIntervalMinutes <= 0 {
		return fmt.Errorf("poll_interval_minutes must be positive")
	}
	if c.CollectionWorkers <= 0 {
		return fmt.Errorf("collection_workers must be positive")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

func (c *Config) CollectionBuffer() time.Duration {
	return time.Duration(c.CollectionBufferMinutes) * time.Minute
}

func (c *Config) CollectionTimeout() time.Duration {
	return time.Duration(c.CollectionTimeoutMinutes) * time.Minute
}

func (c *Config) AggregationBuffer() time.Duration {
	return time.Duration(c.AggregationBufferMinutes) * time.Minute
}

func (c *Config) AggregationSweep() time.Duration {
	return time.Duration(c.AggregationSweepMinutes) * time.Minute
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

func (c *Config) FullyBookedEndWindow() time.Duration {
	return time.Duration(c.FullyBookedEndWindowMinutes) * time.Minute
}

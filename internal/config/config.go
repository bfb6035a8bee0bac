package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of every environment variable read by Load
	EnvPrefix = "PELOTON_"

	// ConfigFileEnv names the environment variable pointing at an optional YAML file
	ConfigFileEnv = "PELOTON_CONFIG"
)

// ErrInvalidConfig is returned when required values are missing or malformed
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// Database configuration
	DatabasePath string `koanf:"database_path"`

	// Internal API configuration
	InternalAPIKey string `koanf:"internal_api_key"`

	// Intervals.icu API configuration
	IntervalsBaseURL        string `koanf:"intervals_base_url"`
	IntervalsTimeoutSeconds int    `koanf:"intervals_timeout_seconds"`

	// Metrics configuration
	MetricsEnabled bool   `koanf:"metrics_enabled"`
	MetricsHost    string `koanf:"metrics_host"`
	MetricsPort    int    `koanf:"metrics_port"`

	// Activity/wellness sync configuration
	SyncEnabled         bool `koanf:"sync_enabled"`
	SyncIntervalMinutes int  `koanf:"sync_interval_minutes"`
	SyncLookbackDays    int  `koanf:"sync_lookback_days"`

	// Logging configuration
	LogLevel string `koanf:"log_level"`
}

// Defaults returns a Config populated with default values
func Defaults() *Config {
	return &Config{
		Host:                    "localhost",
		Port:                    4102,
		DatabasePath:            "./data.db",
		IntervalsBaseURL:        "https://intervals.icu/api/v1",
		IntervalsTimeoutSeconds: 30,
		MetricsHost:             "localhost",
		MetricsPort:             9102,
		SyncIntervalMinutes:     60,
		SyncLookbackDays:        14,
		LogLevel:                "info",
	}
}

// Load builds a Config by layering defaults, an optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults
//  2. file (YAML) if PELOTON_CONFIG is set
//  3. env (prefix PELOTON_)
//
// It fails fast if required variables are missing
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// PELOTON_DATABASE_PATH -> database_path
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required values and ranges
func (c *Config) Validate() error {
	var missingVars []string

	if c.InternalAPIKey == "" {
		missingVars = append(missingVars, EnvPrefix+"INTERNAL_API_KEY")
	}
	if c.DatabasePath == "" {
		missingVars = append(missingVars, EnvPrefix+"DATABASE_PATH")
	}
	if c.IntervalsBaseURL == "" {
		missingVars = append(missingVars, EnvPrefix+"INTERVALS_BASE_URL")
	}

	if len(missingVars) > 0 {
		return fmt.Errorf("%w: missing required environment variables: %v", ErrInvalidConfig, missingVars)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port out of range: %d", ErrInvalidConfig, c.Port)
	}
	if c.IntervalsTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: intervals_timeout_seconds must be positive", ErrInvalidConfig)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level %q (expected debug, info, warn or error)", ErrInvalidConfig, c.LogLevel)
	}
	if c.SyncEnabled && c.SyncIntervalMinutes <= 0 {
		return fmt.Errorf("%w: sync_interval_minutes must be positive when sync is enabled", ErrInvalidConfig)
	}

	return nil
}

// IntervalsTimeout returns the per-request timeout for Intervals.icu calls
func (c *Config) IntervalsTimeout() time.Duration {
	return time.Duration(c.IntervalsTimeoutSeconds) * time.Second
}

// SyncInterval returns the delay between two background sync passes
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalMinutes) * time.Minute
}

// Addr returns the API listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddr returns the metrics listen address
func (c *Config) MetricsAddr() string {
	return fmt.Sprintf("%s:%d", c.MetricsHost, c.MetricsPort)
}

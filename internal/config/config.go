// Package config loads the viewer configuration from the environment.
package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/rharish101/dilbert-viewer/internal/cache"
	"github.com/rharish101/dilbert-viewer/internal/core/strips"
	"github.com/rharish101/dilbert-viewer/internal/source"
)

// Config aggregates the settings of every component.
//
// Environment variables (all prefixed with VIEWER_):
//   - SOURCE_BASE_URL, STRIP_PATH_PREFIX, RESPONSE_TIMEOUT, USER_AGENT,
//     SOURCE_RPS, SOURCE_BURST: source site access
//   - LATEST_REFRESH, TIME_ZONE, REFRESH_INTERVAL, CIRCUIT_THRESHOLD,
//     CIRCUIT_OPEN_DURATION: lookup policy
//   - CACHE_URL, CACHE_MAX_CONNS, CACHE_TIMEOUT, CACHE_MAX_ENTRIES: cache
//   - LOG_LEVEL, METRICS_ADDR: process
type Config struct {
	Source source.Config `envPrefix:"VIEWER_"`
	Strips strips.Config `envPrefix:"VIEWER_"`
	Cache  cache.Config  `envPrefix:"VIEWER_"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `env:"VIEWER_LOG_LEVEL" envDefault:"info"`

	// MetricsAddr is the listen address for the Prometheus endpoint.
	// Empty disables it.
	MetricsAddr string `env:"VIEWER_METRICS_ADDR"`
}

// Load reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every component configuration.
func (c Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}
	if err := c.Strips.Validate(); err != nil {
		return fmt.Errorf("strips config: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

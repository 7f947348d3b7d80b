// Package config loads stepwise settings from STEPWISE_* environment
// variables. Command-line flags override these values.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings.
type Config struct {
	// DBPath is the SQLite run-history database. Empty disables history.
	DBPath string `env:"STEPWISE_DB_PATH" envDefault:"stepwise.db"`

	LogLevel  string `env:"STEPWISE_LOG_LEVEL"  envDefault:"warn"`
	LogFormat string `env:"STEPWISE_LOG_FORMAT" envDefault:"text"`

	// Async runs every scenario on one async loop regardless of its file.
	Async bool `env:"STEPWISE_ASYNC" envDefault:"false"`

	// Metrics prints Prometheus metrics after a run.
	Metrics bool `env:"STEPWISE_METRICS" envDefault:"false"`

	// OTelEndpoint is an OTLP/HTTP collector URL. Empty disables tracing.
	OTelEndpoint string `env:"STEPWISE_OTEL_ENDPOINT"`
}

// Load parses the environment and validates the result.
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

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
		return nil
	}
	return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
}

// Level returns the slog level for LogLevel, defaulting to warn.
func (c Config) Level() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// NewLogger builds a logger writing to w in the configured format.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}

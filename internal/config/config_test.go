package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stepwise.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.Async)
	assert.False(t, cfg.Metrics)
	assert.Empty(t, cfg.OTelEndpoint)
	assert.Equal(t, slog.LevelWarn, cfg.Level())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("STEPWISE_DB_PATH", "/tmp/runs.db")
	t.Setenv("STEPWISE_LOG_LEVEL", "debug")
	t.Setenv("STEPWISE_LOG_FORMAT", "json")
	t.Setenv("STEPWISE_ASYNC", "true")
	t.Setenv("STEPWISE_METRICS", "1")
	t.Setenv("STEPWISE_OTEL_ENDPOINT", "http://localhost:4318")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/runs.db", cfg.DBPath)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
	assert.True(t, cfg.Async)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, "http://localhost:4318", cfg.OTelEndpoint)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"bad bool", "STEPWISE_ASYNC", "maybe", "parse env:"},
		{"bad level", "STEPWISE_LOG_LEVEL", "loud", "invalid log level"},
		{"bad format", "STEPWISE_LOG_FORMAT", "xml", "invalid log format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: "info", LogFormat: "json"}
	logger := cfg.NewLogger(&buf)

	logger.Debug("hidden")
	logger.Info("shown", "scenario", "checkout")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "checkout", entry["scenario"])

	buf.Reset()
	Config{LogLevel: "error", LogFormat: "text"}.NewLogger(&buf).Warn("dropped")
	assert.Empty(t, buf.String())
}

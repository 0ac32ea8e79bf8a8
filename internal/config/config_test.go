package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "wallet.db", cfg.Database)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "text", cfg.Format)
	assert.False(t, cfg.ReadOnly)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesOnlyGivenFields(t *testing.T) {
	path := writeConfig(t, "database: /tmp/w.db\nlog_level: debug\nread_only: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w.db", cfg.Database)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "text", cfg.Format)
	assert.True(t, cfg.ReadOnly)
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown field", "databse: x.db\n", "failed to parse config file"},
		{"bad yaml", "database: [\n", "failed to parse config file"},
		{"bad level", "log_level: loud\n", `invalid log_level "loud"`},
		{"bad log format", "log_format: xml\n", `invalid log_format "xml"`},
		{"bad format", "format: yaml\n", `invalid format "yaml"`},
		{"empty database", "database: \"\"\n", "database is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInMemory(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.InMemory())
	cfg.Database = ":memory:"
	assert.True(t, cfg.InMemory())
}

func TestSlogLevel(t *testing.T) {
	levels := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for name, want := range levels {
		cfg := Config{LogLevel: name}
		assert.Equal(t, want, cfg.SlogLevel(), name)
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{LogLevel: "warn", LogFormat: "json"}
		logger := cfg.NewLogger(&buf)

		logger.Info("hidden")
		logger.Warn("shown", "key", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "value", entry["key"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		cfg := Config{LogLevel: "debug", LogFormat: "text"}
		cfg.NewLogger(&buf).Debug("loaded", "count", 3)
		assert.Contains(t, buf.String(), "msg=loaded")
		assert.Contains(t, buf.String(), "count=3")
	})
}

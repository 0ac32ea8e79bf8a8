// Package config loads wallet settings from an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Allowed values for the enumerated fields.
var (
	LogLevels  = []string{"debug", "info", "warn", "error"}
	LogFormats = []string{"text", "json"}
	Formats    = []string{"text", "json"}
)

// Config holds the wallet runtime settings.
type Config struct {
	Database  string `yaml:"database"`   // SQLite file path, ":memory:" for a throwaway store
	LogLevel  string `yaml:"log_level"`  // debug | info | warn | error
	LogFormat string `yaml:"log_format"` // text | json
	Format    string `yaml:"format"`     // CLI output: text | json
	ReadOnly  bool   `yaml:"read_only"`  // reject every mutating operation
}

// Default returns the settings used when no file or flag overrides them.
func Default() Config {
	return Config{
		Database:  "wallet.db",
		LogLevel:  "info",
		LogFormat: "text",
		Format:    "text",
	}
}

// Load reads path over the defaults. Fields absent from the file keep their
// default values. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Reject unknown fields so typos surface instead of silently defaulting.
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks that every field holds an allowed value.
func (c Config) Validate() error {
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log_level %q: must be one of %v", c.LogLevel, LogLevels)
	}
	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("invalid log_format %q: must be one of %v", c.LogFormat, LogFormats)
	}
	if !slices.Contains(Formats, c.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", c.Format, Formats)
	}
	return nil
}

// InMemory reports whether the database setting asks for a throwaway store.
func (c Config) InMemory() bool {
	return c.Database == ":memory:"
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values map to Info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format and level.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

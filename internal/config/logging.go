package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

const (
	EnvLoggingLevel  = "RAINN_LOG_LEVEL"
	EnvLoggingFormat = "RAINN_LOG_FORMAT"
)

// Log output formats.
const (
	LogFormatTint = "tint"
	LogFormatText = "text"
	LogFormatJSON = "json"
)

var logFormats = []string{LogFormatTint, LogFormatText, LogFormatJSON}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// SlogLevel returns Level as a slog.Level.
func (c *LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Finalize applies defaults, environment variable overrides, and validation.
// The default format is tint for the local environment and json elsewhere.
func (c *LoggingConfig) Finalize(env string) error {
	c.loadDefaults(env)
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

func (c *LoggingConfig) loadDefaults(env string) {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		if env == "local" {
			c.Format = LogFormatTint
		} else {
			c.Format = LogFormatJSON
		}
	}
}

func (c *LoggingConfig) loadEnv() {
	if v := os.Getenv(EnvLoggingLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLoggingFormat); v != "" {
		c.Format = v
	}
}

func (c *LoggingConfig) validate() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return fmt.Errorf("invalid level %q", c.Level)
	}
	c.Format = strings.ToLower(c.Format)
	if !slices.Contains(logFormats, c.Format) {
		return fmt.Errorf("format must be one of %v", logFormats)
	}
	return nil
}

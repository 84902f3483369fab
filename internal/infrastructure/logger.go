package infrastructure

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/JaimeStill/rainn/internal/config"
)

// NewLogger builds the process logger for the configured format and level.
func NewLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := cfg.SlogLevel()

	switch cfg.Format {
	case config.LogFormatJSON:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	case config.LogFormatText:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	default:
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		}))
	}
}

// Package logging builds the application logger: tinted console output in
// dev, JSON lines otherwise.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"aqmon/internal/config"
)

// New constructs the application logger from configuration.
func New(cfg config.Config, appName string) *slog.Logger {
	if cfg.AppEnv == "dev" {
		h := tint.NewHandler(os.Stderr, &tint.Options{
			Level:      cfg.LogLevel,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"env", cfg.AppEnv,
	)
}

// Package logging builds the single *zap.Logger instance this module's
// entrypoint constructs and threads down through every component (by a
// WithLogger option, a Config field, or a constructor argument) — nothing
// here is a package-level global.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger writing structured JSON to stderr at level.
// level is any level name zapcore.Level accepts ("debug", "info", "warn",
// "error", "dpanic", "panic", "fatal", case-insensitive); empty defaults to
// "info".
func New(level string) (*zap.Logger, error) {
	if level == "" {
		level = "info"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

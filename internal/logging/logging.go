// Package logging owns the process logger. Until Init runs the package
// logger is a no-op, which keeps library code quiet under test.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// Init builds the process logger: console output on stderr by default,
// JSON to a file when one is configured. verbose forces debug level
// regardless of the configured level.
func Init(level, file string, verbose bool) error {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return fmt.Errorf("log level %q: %w", level, err)
		}
		cfg.Level = parsed
	}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	if file != "" {
		cfg.Encoding = "json"
		cfg.OutputPaths = []string{file}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger = l
	return nil
}

// L returns the process logger.
func L() *zap.Logger { return logger }

// Named returns a child logger for one subsystem.
func Named(name string) *zap.Logger { return logger.Named(name) }

// Sync flushes buffered entries. Safe to call on the no-op logger.
func Sync() { _ = logger.Sync() }

// Package logging builds the zap loggers used across narrator.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sant0-9/narrator/internal/config"
)

// New builds a production logger writing JSON to stderr, or to cfg.File when
// set. verbose forces debug level.
func New(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()

	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		zc.OutputPaths = []string{cfg.File}
		zc.ErrorOutputPaths = []string{cfg.File}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// ForTerminalUI builds a file-backed logger for the interactive UI, which owns
// the terminal. It falls back to a no-op logger when the file is unusable.
func ForTerminalUI(cfg config.LogConfig, verbose bool) *zap.Logger {
	if cfg.File == "" {
		path, err := DefaultFile()
		if err != nil {
			return zap.NewNop()
		}
		cfg.File = path
	}
	logger, err := New(cfg, verbose)
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// DefaultFile is the log path used by the interactive UI.
func DefaultFile() (string, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "narrator.log"), nil
}

func parseLevel(s string) (zapcore.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Package logging builds the daemon's zap logger: a console core on stderr
// and, when a file is configured, a JSON core rotated by lumberjack.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	Level      string // debug, info, warn or error
	File       string // empty disables file output
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig logs at info to stderr only.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 28,
	}
}

// WrappedCore pairs a core with its level and the writer it owns.
type WrappedCore struct {
	AtomicLevel zap.AtomicLevel
	Core        zapcore.Core
	Writer      io.Writer
}

// NewWrappedCore creates a core writing to w at level.
func NewWrappedCore(level zapcore.Level, w io.Writer, encoder zapcore.Encoder) WrappedCore {
	atomicLevel := zap.NewAtomicLevelAt(level)
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), atomicLevel)
	return WrappedCore{AtomicLevel: atomicLevel, Core: core, Writer: w}
}

// ParseLevel converts a level name. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	return cfg
}

// New builds a logger for cfg. The returned close function flushes and
// releases the log file, if any.
func New(cfg Config) (*zap.Logger, func() error, error) {
	return newWithConsole(cfg, os.Stderr)
}

func newWithConsole(cfg Config, console io.Writer) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	cores := []WrappedCore{
		NewWrappedCore(level, console, zapcore.NewConsoleEncoder(encoderConfig())),
	}

	var file *lumberjack.Logger
	if cfg.File != "" {
		file = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		cores = append(cores, NewWrappedCore(level, file, zapcore.NewJSONEncoder(encoderConfig())))
	}

	zcores := make([]zapcore.Core, len(cores))
	for i, c := range cores {
		zcores[i] = c.Core
	}
	logger := zap.New(zapcore.NewTee(zcores...), zap.AddCaller())

	closeFn := func() error {
		_ = logger.Sync()
		if file != nil {
			return file.Close()
		}
		return nil
	}
	return logger, closeFn, nil
}

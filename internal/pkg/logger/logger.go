// Package logger provides structured logging for socialpatch.
//
// Logs never go to stdout: stdout carries the run summary. The console
// format is one plain line per entry (level, message, fields) without
// timestamps or callers, which reads well next to the summary in a terminal.
// The json format is meant for CI logs.
//
// Until Init is called every call is a no-op.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop()
)

// Init replaces the global logger with one writing to stderr.
// level: debug, info, warn, error
// format: json or console
func Init(level, format string) error {
	return InitWriter(level, format, os.Stderr)
}

// InitWriter is Init with an explicit destination.
func InitWriter(level, format string, w io.Writer) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	enc, err := newEncoder(format)
	if err != nil {
		return err
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), lvl)

	mu.Lock()
	global = zap.New(core)
	mu.Unlock()
	return nil
}

func newEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case "console":
		return zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			LevelKey:    "level",
			MessageKey:  "msg",
			EncodeLevel: zapcore.CapitalLevelEncoder,
		}), nil
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// L returns the global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Debug logs a message at DebugLevel.
func Debug(msg string, fields ...zap.Field) {
	L().Debug(msg, fields...)
}

// Info logs a message at InfoLevel.
func Info(msg string, fields ...zap.Field) {
	L().Info(msg, fields...)
}

// Warn logs a message at WarnLevel.
func Warn(msg string, fields ...zap.Field) {
	L().Warn(msg, fields...)
}

// Error logs a message at ErrorLevel.
func Error(msg string, fields ...zap.Field) {
	L().Error(msg, fields...)
}

// With creates a child logger with additional fields.
func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}

// Sync flushes any buffered log entries.
func Sync() error {
	return L().Sync()
}

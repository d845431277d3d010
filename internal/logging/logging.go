// Package logging provides structured logging for fskit.
//
// Logs are written to stderr by default: under the MCP command stdout
// carries the JSON-RPC protocol and must stay clean.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sort"
)

// Format selects the log output format.
type Format string

const (
	// JSONFormat emits one JSON object per line.
	JSONFormat Format = "json"
	// HumanFormat emits a readable key=value line.
	HumanFormat Format = "human"
)

// LogLevel represents the severity of a log message.
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Format Format
	Level  LogLevel
	Output io.Writer // defaults to stderr
}

// Logger provides leveled structured logging backed by log/slog.
type Logger struct {
	s *slog.Logger
}

// NewLogger creates a logger with the given configuration.
func NewLogger(config Config) *Logger {
	writer := config.Output
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: slogLevel(config.Level)}

	var handler slog.Handler
	if config.Format == JSONFormat {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}

	return &Logger{s: slog.New(handler)}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// attrs converts a field map to slog args in deterministic key order.
func attrs(fields map[string]interface{}) []any {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return args
}

// With returns a logger that includes the given fields on every message.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	return &Logger{s: l.s.With(attrs(fields)...)}
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, fields map[string]interface{}) {
	l.s.Debug(message, attrs(fields)...)
}

// Info logs an info message.
func (l *Logger) Info(message string, fields map[string]interface{}) {
	l.s.Info(message, attrs(fields)...)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, fields map[string]interface{}) {
	l.s.Warn(message, attrs(fields)...)
}

// Error logs an error message.
func (l *Logger) Error(message string, fields map[string]interface{}) {
	l.s.Error(message, attrs(fields)...)
}

// Discard returns a logger that drops everything. Used in tests.
func Discard() *Logger {
	return &Logger{s: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Package logging provides structured logging for the vigil daemon.
//
// This package wraps the standard library's log/slog package to provide
// consistent logging across all components. It supports text, JSON, and
// colorized terminal output, configurable log levels, and component-based
// loggers.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, "auto") // Colorized when stderr is a TTY
//	logging.Init(slog.LevelDebug, "json") // JSON for production
//
//	// Get a component logger
//	log := logging.Component("sampler")
//	log.Info("sampler started", "period", period)
//
//	// Log with context
//	log.Error("collect failed", "error", err, "collector", name)
package logging

import (
	"context"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// Format is one of "text", "json", or "auto". Auto selects a colorized
// terminal handler when stderr is a terminal, plain text otherwise.
func Init(level slog.Level, format string) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		if term.IsTerminal(int(os.Stderr.Fd())) {
			handler = tint.NewHandler(os.Stderr, &tint.Options{
				Level:     level,
				AddSource: level == slog.LevelDebug,
			})
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// ParseLevel converts a level name to a slog.Level. Unknown names
// fall back to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new logger with additional attributes.
// These attributes are included in every log entry from the returned logger.
func With(args ...any) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}
	return Logger.With(args...)
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Example:
//
//	log := logging.Component("sampler")
//	log.Info("started") // Output: time=... level=INFO component=sampler msg=started
func Component(name string) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}
	return Logger.With("component", name)
}

// WithContext returns a logger that includes context values.
// This is used for request-scoped logging in the HTTP layer.
func WithContext(ctx context.Context) *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}

	logger := Logger

	if requestID, ok := ctx.Value(contextKeyRequestID).(uint64); ok {
		logger = logger.With("request_id", requestID)
	}

	return logger
}

// Context key types for type-safe context value extraction.
type contextKey int

const (
	contextKeyRequestID contextKey = iota
)

// ContextWithRequestID adds a request ID to the context for logging.
func ContextWithRequestID(ctx context.Context, requestID uint64) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}
	Logger.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}
	Logger.Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}
	Logger.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	if Logger == nil {
		Init(slog.LevelInfo, "text")
	}
	Logger.Error(msg, args...)
}

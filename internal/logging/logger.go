// Package logging builds the zerolog loggers handed to each component.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = "request_id"
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "user_id"
)

// Config holds logging configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// Logger is the root logger. Components receive scoped children of it.
type Logger struct {
	logger zerolog.Logger
}

// New creates a logger with the given configuration
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Format == "text" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		})
	} else {
		logger = zerolog.New(output)
	}

	return &Logger{logger: logger.Level(level).With().Timestamp().Logger()}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Component returns a child logger tagged with the component name.
func (l *Logger) Component(name string) zerolog.Logger {
	return l.logger.With().Str("component", name).Logger()
}

// Zerolog exposes the root logger.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.logger
}

// WithContext returns logger enriched with the request and user IDs stored
// in ctx.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	c := logger.With()
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		c = c.Str("request_id", requestID)
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		c = c.Str("user_id", userID)
	}
	return c.Logger()
}

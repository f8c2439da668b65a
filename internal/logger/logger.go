package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type implLogger struct {
	logger zerolog.Logger
}

// New creates a Logger writing human readable lines to stdout.
func New(level string) Logger {
	return NewWithWriter(level, "text", os.Stdout)
}

// NewWithWriter creates a Logger writing to w. Format "json" emits one JSON
// object per line, anything else uses the console writer.
func NewWithWriter(level, format string, w io.Writer) Logger {
	out := w
	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.DateTime,
			NoColor:    true,
		}
	}

	return &implLogger{
		logger: zerolog.New(out).
			Level(parseLevel(level)).
			With().
			Timestamp().
			Logger(),
	}
}

// parseLevel maps a config level to zerolog, defaulting to info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *implLogger) Debug(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Debug().Ctx(ctx).Msgf(msg, args...)
}

func (l *implLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Info().Ctx(ctx).Msgf(msg, args...)
}

func (l *implLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Warn().Ctx(ctx).Msgf(msg, args...)
}

func (l *implLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.logger.Error().Ctx(ctx).Msgf(msg, args...)
}

// Nop returns a Logger that discards everything. Handy in tests.
func Nop() Logger {
	return &implLogger{logger: zerolog.Nop()}
}

// Package logging provides a configured slog logger for metacat.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options configures the default slog logger used by metacat.
type Options struct {
	// Verbose toggles debug level logging when true.
	Verbose bool
	// JSON emits structured JSON records instead of logfmt-style text.
	JSON bool
	// Writer directs log output; defaults to os.Stderr when nil.
	Writer io.Writer
}

// Logger is a generic logging interface that abstracts slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// New constructs a Logger with metacat defaults.
func New(opts Options) Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(writer, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	}
	return &slogLogger{logger: slog.New(handler)}
}

// FromSlog wraps an existing *slog.Logger.
func FromSlog(logger *slog.Logger) Logger {
	return &slogLogger{logger: logger}
}

type slogLogger struct {
	logger *slog.Logger
}

func (s *slogLogger) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *slogLogger) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *slogLogger) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *slogLogger) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

func (s *slogLogger) With(args ...any) Logger {
	return &slogLogger{logger: s.logger.With(args...)}
}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...any) {}
func (nopLogger) Info(_ string, _ ...any)  {}
func (nopLogger) Warn(_ string, _ ...any)  {}
func (nopLogger) Error(_ string, _ ...any) {}
func (n nopLogger) With(_ ...any) Logger   { return n }

// Ensure both implementations satisfy Logger
var (
	_ Logger = (*slogLogger)(nil)
	_ Logger = nopLogger{}
)

// Package ctxlog builds the engine's slog loggers and hands them along
// in a context.
package ctxlog

import (
	"context"
	"io"
	"log/slog"
)

type ctxKey int

const loggerCtxKey ctxKey = 0

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// FromContext returns the logger attached by WithLogger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	logger, _ := ctx.Value(loggerCtxKey).(*slog.Logger)
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// New returns a logger writing to w. level is a slog level name such as
// "debug" or "warn"; anything unparsable logs at info. format "json"
// selects JSON records, anything else text.
func New(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

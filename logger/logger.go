// Package logger configures the process wide structured logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "XMF_LOG_LEVEL"

type contextKey struct{}

// ParseLevel maps a level name to a slog.Level. Unknown names default to info.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// Init installs a text logger writing to w as the slog default and returns it.
func Init(w io.Writer, level string) *slog.Logger {
	lvl, ok := ParseLevel(level)
	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(l)
	if !ok {
		l.Warn("invalid log level, defaulting to info", "level", level)
	}
	return l
}

// FromContext retrieves a logger from context, or returns the default one.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// ToContext embeds a slog.Logger into a context.Context.
func ToContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

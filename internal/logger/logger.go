// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options select the handler and level.
type Options struct {
	Level     string
	Format    string // text|json
	AddSource bool
	Env       string
}

// New returns a logger writing to stdout.
func New(opts Options) *slog.Logger {
	return NewWithWriter(os.Stdout, opts)
}

// NewWithWriter returns a logger writing to w.
func NewWithWriter(w io.Writer, opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{
		Level:     ParseLevel(opts.Level),
		AddSource: opts.AddSource,
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "text":
		h = slog.NewTextHandler(w, hopts)
	default:
		h = slog.NewJSONHandler(w, hopts)
	}

	l := slog.New(h)
	if env := strings.TrimSpace(opts.Env); env != "" {
		l = l.With("env", env)
	}
	return l
}

// ParseLevel maps a level name to a slog level. Unknown names mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

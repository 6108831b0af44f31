// Package logging builds the slog logger shared by the session and cache.
// With debug enabled it writes to stderr; otherwise it appends to a log
// file in the config directory.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Options selects where and what to log.
type Options struct {
	Debug  bool
	Level  string
	Path   string    // log file; empty disables file logging
	Stderr io.Writer // debug destination
}

// New returns a logger and a function that releases its resources.
func New(opts Options) (*slog.Logger, func() error, error) {
	if opts.Debug {
		w := opts.Stderr
		if w == nil {
			w = os.Stderr
		}
		h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
		return slog.New(h), func() error { return nil }, nil
	}

	if opts.Path == "" {
		return Discard(), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return slog.New(h), f.Close, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

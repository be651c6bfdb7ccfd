// Package logging configures structured logging for casefind.
// All components log through log/slog with a JSON handler so search
// diagnostics stay machine-readable when the binary runs under a supervisor
// or an MCP client.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Text switches to a human-readable text handler (TTY sessions).
	Text bool
	// Writer is the log destination. Defaults to stderr, keeping stdout
	// free for result output and the MCP stdio transport.
	Writer io.Writer
}

// DefaultConfig returns sensible defaults: info-level JSON to stderr.
func DefaultConfig() Config {
	return Config{Level: "info"}
}

// Setup builds a logger from the config and installs it as the default.
func Setup(cfg Config) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Text {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts a string level to slog.Level.
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}

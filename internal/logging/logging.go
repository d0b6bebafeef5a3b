// Package logging builds the slog loggers used by the service and CLI.
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// silent is above every standard level.
const silent = slog.Level(100)

// New creates a logger writing to w. format is "human" or "json".
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(NewHumanHandler(w, opts))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(NewHumanHandler(io.Discard, &slog.HandlerOptions{Level: silent}))
}

// LevelFromString converts a string to a slog.Level.
// Unrecognized strings map to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "off", "none":
		return silent
	default:
		return slog.LevelInfo
	}
}

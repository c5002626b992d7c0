package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Supported output formats for New.
const (
	FormatJSON    = "json"
	FormatText    = "text"
	FormatConsole = "console"
	FormatZerolog = "zerolog"
)

// New builds a Logger for the configured format and level. "json" and "text"
// use slog handlers; "console" and "zerolog" use zerolog. Unknown formats
// fall back to slog JSON.
func New(format, level string, w io.Writer) Logger {
	switch strings.ToLower(format) {
	case FormatConsole:
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return NewZerologLogger(zerolog.New(cw).Level(zerologLevel(level)).With().Timestamp().Logger())
	case FormatZerolog:
		return NewZerologLogger(zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger())
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})))
	default:
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slogLevel(level)})))
	}
}

func slogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func zerologLevel(level string) zerolog.Level {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"askbot/config"
)

// New returns a logger writing to out. Format "auto" picks the colorized
// text handler when out is a terminal and JSON otherwise.
func New(cfg config.LogConfig, out io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Level)

	switch resolveFormat(cfg.Format, out) {
	case "text":
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(out),
		}))
	default:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	}
}

// ParseLevel maps debug, info, warn and error to slog levels; anything else is info
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

func resolveFormat(format string, out io.Writer) string {
	switch format {
	case "text", "json":
		return format
	}
	if isTerminal(out) {
		return "text"
	}
	return "json"
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

package config

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds the process logger.  Production defaults to JSON output,
// every other environment to text.
func NewLogger(c Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	format := strings.ToLower(c.LogFormat)
	if format == "" {
		format = "text"
		if c.Env == "prod" {
			format = "json"
		}
	}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("env", c.Env)
}

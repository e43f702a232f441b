package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// Format is the output format (json, text).
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stderr,
	}
}

// level is shared by every logger built with New so that SetLevel
// takes effect without rebuilding handlers.
var level = new(slog.LevelVar)

// New builds a slog logger with attribute redaction and sets the shared
// level from cfg.Level.
func New(cfg Config) (*slog.Logger, error) {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(output, opts)
	case "text", "console":
		h = slog.NewTextHandler(output, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level.Set(parseLevel(cfg.Level))
	return slog.New(h), nil
}

// SetLevel changes the level of every logger built with New.
func SetLevel(name string) {
	level.Set(parseLevel(name))
}

// Level returns the current shared level name.
func Level() string {
	switch l := level.Level(); {
	case l <= slog.LevelDebug:
		return "debug"
	case l <= slog.LevelInfo:
		return "info"
	case l <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// ValidLevel reports whether name is a recognized level.
func ValidLevel(name string) bool {
	switch strings.ToLower(name) {
	case "debug", "info", "warn", "warning", "error":
		return true
	default:
		return false
	}
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
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

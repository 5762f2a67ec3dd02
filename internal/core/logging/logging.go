// Package logging configures the process-wide slog logger.
//
// The level comes from the --log-level flag, falling back to the LOG_LEVEL
// environment variable and then to INFO. Records are written as text to the
// given writer (stderr in the CLI) with the module name and version attached.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLogLevel is the environment variable consulted when no level is given explicitly.
const EnvLogLevel = "LOG_LEVEL"

// ParseLevel maps a case-insensitive level name to a slog.Level.
// Unknown or empty names map to slog.LevelInfo.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// NewStructuredLogger builds a text logger for module/version writing to w.
// Debug level adds source locations.
func NewStructuredLogger(w io.Writer, module, version, level string) *slog.Logger {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}
	lvl := ParseLevel(level)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(handler).With(
		slog.String("module", module),
		slog.String("version", version),
	)
}

// SetDefaultStructuredLogger installs a NewStructuredLogger on stderr as the slog default.
func SetDefaultStructuredLogger(module, version, level string) {
	slog.SetDefault(NewStructuredLogger(os.Stderr, module, version, level))
}

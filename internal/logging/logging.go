// Package logging builds the process's single structured logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger configured from a level string ("debug",
// "info", "warn", "error") and a format string ("json" or "console").
// Unrecognized levels fall back to info; the format check itself is done
// by config.Validate before this is ever called.
func New(level, format string) zerolog.Logger {
	var out io.Writer = os.Stdout
	if format == "console" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	return zerolog.New(out).
		With().
		Timestamp().
		Str("service", "sectorchat").
		Logger()
}

// Package logger configures the root zerolog logger for the service.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger. In dev mode output is a human console writer;
// otherwise structured JSON on stderr. Level strings follow zerolog
// ("trace", "debug", "info", "warn", "error"); unknown levels fall back to
// info.
func New(level string, devMode bool) zerolog.Logger {
	var out io.Writer = os.Stderr
	if devMode {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Package logging builds the zerolog root logger shared by the processes.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with service. level falls back to info when it
// does not parse; pretty switches to the human console writer.
func New(service, level string, pretty bool) zerolog.Logger {
	return newWithWriter(os.Stdout, service, level, pretty)
}

func newWithWriter(w io.Writer, service, level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", service).Logger()
}

package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates the service logger. Outside production it writes human
// readable console output.
func New(service string, production bool) *zerolog.Logger {
	var out io.Writer = os.Stdout
	level := zerolog.InfoLevel

	if !production {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	return &logger
}

package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init installs the global console logger on stderr
func Init(verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = New(os.Stderr, verbose)
}

// New creates a console logger writing to w at Info, or Debug when verbose
func New(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    w != os.Stderr && w != os.Stdout,
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// WithComponent derives a logger tagged with a component field
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

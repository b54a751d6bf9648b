package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes the process logger. format is "json" for structured
// output; anything else gets the human-friendly console writer.
func Setup(format string) zerolog.Logger {
	if format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// Package logging sets up the process-wide zerolog.Logger, split out so
// cmd/ and tests share one place for the development/production switch.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a Logger: a human-readable console writer in development, bare
// JSON to stdout otherwise, both timestamped.
func New(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

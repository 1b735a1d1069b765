// Package logging builds the process-wide zerolog.Logger, mapping the
// documented OCTOWATCH_LOG_LEVEL values onto zerolog levels.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// New builds a console-writer zerolog.Logger at the level named by raw,
// one of DEBUG/INFO/WARNING/ERROR/OFF (exact, upper-case match). An empty
// or unrecognized value falls back to INFO.
func New(raw string) zerolog.Logger {
	level := levelFromName(raw)
	zerolog.SetGlobalLevel(level)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func levelFromName(raw string) zerolog.Level {
	switch raw {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO", "":
		return zerolog.InfoLevel
	case "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "OFF":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Package logging configures the global zerolog logger for the service.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger from the configured level and format.
// Format "console" writes human-readable output; anything else emits JSON.
func Setup(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if strings.ToLower(format) == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}
}

// Component returns a logger tagged with the component name. Handlers and
// engine stages use this instead of reaching for the global logger directly.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

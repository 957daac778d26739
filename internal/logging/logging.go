// Package logging configures the process-wide charmbracelet logger.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// Setup configures the default logger and returns it.
// An unknown level falls back to info; debug forces the debug level.
func Setup(w io.Writer, level string, debug bool) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.Default()
	logger.SetOutput(w)
	logger.SetReportTimestamp(true)
	log.SetColorProfile(termenv.EnvColorProfile())

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if debug {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	if err != nil && level != "" {
		logger.Warnf("Unknown LOG_LEVEL %q, using %s", level, lvl)
	}
	return logger
}

// Component returns a child logger tagged with the given prefix.
// It satisfies telego.Logger, so it can be handed to telego.WithLogger.
func Component(prefix string) *log.Logger {
	return log.Default().WithPrefix(prefix)
}

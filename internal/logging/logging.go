// Package logging configures the single *logrus.Logger shared by the
// CLI and its engines.
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// Options controls the logger built by New.
type Options struct {
	Verbose bool
	Quiet   bool
	Level   string // config-driven fallback; overridden by Verbose/Quiet
}

// New builds a *logrus.Logger using a text formatter on a TTY and JSON
// otherwise, at a level resolved from (in priority order) Verbose,
// Quiet, then Level.
func New(opts Options) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	switch {
	case opts.Verbose:
		log.SetLevel(logrus.DebugLevel)
	case opts.Quiet:
		log.SetLevel(logrus.ErrorLevel)
	default:
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		log.SetLevel(level)
	}
	return log
}

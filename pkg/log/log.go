// Package log builds the structured logger every component in this
// module writes through. It keeps the teacher's own dev/production
// split: a production logger that discards all output, widened to a
// debug logger writing to a file (or stderr) when asked. Both use JSON
// formatting.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Options configures NewLogger.
type Options struct {
	// Debug widens the log level and routes output to calista.log
	// under LogDir (stderr when LogDir is empty) instead of discarding
	// it. Setting DEBUG=TRUE in the environment has the same effect.
	Debug bool
	// LogDir is where the debug log file is written. Ignored unless
	// Debug is true.
	LogDir string
	// Version is attached to every log line, for correlating log
	// output with the build that produced it.
	Version string
}

// NewLogger returns a logger pre-fielded with build/runtime
// information, ready for components to call .WithField(...) on.
func NewLogger(opts Options) *logrus.Entry {
	var base *logrus.Logger
	if opts.Debug || os.Getenv("DEBUG") == "TRUE" {
		base = newDevelopmentLogger(opts.LogDir)
	} else {
		base = newProductionLogger()
	}

	base.Formatter = &logrus.JSONFormatter{}

	return base.WithFields(logrus.Fields{
		"debug":   opts.Debug,
		"version": opts.Version,
	})
}

func getLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger(logDir string) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(getLogLevel())
	if logDir == "" {
		l.Out = os.Stderr
		return l
	}
	file, err := os.OpenFile(filepath.Join(logDir, "calista.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
	if err != nil {
		fmt.Fprintln(os.Stderr, "log: unable to open log file, falling back to stderr:", err)
		l.Out = os.Stderr
		return l
	}
	l.SetOutput(file)
	return l
}

func newProductionLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	l.SetLevel(logrus.ErrorLevel)
	return l
}

// Package logging builds the operational logger shared by the CLI and the
// client.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options selects where and how much to log.
type Options struct {
	// Level is used unless LOG_LEVEL is set.
	Level string
	// Silent discards every entry.
	Silent bool
	// JSON switches to one JSON object per line, for log files.
	JSON bool
	// Out defaults to stderr.
	Out    io.Writer
	Fields logrus.Fields
}

// NewLogger returns an entry carrying opts.Fields.
func NewLogger(opts Options) *logrus.Entry {
	log := logrus.New()
	if opts.Silent {
		log.Out = io.Discard
		log.SetLevel(logrus.ErrorLevel)
		return log.WithFields(opts.Fields)
	}

	log.SetLevel(level(opts.Level))
	log.Out = os.Stderr
	if opts.Out != nil {
		log.Out = opts.Out
	}
	if opts.JSON {
		log.Formatter = &logrus.JSONFormatter{}
	} else {
		log.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	}
	return log.WithFields(opts.Fields)
}

// Discard returns an entry that drops everything.
func Discard() *logrus.Entry {
	return NewLogger(Options{Silent: true})
}

func level(fallback string) logrus.Level {
	if env, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		return env
	}
	if l, err := logrus.ParseLevel(fallback); err == nil {
		return l
	}
	return logrus.InfoLevel
}

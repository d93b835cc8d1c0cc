// Package logging holds the logrus logger shared by the command line tool and
// the package I/O code.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	log *logrus.Logger

	// file is the log file opened by the last Init, if any.
	file *os.File
)

// Init replaces the shared logger. An unknown level falls back to info.
// Entries go to stderr when console is set and are appended to logFile when
// it is set; with neither, the logger is silent. A log file opened by an
// earlier Init is closed.
func Init(level, logFile string, console bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var opened *os.File
	if logFile != "" {
		if opened, err = openLogFile(logFile); err != nil {
			return err
		}
	}

	var out io.Writer = io.Discard
	switch {
	case console && opened != nil:
		out = io.MultiWriter(os.Stderr, opened)
	case console:
		out = os.Stderr
	case opened != nil:
		out = opened
	}

	if err := Close(); err != nil {
		_ = opened.Close()
		return err
	}
	log = &logrus.Logger{
		Out:   out,
		Hooks: make(logrus.LevelHooks),
		Formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.DateTime,
			DisableColors:   opened != nil,
		},
		Level:    lvl,
		ExitFunc: os.Exit,
	}
	file = opened
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "opening log file")
	}
	return f, nil
}

// Close closes the log file opened by Init. The logger keeps writing to its
// other outputs, if any.
func Close() error {
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	return errors.Wrap(err, "closing log file")
}

// Get returns the logger, creating a default one writing to stderr if Init
// was not called.
func Get() *logrus.Logger {
	if log == nil {
		log = logrus.New()
	}
	return log
}

// ForModel returns an entry tagged with the model being processed.
func ForModel(path string) *logrus.Entry {
	return Get().WithField("model", path)
}

// Package log provides a thin wrapper around logrus that tags every entry
// with a category, e.g. "provider:steel" or "cdp", so that noisy subsystems
// can be filtered with a regexp.
package log

import (
	"io"
	"regexp"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger with category-aware helpers.
type Logger struct {
	*logrus.Logger

	categoryFilter *regexp.Regexp
}

// New returns a Logger wrapping the given logrus logger. categoryFilter may
// be nil, in which case no entries are filtered out.
func New(logger *logrus.Logger, categoryFilter *regexp.Regexp) *Logger {
	return &Logger{
		Logger:         logger,
		categoryFilter: categoryFilter,
	}
}

// NullLogger returns a Logger that discards everything. Useful in tests.
func NullLogger() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log, nil)
}

// Debugf logs a debug message tagged with a category.
func (l *Logger) Debugf(category, msg string, args ...any) {
	l.logf(logrus.DebugLevel, category, msg, args...)
}

// Infof logs an info message tagged with a category.
func (l *Logger) Infof(category, msg string, args ...any) {
	l.logf(logrus.InfoLevel, category, msg, args...)
}

// Warnf logs a warning message tagged with a category.
func (l *Logger) Warnf(category, msg string, args ...any) {
	l.logf(logrus.WarnLevel, category, msg, args...)
}

// Errorf logs an error message tagged with a category.
func (l *Logger) Errorf(category, msg string, args ...any) {
	l.logf(logrus.ErrorLevel, category, msg, args...)
}

func (l *Logger) logf(level logrus.Level, category, msg string, args ...any) {
	if l.Logger.GetLevel() < level {
		return
	}
	if l.categoryFilter != nil && !l.categoryFilter.MatchString(category) {
		return
	}
	l.Logger.WithField("category", category).Logf(level, msg, args...)
}

// DebugMode returns true if the logger level is set to Debug or higher.
func (l *Logger) DebugMode() bool {
	return l.Logger.GetLevel() >= logrus.DebugLevel
}

// SetLevel sets the logger level from a level string such as "debug".
func (l *Logger) SetLevel(level string) error {
	pl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	l.Logger.SetLevel(pl)
	return nil
}

// Package badgerlog routes badger's internal logging through the standard
// logger with a level filter.
package badgerlog

import (
	"log"
	"strings"

	"github.com/pkg/errors"
)

// Level is the most verbose kind of message that is printed.
type Level uint8

const (
	NoLogging Level = iota
	ErrorLevel
	WarningLevel
	InfoLevel
	DebugLevel
)

var levelNames = []string{"none", "error", "warning", "info", "debug"}

// ParseLevel parses the name returned by Level.String.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return 0, errors.Errorf("unknown log level %q", s)
}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// Set implements flag.Value.
func (l *Level) Set(s string) error {
	v, err := ParseLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Logger implements badger.Logger.
type Logger struct {
	*log.Logger
	level Level
}

// NewDefaultLogger returns a logger that writes warnings and errors to the
// standard logger.
func NewDefaultLogger() *Logger {
	return NewLogger(log.Default(), WarningLevel)
}

func NewLogger(log *log.Logger, level Level) *Logger {
	return &Logger{
		Logger: log,
		level:  level,
	}
}

// Level returns the logger's level.
func (l *Logger) Level() Level { return l.level }

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logf(ErrorLevel, "error", format, args)
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.logf(WarningLevel, "warning", format, args)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.logf(InfoLevel, "info", format, args)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logf(DebugLevel, "debug", format, args)
}

func (l *Logger) logf(level Level, prefix, format string, args []interface{}) {
	if l.level >= level {
		// badger terminates most messages with a newline already.
		l.Printf("badger: "+prefix+": "+strings.TrimSuffix(format, "\n"), args...)
	}
}

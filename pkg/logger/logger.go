package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry so callers can attach fields and pass it around.
type Logger struct {
	*logrus.Entry
}

// Options configure the base logger.
type Options struct {
	Level  string
	Format string // "text" or "json"
	Output io.Writer
}

var (
	mu   sync.RWMutex
	base = New(Options{Level: "info", Format: "text"})
)

// New builds a standalone logger.
func New(opts Options) *Logger {
	l := logrus.New()

	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	}

	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	l.SetLevel(ParseLevel(opts.Level))
	return &Logger{Entry: logrus.NewEntry(l)}
}

// ParseLevel maps a config string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Configure replaces the process logger.
func Configure(opts Options) *Logger {
	l := New(opts)
	mu.Lock()
	base = l
	mu.Unlock()
	return l
}

// Get returns the process logger.
func Get() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns an entry tagged with the component name.
func WithComponent(name string) *logrus.Entry {
	return Get().WithField("component", name)
}

// WithError standardizes error logging
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}

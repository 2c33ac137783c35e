package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger provides a simple logging interface for the gateway and its components.
// All implementations must be safe for concurrent use across multiple goroutines.
type Logger interface {
	// Type returns the type of the logger
	Type() LoggerType
	// Printf logs a formatted message at info level
	Printf(format string, args ...any)
	// Println logs a message at info level
	Println(message string)
	// Warnf logs a formatted message at warn level
	Warnf(format string, args ...any)
	// Errorf logs a formatted message at error level
	Errorf(format string, args ...any)
	// WithFields returns a logger that attaches the given fields to every entry
	WithFields(fields Fields) Logger
	// Close closes the logger
	Close() error
}

// Fields are structured key/value pairs attached to log entries.
type Fields map[string]any

type LoggerType string

const (
	LoggerTypeStdout LoggerType = "stdout"
	LoggerTypeFile   LoggerType = "file"
	LoggerTypeNoop   LoggerType = "noop"
	LoggerTypeWriter LoggerType = "writer"
	LoggerTypeMulti  LoggerType = "multi"
)

// MultiLogger writes to multiple loggers simultaneously.
// Safe for concurrent use if all underlying loggers are safe.
type MultiLogger struct {
	loggers []Logger
}

var _ Logger = (*MultiLogger)(nil)

// NewMultiLogger creates a logger that writes to multiple destinations
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
	}
}

func (m *MultiLogger) Type() LoggerType {
	return LoggerTypeMulti
}

func (m *MultiLogger) Printf(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Printf(format, args...)
	}
}

func (m *MultiLogger) Println(message string) {
	for _, logger := range m.loggers {
		logger.Println(message)
	}
}

func (m *MultiLogger) Warnf(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Warnf(format, args...)
	}
}

func (m *MultiLogger) Errorf(format string, args ...any) {
	for _, logger := range m.loggers {
		logger.Errorf(format, args...)
	}
}

func (m *MultiLogger) WithFields(fields Fields) Logger {
	children := make([]Logger, len(m.loggers))
	for i, logger := range m.loggers {
		children[i] = logger.WithFields(fields)
	}
	return &MultiLogger{loggers: children}
}

func (m *MultiLogger) Close() error {
	for _, logger := range m.loggers {
		logger.Close()
	}
	return nil
}

// formatter picks JSON output for production and human readable text elsewhere.
func formatter() logrus.Formatter {
	if os.Getenv("ENV") == "production" {
		return &logrus.JSONFormatter{}
	}
	return &logrus.TextFormatter{FullTimestamp: true, DisableColors: true}
}

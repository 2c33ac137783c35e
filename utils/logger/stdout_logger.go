package logger

import (
	"os"
)

// StdoutLogger writes logs to stdout through logrus.
// Safe for concurrent use across goroutines.
type StdoutLogger struct {
	*entryLogger
}

var _ Logger = (*StdoutLogger)(nil)

// NewStdoutLogger creates a new logger that writes to stdout
func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{newEntryLogger(os.Stdout, LoggerTypeStdout, nil)}
}

package logger

import (
	"io"
)

// NoopLogger discards all log messages. Useful for testing or when logging is disabled.
// Safe for concurrent use across goroutines.
type NoopLogger struct {
	*entryLogger
}

var _ Logger = (*NoopLogger)(nil)

// NewNoopLogger creates a new logger that discards all output
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{newEntryLogger(io.Discard, LoggerTypeNoop, nil)}
}

package logger

import (
	"io"
)

// WriterLogger adapts any io.Writer to the Logger interface.
// Thread safety depends on the underlying writer.
type WriterLogger struct {
	*entryLogger
}

var _ Logger = (*WriterLogger)(nil)

// NewWriterLogger creates a logger from any io.Writer
func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{newEntryLogger(w, LoggerTypeWriter, nil)}
}

package logger

import (
	"os"
)

// FileLogger writes logs to a file using O_APPEND for atomic writes.
// Safe for concurrent use across both goroutines and processes:
// logrus serializes writes internally and O_APPEND keeps appends whole.
type FileLogger struct {
	*entryLogger
}

var _ Logger = (*FileLogger)(nil)

// NewFileLogger creates a new logger that writes to the specified file path.
// Returns an error if the file cannot be opened.
func NewFileLogger(filepath string) (*FileLogger, error) {
	file, err := os.OpenFile(filepath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	return &FileLogger{newEntryLogger(file, LoggerTypeFile, file)}, nil
}

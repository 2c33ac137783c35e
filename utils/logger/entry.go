package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// entryLogger adapts a logrus entry to the Logger interface. Every concrete
// logger in this package is an entryLogger writing to a different sink.
type entryLogger struct {
	entry  *logrus.Entry
	kind   LoggerType
	closer io.Closer
}

func newEntryLogger(w io.Writer, kind LoggerType, closer io.Closer) *entryLogger {
	base := logrus.New()
	base.SetOutput(w)
	base.SetFormatter(formatter())
	base.SetLevel(logrus.InfoLevel)

	return &entryLogger{
		entry:  logrus.NewEntry(base),
		kind:   kind,
		closer: closer,
	}
}

func (e *entryLogger) Type() LoggerType {
	return e.kind
}

func (e *entryLogger) Printf(format string, args ...any) {
	e.entry.Infof(format, args...)
}

func (e *entryLogger) Println(message string) {
	e.entry.Info(message)
}

func (e *entryLogger) Warnf(format string, args ...any) {
	e.entry.Warnf(format, args...)
}

func (e *entryLogger) Errorf(format string, args ...any) {
	e.entry.Errorf(format, args...)
}

// WithFields returns a child logger. Closing the child never closes the parent's sink.
func (e *entryLogger) WithFields(fields Fields) Logger {
	return &entryLogger{
		entry: e.entry.WithFields(logrus.Fields(fields)),
		kind:  e.kind,
	}
}

func (e *entryLogger) Close() error {
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

package logger

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout returns whatever fn writes to os.Stdout.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	old := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

func TestStdoutLogger(t *testing.T) {
	output := captureStdout(t, func() {
		lg := NewStdoutLogger()
		lg.Println("gateway starting")
		lg.Printf("listening on %s", ":8080")
	})

	assert.Contains(t, output, "gateway starting")
	assert.Contains(t, output, "listening on :8080")
}

func TestFileLogger_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")

	first, err := NewFileLogger(path)
	require.NoError(t, err)
	first.Println("first run")
	require.NoError(t, first.Close())

	second, err := NewFileLogger(path)
	require.NoError(t, err)
	second.Errorf("second run: %s", "boom")
	require.NoError(t, second.Close())

	content := readFile(t, path)
	assert.Contains(t, content, "first run")
	assert.Contains(t, content, "second run: boom")
	assert.Equal(t, LoggerTypeFile, first.Type())
}

func TestFileLogger_BadPath(t *testing.T) {
	_, err := NewFileLogger(filepath.Join(t.TempDir(), "missing", "dir", "gateway.log"))
	assert.Error(t, err)
}

func TestNoopLogger(t *testing.T) {
	lg := NewNoopLogger()

	assert.NotPanics(t, func() {
		lg.Println("ignored")
		lg.Printf("ignored %d", 1)
		lg.WithFields(Fields{"user_id": "u1"}).Errorf("ignored %s", "error")
	})
	assert.Equal(t, LoggerTypeNoop, lg.Type())
	assert.NoError(t, lg.Close())
}

func TestMultiLogger_FansOut(t *testing.T) {
	var a, b bytes.Buffer
	multi := NewMultiLogger(NewWriterLogger(&a), NewWriterLogger(&b))

	multi.WithFields(Fields{"event": "completion_fallback"}).Warnf("all providers failed")

	for _, buf := range []*bytes.Buffer{&a, &b} {
		assert.Contains(t, buf.String(), "all providers failed")
		assert.Contains(t, buf.String(), "event=completion_fallback")
	}
}

func TestMultiLogger_StdoutAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "multi.log")

	output := captureStdout(t, func() {
		file, err := NewFileLogger(path)
		require.NoError(t, err)

		multi := NewMultiLogger(NewStdoutLogger(), file)
		multi.Println("recorded twice")
		require.NoError(t, file.Close())
	})

	assert.Contains(t, output, "recorded twice")
	assert.Contains(t, readFile(t, path), "recorded twice")
}

func TestWriterLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		log   func(Logger)
		level string
		text  string
	}{
		{"info", func(l Logger) { l.Printf("served by %s", "OpenAI") }, "level=info", "served by OpenAI"},
		{"warning", func(l Logger) { l.Warnf("retrying %d", 2) }, "level=warning", "retrying 2"},
		{"error", func(l Logger) { l.Errorf("write failed") }, "level=error", "write failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewWriterLogger(&buf))

			assert.Contains(t, buf.String(), tt.level)
			assert.Contains(t, buf.String(), tt.text)
		})
	}
}

func TestWriterLogger_WithFields(t *testing.T) {
	var buf bytes.Buffer
	lg := NewWriterLogger(&buf)

	lg.WithFields(Fields{"request_id": "req_1234abcd", "event": "attempt_failed"}).Warnf("provider %s failed", "OpenAI")

	output := buf.String()
	assert.Contains(t, output, "request_id=req_1234abcd")
	assert.Contains(t, output, "event=attempt_failed")
	assert.Contains(t, output, "provider OpenAI failed")
}

func TestFileLogger_ChildCloseKeepsParentOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "child.log")

	lg, err := NewFileLogger(path)
	require.NoError(t, err)

	child := lg.WithFields(Fields{"component": "recorder"})
	require.NoError(t, child.Close())

	lg.Println("still writable")
	require.NoError(t, lg.Close())

	assert.Contains(t, readFile(t, path), "still writable")
}

package rate_limit

import (
	"errors"
	"time"
)

// ErrRateLimited is returned to callers whose window is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// Window is the fixed-window counter kept for one key (a user id).
type Window struct {
	Key         string
	WindowStart time.Time
	Count       int
}

// ResetAt returns the instant after which the window no longer applies.
func (w Window) ResetAt(window time.Duration) time.Time {
	return w.WindowStart.Add(window)
}

// Backend defines the interface for rate limit persistence backends.
// Implementations can use different mechanisms (UDS, in-memory, etc.) to track
// windows across single or multiple processes.
type Backend interface {
	// Take performs one atomic check-and-increment for key at now. It returns the
	// window after the check and whether the request was admitted. A rejected
	// request leaves the count unchanged.
	Take(key string, now time.Time, window time.Duration, limit int) (Window, bool, error)

	// Close cleans up any resources held by the backend (connections, files, etc.)
	Close() error
}

// Advance applies the fixed-window algorithm to the stored window for one key.
// exists reports whether anything was stored. Backends call it while holding
// whatever lock makes their Take atomic.
func Advance(current Window, exists bool, key string, now time.Time, window time.Duration, limit int) (Window, bool) {
	if !exists || now.After(current.WindowStart.Add(window)) {
		return Window{Key: key, WindowStart: now, Count: 1}, true
	}
	if current.Count < limit {
		current.Count++
		return current, true
	}
	return current, false
}

package memory

import (
	"sync"
	"time"

	"github.com/brightsphere/ai-gateway/rate_limit"
)

const sweepEvery = 1024

// Memory is an in-memory rate limit backend for single-process scenarios.
// It tracks windows locally without any inter-process communication.
type Memory struct {
	state map[string]rate_limit.Window
	takes int
	mu    sync.Mutex
}

var _ rate_limit.Backend = (*Memory)(nil)

// NewBackend creates a new, empty in-memory rate limit backend
func NewBackend() *Memory {
	return &Memory{
		state: make(map[string]rate_limit.Window),
	}
}

// Take applies the fixed-window check for key under the backend lock.
func (m *Memory) Take(key string, now time.Time, window time.Duration, limit int) (rate_limit.Window, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.state[key]
	next, allowed := rate_limit.Advance(current, exists, key, now, window, limit)
	m.state[key] = next

	m.takes++
	if m.takes%sweepEvery == 0 {
		m.sweepLocked(now, window)
	}

	return next, allowed, nil
}

// Get returns the stored window for key, if any.
func (m *Memory) Get(key string) (rate_limit.Window, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.state[key]
	return w, ok
}

// Sweep drops every window that has expired at now and returns how many were removed.
func (m *Memory) Sweep(now time.Time, window time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sweepLocked(now, window)
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.state)
}

// Close is a no-op for in-memory backend (no resources to clean up)
func (m *Memory) Close() error {
	return nil
}

// Note: caller must hold the lock
func (m *Memory) sweepLocked(now time.Time, window time.Duration) int {
	removed := 0
	for key, w := range m.state {
		if now.After(w.WindowStart.Add(window)) {
			delete(m.state, key)
			removed++
		}
	}
	return removed
}

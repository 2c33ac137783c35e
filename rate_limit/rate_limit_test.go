package rate_limit_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brightsphere/ai-gateway/rate_limit"
	"github.com/brightsphere/ai-gateway/rate_limit/backends/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type failingBackend struct{}

func (failingBackend) Take(string, time.Time, time.Duration, int) (rate_limit.Window, bool, error) {
	return rate_limit.Window{}, false, errors.New("socket closed")
}

func (failingBackend) Close() error { return nil }

func newTestLimiter(clock *fakeClock) (*rate_limit.Limiter, *memory.Memory) {
	backend := memory.NewBackend()
	return rate_limit.NewLimiter(backend, 10, 60*time.Second, rate_limit.WithClock(clock.Now)), backend
}

func TestLimiter_EleventhRequestRejected(t *testing.T) {
	clock := newFakeClock()
	limiter, backend := newTestLimiter(clock)

	for i := 1; i <= 10; i++ {
		assert.False(t, limiter.IsRateLimited("user-1"), "request %d should be admitted", i)
		clock.Advance(time.Second)
	}

	assert.True(t, limiter.IsRateLimited("user-1"))

	w, ok := backend.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, 10, w.Count, "a rejection must not increment the count")
}

func TestLimiter_WindowResetsAfterExpiry(t *testing.T) {
	clock := newFakeClock()
	limiter, backend := newTestLimiter(clock)
	start := clock.Now()

	for i := 0; i < 10; i++ {
		limiter.IsRateLimited("user-1")
	}
	assert.True(t, limiter.IsRateLimited("user-1"))

	clock.Advance(61 * time.Second)
	assert.False(t, limiter.IsRateLimited("user-1"))

	w, ok := backend.Get("user-1")
	require.True(t, ok)
	assert.Equal(t, 1, w.Count)
	assert.Equal(t, start.Add(61*time.Second), w.WindowStart)
}

func TestLimiter_ExactBoundaryIsSameWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	for i := 0; i < 10; i++ {
		limiter.IsRateLimited("user-1")
	}

	clock.Advance(60 * time.Second)
	assert.True(t, limiter.IsRateLimited("user-1"), "now == windowStart+window still belongs to the window")

	clock.Advance(time.Millisecond)
	assert.False(t, limiter.IsRateLimited("user-1"))
}

func TestLimiter_UsersAreIndependent(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	for i := 0; i < 10; i++ {
		limiter.IsRateLimited("user-1")
	}

	assert.True(t, limiter.IsRateLimited("user-1"))
	assert.False(t, limiter.IsRateLimited("user-2"))
}

func TestLimiter_BoundaryBurst(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	clock.Advance(59 * time.Second)
	admitted := 0
	for i := 0; i < 10; i++ {
		if !limiter.IsRateLimited("user-1") {
			admitted++
		}
	}

	// the window started at the first request, so a second burst needs a full window more
	clock.Advance(60*time.Second + time.Millisecond)
	for i := 0; i < 10; i++ {
		if !limiter.IsRateLimited("user-1") {
			admitted++
		}
	}

	assert.Equal(t, 20, admitted)
}

func TestLimiter_CheckReportsRemaining(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	d := limiter.Check("user-1")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
	assert.Equal(t, 9, d.Remaining)
	assert.Equal(t, clock.Now().Add(60*time.Second), d.ResetAt)
}

func TestLimiter_FailsOpenOnBackendError(t *testing.T) {
	limiter := rate_limit.NewLimiter(failingBackend{}, 1, time.Minute)

	for i := 0; i < 5; i++ {
		assert.False(t, limiter.IsRateLimited("user-1"))
	}
}

func TestLimiter_Defaults(t *testing.T) {
	limiter := rate_limit.NewLimiter(memory.NewBackend(), 0, 0)
	assert.Equal(t, rate_limit.DefaultLimit, limiter.Limit())
	assert.Equal(t, rate_limit.DefaultWindow, limiter.Window())
}

func TestLimiter_ConcurrentChecksNeverExceedLimit(t *testing.T) {
	clock := newFakeClock()
	limiter, _ := newTestLimiter(clock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !limiter.IsRateLimited("user-1") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, admitted)
}

func TestAdvance(t *testing.T) {
	start := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		current       rate_limit.Window
		exists        bool
		now           time.Time
		expectCount   int
		expectStart   time.Time
		expectAllowed bool
	}{
		{"no entry", rate_limit.Window{}, false, start, 1, start, true},
		{"under limit", rate_limit.Window{Key: "u", WindowStart: start, Count: 2}, true, start.Add(time.Second), 3, start, true},
		{"at limit", rate_limit.Window{Key: "u", WindowStart: start, Count: 3}, true, start.Add(time.Second), 3, start, false},
		{"expired", rate_limit.Window{Key: "u", WindowStart: start, Count: 3}, true, start.Add(time.Minute + 1), 1, start.Add(time.Minute + 1), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, allowed := rate_limit.Advance(tc.current, tc.exists, "u", tc.now, time.Minute, 3)
			assert.Equal(t, tc.expectAllowed, allowed)
			assert.Equal(t, tc.expectCount, next.Count)
			assert.Equal(t, tc.expectStart, next.WindowStart)
			assert.Equal(t, "u", next.Key, fmt.Sprintf("key for %s", tc.name))
		})
	}
}

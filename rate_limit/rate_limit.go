package rate_limit

import (
	"time"

	"github.com/brightsphere/ai-gateway/utils/logger"
)

const (
	// DefaultLimit is the number of requests a user may make per window.
	DefaultLimit = 10
	// DefaultWindow is the length of one fixed window.
	DefaultWindow = 60 * time.Second
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetAt   time.Time
}

// Limiter enforces a per-user fixed-window request budget on top of a Backend.
type Limiter struct {
	backend Backend
	limit   int
	window  time.Duration
	now     func() time.Time
	logger  logger.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithLogger sets the logger used to report backend failures.
func WithLogger(lg logger.Logger) Option {
	return func(l *Limiter) { l.logger = lg }
}

// NewLimiter creates a limiter. Non-positive limit or window fall back to the defaults.
func NewLimiter(backend Backend, limit int, window time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{
		backend: backend,
		limit:   limit,
		window:  window,
		now:     time.Now,
		logger:  logger.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsRateLimited reports whether userID has exhausted its window. Every call
// counts as a request, including the ones that end up rejected.
func (l *Limiter) IsRateLimited(userID string) bool {
	return !l.Check(userID).Allowed
}

// Check runs the admission check and returns the full decision. When the
// backend fails the request is allowed.
func (l *Limiter) Check(userID string) Decision {
	now := l.now()

	w, allowed, err := l.backend.Take(userID, now, l.window, l.limit)
	if err != nil {
		l.logger.WithFields(logger.Fields{
			"event":   "rate_limit_backend_error",
			"user_id": userID,
		}).Errorf("rate limit backend failed, allowing request: %v", err)
		return Decision{Allowed: true, Remaining: l.limit, ResetAt: now.Add(l.window)}
	}

	remaining := l.limit - w.Count
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   allowed,
		Count:     w.Count,
		Remaining: remaining,
		ResetAt:   w.ResetAt(l.window),
	}
}

// Limit returns the configured request budget per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Close releases the backend.
func (l *Limiter) Close() error {
	return l.backend.Close()
}

package retry

import (
	"context"
	"time"

	"github.com/brightsphere/ai-gateway/utils/logger"
	"github.com/cenkalti/backoff/v4"
)

// Config controls how many times and how fast an operation is retried.
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       200 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// ErrorChecker reports whether err is worth another attempt.
type ErrorChecker func(err error) bool

// Options bundles the retry configuration for one call site.
type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Operation    string
	Logger       logger.Logger
}

// Execute runs fn until it succeeds, returns a non-retryable error, exhausts
// its retries, or ctx is done. attempt starts at 1.
func Execute[T any](ctx context.Context, opts Options, fn func(attempt int) (T, error)) (T, error) {
	var (
		result  T
		attempt int
	)

	operation := func() error {
		attempt++
		value, err := fn(attempt)
		if err == nil {
			result = value
			return nil
		}
		if opts.ErrorChecker != nil && !opts.ErrorChecker(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		if opts.Logger == nil {
			return
		}
		opts.Logger.WithFields(logger.Fields{
			"operation": opts.Operation,
			"attempt":   attempt,
			"event":     "retrying",
		}).Warnf("%s failed, retrying in %s: %v", opts.Operation, wait, err)
	}

	if err := backoff.RetryNotify(operation, newBackOff(ctx, opts.Config), notify); err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Do is Execute for operations without a result value.
func Do(ctx context.Context, opts Options, fn func(attempt int) error) error {
	_, err := Execute(ctx, opts, func(attempt int) (struct{}, error) {
		return struct{}{}, fn(attempt)
	})
	return err
}

func newBackOff(ctx context.Context, cfg Config) backoff.BackOff {
	defaults := DefaultConfig()
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaults.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaults.MaxDelay
	}
	if cfg.BackoffMultiple < 1 {
		cfg.BackoffMultiple = defaults.BackoffMultiple
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = cfg.BaseDelay
	expo.MaxInterval = cfg.MaxDelay
	expo.Multiplier = cfg.BackoffMultiple
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0
	expo.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(cfg.MaxRetries)), ctx)
}

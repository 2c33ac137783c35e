// Package retry re-runs an operation with exponential backoff until it
// succeeds, the attempts run out, or the context ends.
//
// Delays come from github.com/cenkalti/backoff/v4 without jitter:
// BaseDelay, then BaseDelay*BackoffMultiple, capped at MaxDelay. An
// ErrorChecker returning false turns the error permanent and stops early.
//
//	err := retry.Do(ctx, retry.Options{
//		Config:    retry.DefaultConfig(),
//		Operation: "save interaction",
//		Logger:    lg,
//	}, func(attempt int) error {
//		return store.SaveInteraction(ctx, entry)
//	})
//
// Execute is the generic form for operations that return a value.
package retry

package backend

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy bounds the retry loop the layers above run around backend
// calls. Backend implementations never retry internally; every retry in the
// system goes through this one schedule so behavior stays deterministic.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BackoffBase is the sleep before the second attempt; each further
	// attempt doubles it.
	BackoffBase time.Duration
}

// DefaultRetryPolicy matches the configuration defaults: four attempts,
// 100ms base backoff.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, BackoffBase: 100 * time.Millisecond}

// Retry runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. Only ErrUnavailable is retried. The context is
// honored between attempts; its error is returned as-is so deadline
// expiry stays distinguishable from backend exhaustion.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	backoff := policy.BackoffBase
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		err = fn()
		if err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

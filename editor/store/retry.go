package store

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
)

// RetryPolicy bounds retries of backing-store calls.
type RetryPolicy struct {
	Attempts int
	Min      time.Duration
	Max      time.Duration
}

// DefaultRetryPolicy is used for region and map writes.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Min: 100 * time.Millisecond, Max: 2 * time.Second}

// Retry calls fn until it succeeds, returns a non-persistence error, the
// attempts are used up or ctx is done. Only *PersistenceError failures are
// retried; not-found and validation errors are returned at once.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := &backoff.Backoff{
		Min:    policy.Min,
		Max:    policy.Max,
		Factor: 2,
		Jitter: true,
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !errors.Is(err, ErrPersistence) || i == attempts-1 {
			return err
		}

		timer := time.NewTimer(b.Duration())
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

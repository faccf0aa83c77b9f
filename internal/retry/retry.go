// Package retry re-runs operations that failed for transport reasons.
// Business failures (validation, missing records, insufficient stock)
// pass through on the first attempt; only network-looking errors earn
// another try.
package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"greenleafpos/backend/internal/domain"
	"greenleafpos/backend/internal/inventory"
	"greenleafpos/backend/internal/store"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

var transientMarkers = []string{"network", "fetch", "timeout", "connection"}

type Retrier struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry fires before each re-attempt's backoff wait.
	OnRetry func(attempt int, err error)

	// sleep is swapped in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

func New() *Retrier {
	return &Retrier{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
	}
}

// Do runs op up to MaxAttempts times with exponential backoff (base,
// 2x base, 4x base, ...). The last error surfaces unchanged.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = DefaultMaxAttempts
	}
	base := r.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) || attempt == attempts {
			return lastErr
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, lastErr)
		}
		delay := base << (attempt - 1)
		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
	}
	return lastErr
}

// Retryable reports whether an error looks like a transport failure.
// Business errors never qualify, whatever their message says.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	var insufficient *inventory.InsufficientInventoryError
	var validation *domain.ValidationError
	if errors.As(err, &insufficient) || errors.As(err, &validation) {
		return false
	}
	if errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrInsufficientStock) ||
		errors.Is(err, store.ErrInvalidTransaction) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

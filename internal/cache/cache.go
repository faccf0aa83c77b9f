package cache

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// AvailabilityCache holds short-lived remaining-quantity sums per
// product. Entries are invalidated whenever stock moves, so a short TTL
// is only a backstop.
type AvailabilityCache interface {
	Get(ctx context.Context, productID string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, productID string, qty decimal.Decimal, ttl time.Duration) error
	Invalidate(ctx context.Context, productID string) error
}

type NoopAvailabilityCache struct{}

func (NoopAvailabilityCache) Get(_ context.Context, _ string) (decimal.Decimal, bool, error) {
	return decimal.Zero, false, nil
}

func (NoopAvailabilityCache) Set(_ context.Context, _ string, _ decimal.Decimal, _ time.Duration) error {
	return nil
}

func (NoopAvailabilityCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

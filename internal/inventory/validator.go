// Package inventory answers "is there enough stock" questions without
// touching any batch. Validation reads the server-side sum of remaining
// quantities per product, optionally through a short-TTL cache.
package inventory

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/cache"
	"greenleafpos/backend/internal/domain"
)

const cacheTTL = 15 * time.Second

// InsufficientInventoryError reports a single cart line that asked for
// more than the product has remaining across all batches. It is a
// business error and must never be retried.
type InsufficientInventoryError struct {
	ProductID   string
	ProductName string
	Available   decimal.Decimal
	Requested   decimal.Decimal
	Unit        string
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("Insufficient inventory for %s. Only %s %s available.",
		e.ProductName, e.Available, e.Unit)
}

// QuantityCheck is the structured result of a single-line quantity probe.
// A business miss sets Valid=false and Error; it is not a call failure.
type QuantityCheck struct {
	Valid     bool            `json:"valid"`
	Available decimal.Decimal `json:"available_quantity"`
	Error     string          `json:"error,omitempty"`
}

// QuantityStore is the slice of the repository the validator reads.
type QuantityStore interface {
	SumRemainingQuantity(ctx context.Context, productID string) (decimal.Decimal, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
}

type Validator struct {
	store QuantityStore
	cache cache.AvailabilityCache
}

func NewValidator(store QuantityStore, availability cache.AvailabilityCache) *Validator {
	if availability == nil {
		availability = cache.NoopAvailabilityCache{}
	}
	return &Validator{store: store, cache: availability}
}

// ValidateAvailability checks every cart line against total remaining
// stock before any allocation happens. The first shortfall aborts the
// whole cart; no batch is touched either way.
func (v *Validator) ValidateAvailability(ctx context.Context, lines []domain.CartLine) error {
	for _, line := range lines {
		available, err := v.availability(ctx, line.Product.ID)
		if err != nil {
			return fmt.Errorf("sum remaining quantity for %s: %w", line.Product.ID, err)
		}
		if line.Quantity.GreaterThan(available) {
			return &InsufficientInventoryError{
				ProductID:   line.Product.ID,
				ProductName: line.Product.Name,
				Available:   available,
				Requested:   line.Quantity,
				Unit:        line.Product.Unit,
			}
		}
	}
	return nil
}

// ValidateQuantity probes one product for a requested quantity. Business
// misses come back in the result; only infrastructure failures error.
// The product may be passed to avoid a lookup; nil triggers a fetch, and
// an unknown product falls back to the generic "units" label.
func (v *Validator) ValidateQuantity(ctx context.Context, productID string, qty decimal.Decimal, product *domain.Product) (QuantityCheck, error) {
	available, err := v.availability(ctx, productID)
	if err != nil {
		return QuantityCheck{}, fmt.Errorf("sum remaining quantity for %s: %w", productID, err)
	}

	if qty.GreaterThan(available) {
		unit := "units"
		if product == nil {
			if fetched, err := v.store.GetProduct(ctx, productID); err == nil {
				product = fetched
			}
		}
		if product != nil && product.Unit != "" {
			unit = product.Unit
		}
		return QuantityCheck{
			Valid:     false,
			Available: available,
			Error:     fmt.Sprintf("Only %s %s available", available, unit),
		}, nil
	}
	return QuantityCheck{Valid: true, Available: available}, nil
}

// Invalidate drops the cached availability for a product. Call after any
// batch decrement or receipt.
func (v *Validator) Invalidate(ctx context.Context, productID string) {
	if err := v.cache.Invalidate(ctx, productID); err != nil {
		log.Printf("[inventory] WARN: invalidate availability cache for %s: %v", productID, err)
	}
}

func (v *Validator) availability(ctx context.Context, productID string) (decimal.Decimal, error) {
	if cached, ok, err := v.cache.Get(ctx, productID); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[inventory] WARN: availability cache read for %s: %v", productID, err)
	}

	available, err := v.store.SumRemainingQuantity(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := v.cache.Set(ctx, productID, available, cacheTTL); err != nil {
		log.Printf("[inventory] WARN: availability cache write for %s: %v", productID, err)
	}
	return available, nil
}

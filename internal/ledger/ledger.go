// Package ledger allocates sale quantities against inventory batches.
// Allocation is last-in-first-out: the newest received batch is drawn
// down first. LIFO is deliberate here; newest stock is front of shelf
// and oldest batches age out through separate markdown flows.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
	"greenleafpos/backend/internal/store"
)

// BatchStore is the slice of the repository the allocator needs.
type BatchStore interface {
	FetchActiveBatches(ctx context.Context, productID string) ([]domain.Batch, error)
	DecrementBatch(ctx context.Context, batchID string, qty decimal.Decimal) error
}

type Ledger struct {
	batches BatchStore
}

func New(batches BatchStore) *Ledger {
	return &Ledger{batches: batches}
}

// Allocate draws qtyNeeded from the product's batches, newest first, and
// returns one Allocation per batch touched, in draw order. Each batch
// decrement is persisted before the walk moves on, so a failure partway
// leaves earlier decrements in place. Callers validate availability for
// the whole cart up front, which keeps that partial state unreachable
// for well-formed sales.
func (l *Ledger) Allocate(ctx context.Context, productID string, qtyNeeded decimal.Decimal) ([]domain.Allocation, error) {
	if qtyNeeded.LessThanOrEqual(decimal.Zero) {
		return nil, domain.NewValidationError("allocation quantity must be positive")
	}

	batches, err := l.batches.FetchActiveBatches(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("fetch batches for %s: %w", productID, err)
	}
	if len(batches) == 0 {
		return nil, fmt.Errorf("no active batches for product %s: %w", productID, store.ErrNotFound)
	}

	remaining := qtyNeeded
	allocations := make([]domain.Allocation, 0, 2)
	for _, batch := range batches {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		take := decimal.Min(batch.QtyRemaining, remaining)
		if take.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if err := l.batches.DecrementBatch(ctx, batch.ID, take); err != nil {
			return nil, fmt.Errorf("decrement batch %s: %w", batch.ID, err)
		}
		allocations = append(allocations, domain.Allocation{
			BatchID:      batch.ID,
			QtyAllocated: take,
			CostPerUnit:  batch.CostPerUnit,
		})
		remaining = remaining.Sub(take)
	}

	if remaining.GreaterThan(decimal.Zero) {
		return nil, fmt.Errorf("insufficient inventory for product %s, short %s: %w",
			productID, remaining, store.ErrInsufficientStock)
	}
	return allocations, nil
}

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
)

func TestDecrementBatchAndAllocationRoundTrip(t *testing.T) {
	databaseURL := os.Getenv("GREENLEAF_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set GREENLEAF_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-alloc-it-%d", stamp)
	batchID := fmt.Sprintf("batch-alloc-it-%d", stamp)
	txID := fmt.Sprintf("tx-alloc-it-%d", stamp)
	itemID := fmt.Sprintf("txi-alloc-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transaction_line_items WHERE transaction_id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, batchID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:        productID,
		SKU:       fmt.Sprintf("SKU-IT-%d", stamp),
		Name:      "Integration Flower",
		Category:  "Flower",
		Unit:      "gram",
		BasePrice: decimal.NewFromInt(12),
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	if _, err := s.CreateBatch(ctx, domain.Batch{
		ID:          batchID,
		ProductID:   productID,
		BatchNumber: "B-IT",
		QtyReceived: decimal.NewFromInt(10),
		CostPerUnit: decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("create batch: %v", err)
	}

	// Conditional decrement refuses to overdraw.
	if err := s.DecrementBatch(ctx, batchID, decimal.NewFromInt(4)); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if err := s.DecrementBatch(ctx, batchID, decimal.NewFromInt(7)); err == nil {
		t.Fatal("expected overdraw to fail")
	}
	remaining, err := s.SumRemainingQuantity(ctx, productID)
	if err != nil {
		t.Fatalf("sum remaining: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected 6 remaining, got %s", remaining)
	}

	if _, err := s.InsertTransaction(ctx, domain.Transaction{
		ID:            txID,
		UserID:        "cashier",
		LocationID:    "loc-main",
		TotalAmount:   decimal.NewFromInt(48),
		PaymentMethod: domain.PaymentCash,
	}); err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
	if _, err := s.InsertTransactionLineItem(ctx, domain.TransactionLineItem{
		ID:            itemID,
		TransactionID: txID,
		ProductID:     productID,
		Quantity:      decimal.NewFromInt(4),
		UnitPrice:     decimal.NewFromInt(12),
		LineTotal:     decimal.NewFromInt(48),
		Allocations: []domain.Allocation{
			{BatchID: batchID, QtyAllocated: decimal.NewFromInt(4), CostPerUnit: decimal.NewFromInt(5)},
		},
	}); err != nil {
		t.Fatalf("insert line item: %v", err)
	}

	fetched, err := s.FindTransactionByID(ctx, txID)
	if err != nil {
		t.Fatalf("find transaction: %v", err)
	}
	if fetched.LocationID != "loc-main" {
		t.Fatalf("expected location loc-main, got %q", fetched.LocationID)
	}
	if len(fetched.Items) != 1 || len(fetched.Items[0].Allocations) != 1 {
		t.Fatalf("expected one item with one allocation, got %+v", fetched.Items)
	}
	alloc := fetched.Items[0].Allocations[0]
	if alloc.BatchID != batchID ||
		!alloc.QtyAllocated.Equal(decimal.NewFromInt(4)) ||
		!alloc.CostPerUnit.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("allocation did not round-trip: %+v", alloc)
	}
}

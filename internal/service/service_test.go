package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
	"greenleafpos/backend/internal/inventory"
	"greenleafpos/backend/internal/ledger"
	"greenleafpos/backend/internal/store"
	"greenleafpos/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*memory.Store, *Service) {
	t.Helper()
	repo := memory.New()
	svc := New(repo, ledger.New(repo), inventory.NewValidator(repo, nil))
	return repo, svc
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "manager", Role: domain.RoleManager})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})
}

func seedProductWithBatches(t *testing.T, repo *memory.Store, productID string, qtys ...int64) domain.Product {
	t.Helper()
	ctx := context.Background()
	product, err := repo.CreateProduct(ctx, domain.Product{
		ID:        productID,
		SKU:       "SKU-" + productID,
		Name:      "Product " + productID,
		Category:  "Flower",
		Unit:      "gram",
		BasePrice: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	for i, qty := range qtys {
		if _, err := repo.CreateBatch(ctx, domain.Batch{
			ProductID:   productID,
			BatchNumber: "B" + productID,
			QtyReceived: decimal.NewFromInt(qty),
			CostPerUnit: decimal.NewFromInt(4),
			ReceivedAt:  time.Now().UTC().Add(time.Duration(i-len(qtys)) * time.Hour),
		}); err != nil {
			t.Fatalf("create batch: %v", err)
		}
	}
	return *product
}

func cartLine(product domain.Product, qty int64) domain.CartLine {
	q := decimal.NewFromInt(qty)
	return domain.CartLine{
		Product:   product,
		Quantity:  q,
		UnitPrice: product.BasePrice,
		LineTotal: q.Mul(product.BasePrice),
	}
}

func TestCreateTransactionCommitsLinesInOrder(t *testing.T) {
	repo, svc := newTestService(t)
	flower := seedProductWithBatches(t, repo, "flower", 30)
	gummies := seedProductWithBatches(t, repo, "gummies", 10)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.CreateTransactionRequest{
		PaymentMethod: domain.PaymentCash,
		LocationID:    "loc-main",
	}, []domain.CartLine{
		cartLine(flower, 5),
		cartLine(gummies, 2),
	})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	if !tx.TotalAmount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected total 70, got %s", tx.TotalAmount)
	}
	if tx.LocationID != "loc-main" {
		t.Fatalf("expected location loc-main on the committed sale, got %q", tx.LocationID)
	}
	if len(tx.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(tx.Items))
	}
	if tx.Items[0].ProductID != "flower" || tx.Items[1].ProductID != "gummies" {
		t.Fatalf("expected line items in cart order, got %s then %s",
			tx.Items[0].ProductID, tx.Items[1].ProductID)
	}
	if len(tx.Items[0].Allocations) != 1 {
		t.Fatalf("expected one allocation on flower line, got %d", len(tx.Items[0].Allocations))
	}
	if !tx.Items[0].Allocations[0].QtyAllocated.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected 5 allocated, got %s", tx.Items[0].Allocations[0].QtyAllocated)
	}

	remaining, err := repo.SumRemainingQuantity(context.Background(), "flower")
	if err != nil {
		t.Fatalf("sum remaining: %v", err)
	}
	if !remaining.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected 25 grams remaining, got %s", remaining)
	}
}

func TestCreateTransactionAllocationsRoundTrip(t *testing.T) {
	repo, svc := newTestService(t)
	flower := seedProductWithBatches(t, repo, "flower", 10, 20)

	// 25 grams spans the newer 20-gram batch and dips into the older one.
	tx, err := svc.CreateTransaction(cashierCtx(), domain.CreateTransactionRequest{
		PaymentMethod: domain.PaymentCash,
		LocationID:    "loc-main",
	}, []domain.CartLine{cartLine(flower, 25)})
	if err != nil {
		t.Fatalf("create transaction: %v", err)
	}

	fetched, err := svc.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if fetched.LocationID != "loc-main" {
		t.Fatalf("expected location to survive persistence, got %q", fetched.LocationID)
	}
	if len(fetched.Items) != 1 {
		t.Fatalf("expected 1 line item, got %d", len(fetched.Items))
	}
	allocations := fetched.Items[0].Allocations
	if len(allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(allocations))
	}
	if !allocations[0].QtyAllocated.Equal(decimal.NewFromInt(20)) || !allocations[1].QtyAllocated.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("expected allocations 20 then 5, got %s then %s",
			allocations[0].QtyAllocated, allocations[1].QtyAllocated)
	}
	for i, a := range allocations {
		if a.BatchID == "" {
			t.Fatalf("allocation %d missing batch id", i)
		}
		if !a.CostPerUnit.Equal(decimal.NewFromInt(4)) {
			t.Fatalf("allocation %d lost its unit cost: %s", i, a.CostPerUnit)
		}
	}
}

func TestCreateTransactionRejectsWholeCartBeforeAnyDecrement(t *testing.T) {
	repo, svc := newTestService(t)
	flower := seedProductWithBatches(t, repo, "flower", 30)
	gummies := seedProductWithBatches(t, repo, "gummies", 3)

	_, err := svc.CreateTransaction(cashierCtx(), domain.CreateTransactionRequest{
		PaymentMethod: domain.PaymentCash,
	}, []domain.CartLine{
		cartLine(flower, 5),  // in stock
		cartLine(gummies, 9), // not in stock
	})
	var insufficient *inventory.InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}

	// Nothing moved: the valid line was not allocated either.
	ctx := context.Background()
	flowerLeft, _ := repo.SumRemainingQuantity(ctx, "flower")
	gummiesLeft, _ := repo.SumRemainingQuantity(ctx, "gummies")
	if !flowerLeft.Equal(decimal.NewFromInt(30)) || !gummiesLeft.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected stock untouched, got flower=%s gummies=%s", flowerLeft, gummiesLeft)
	}
	now := time.Now().UTC()
	if txs, _ := repo.ListTransactions(ctx, now.Add(-time.Hour), now.Add(time.Hour), 10); len(txs) != 0 {
		t.Fatalf("expected no transaction written, got %d", len(txs))
	}
}

func TestCreateTransactionIdempotentReplay(t *testing.T) {
	repo, svc := newTestService(t)
	flower := seedProductWithBatches(t, repo, "flower", 30)

	req := domain.CreateTransactionRequest{
		IdempotencyKey: "idem-1",
		PaymentMethod:  domain.PaymentCash,
	}
	lines := []domain.CartLine{cartLine(flower, 5)}

	first, err := svc.CreateTransaction(cashierCtx(), req, lines)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	second, err := svc.CreateTransaction(cashierCtx(), req, lines)
	if err != nil {
		t.Fatalf("replay commit: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replay to return original transaction, got %s vs %s", first.ID, second.ID)
	}

	// Stock was only drawn once.
	remaining, _ := repo.SumRemainingQuantity(context.Background(), "flower")
	if !remaining.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected 25 remaining after replay, got %s", remaining)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	_, svc := newTestService(t)

	_, err := svc.CreateTransaction(cashierCtx(), domain.CreateTransactionRequest{
		PaymentMethod: domain.PaymentCash,
	}, nil)
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty cart, got %v", err)
	}

	_, err = svc.CreateTransaction(cashierCtx(), domain.CreateTransactionRequest{
		PaymentMethod: "Barter",
	}, []domain.CartLine{{Product: domain.Product{ID: "x"}, Quantity: decimal.NewFromInt(1)}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error for payment method, got %v", err)
	}
}

func TestCheckQuantityReportsMissInline(t *testing.T) {
	repo, svc := newTestService(t)
	seedProductWithBatches(t, repo, "flower", 4)

	check, err := svc.CheckQuantity(context.Background(), "flower", decimal.NewFromInt(9))
	if err != nil {
		t.Fatalf("check quantity: %v", err)
	}
	if check.Valid {
		t.Fatal("expected invalid check")
	}
	if !check.Available.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected available 4, got %s", check.Available)
	}
}

func TestCreateProductRequiresManager(t *testing.T) {
	_, svc := newTestService(t)

	req := domain.ProductCreateRequest{
		SKU: "FLW-9", Name: "Flower", Category: "Flower", Unit: "gram",
		BasePrice: decimal.NewFromInt(12),
	}
	if _, err := svc.CreateProduct(cashierCtx(), req); err == nil {
		t.Fatal("expected cashier to be rejected")
	}
	if _, err := svc.CreateProduct(managerCtx(), req); err != nil {
		t.Fatalf("expected manager to create product, got %v", err)
	}
}

func TestReceiveBatchRaisesAvailability(t *testing.T) {
	repo, svc := newTestService(t)
	seedProductWithBatches(t, repo, "flower", 5)

	if _, err := svc.ReceiveBatch(managerCtx(), domain.ReceiveBatchRequest{
		ProductID:   "flower",
		BatchNumber: "B-NEW",
		Quantity:    decimal.NewFromInt(40),
		CostPerUnit: decimal.NewFromInt(6),
	}); err != nil {
		t.Fatalf("receive batch: %v", err)
	}

	check, err := svc.CheckQuantity(context.Background(), "flower", decimal.NewFromInt(45))
	if err != nil {
		t.Fatalf("check quantity: %v", err)
	}
	if !check.Valid {
		t.Fatalf("expected 45 in stock after receipt, got %+v", check)
	}
}

func TestShiftLifecycle(t *testing.T) {
	_, svc := newTestService(t)
	ctx := cashierCtx()

	opened, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{OpeningFloat: decimal.NewFromInt(200)})
	if err != nil {
		t.Fatalf("open shift: %v", err)
	}
	if opened.Shift.Status != domain.ShiftStatusOpen {
		t.Fatalf("expected open shift, got %s", opened.Shift.Status)
	}

	if _, err := svc.OpenShift(ctx, domain.ShiftOpenRequest{}); err == nil {
		t.Fatal("expected second open to fail")
	}

	active, err := svc.GetActiveShift(ctx)
	if err != nil {
		t.Fatalf("get active shift: %v", err)
	}
	if active.Shift.ID != opened.Shift.ID {
		t.Fatalf("expected active shift %s, got %s", opened.Shift.ID, active.Shift.ID)
	}

	closed, err := svc.CloseShift(ctx, domain.ShiftCloseRequest{ClosingCash: decimal.NewFromInt(750)})
	if err != nil {
		t.Fatalf("close shift: %v", err)
	}
	if closed.Shift.Status != domain.ShiftStatusClosed || closed.Shift.ClosedAt == nil {
		t.Fatalf("expected closed shift, got %+v", closed.Shift)
	}

	if _, err := svc.GetActiveShift(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected no active shift, got %v", err)
	}
}

func TestDailyReportAggregatesPayments(t *testing.T) {
	repo, svc := newTestService(t)
	flower := seedProductWithBatches(t, repo, "flower", 100)

	ctx := cashierCtx()
	if _, err := svc.CreateTransaction(ctx, domain.CreateTransactionRequest{PaymentMethod: domain.PaymentCash}, []domain.CartLine{cartLine(flower, 5)}); err != nil {
		t.Fatalf("cash sale: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, domain.CreateTransactionRequest{PaymentMethod: domain.PaymentCard}, []domain.CartLine{cartLine(flower, 3)}); err != nil {
		t.Fatalf("card sale: %v", err)
	}
	if _, err := svc.CreateTransaction(ctx, domain.CreateTransactionRequest{PaymentMethod: domain.PaymentQRCode}, []domain.CartLine{cartLine(flower, 2)}); err != nil {
		t.Fatalf("qr sale: %v", err)
	}

	report, err := svc.GetDailyReport(managerCtx(), time.Now().UTC())
	if err != nil {
		t.Fatalf("daily report: %v", err)
	}
	if report.Transactions != 3 {
		t.Fatalf("expected 3 transactions, got %d", report.Transactions)
	}
	if !report.GrossSales.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected gross 100, got %s", report.GrossSales)
	}
	if len(report.ByPayment) != 3 {
		t.Fatalf("expected 3 payment rows, got %d", len(report.ByPayment))
	}
}

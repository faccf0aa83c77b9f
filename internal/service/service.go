package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
	"greenleafpos/backend/internal/inventory"
	"greenleafpos/backend/internal/ledger"
	"greenleafpos/backend/internal/restock"
	"greenleafpos/backend/internal/store"
	"greenleafpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo      store.Repository
	ledger    *ledger.Ledger
	validator *inventory.Validator
	restocker *restock.Engine
}

func New(repo store.Repository, alloc *ledger.Ledger, validator *inventory.Validator) *Service {
	return &Service{
		repo:      repo,
		ledger:    alloc,
		validator: validator,
		restocker: restock.NewEngine(7 * 24 * time.Hour),
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	return s.repo.SearchProducts(ctx, query)
}

func (s *Service) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.Product{}, fmt.Errorf("manager role required")
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Unit = strings.TrimSpace(req.Unit)

	if req.SKU == "" || req.Name == "" || req.Category == "" || req.Unit == "" {
		return domain.Product{}, store.ErrInvalidTransaction
	}
	if req.BasePrice.LessThanOrEqual(decimal.Zero) || req.ReorderThreshold.IsNegative() {
		return domain.Product{}, store.ErrInvalidTransaction
	}

	product := domain.Product{
		ID:                         xid.New("prod"),
		SKU:                        req.SKU,
		Name:                       req.Name,
		Category:                   req.Category,
		Unit:                       req.Unit,
		BasePrice:                  req.BasePrice,
		RequiresFractionalQuantity: req.RequiresFractionalQuantity,
		ReorderThreshold:           req.ReorderThreshold,
		Active:                     true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("sku=%s,name=%s,price=%s", created.SKU, created.Name, created.BasePrice))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.Product{}, fmt.Errorf("manager role required")
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.Category = category
	}
	if req.BasePrice != nil {
		if req.BasePrice.LessThanOrEqual(decimal.Zero) {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.BasePrice = *req.BasePrice
	}
	if req.ReorderThreshold != nil {
		if req.ReorderThreshold.IsNegative() {
			return domain.Product{}, store.ErrInvalidTransaction
		}
		updated.ReorderThreshold = *req.ReorderThreshold
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%s", saved.Active, saved.BasePrice))
	return *saved, nil
}

// ReceiveBatch records an incoming lot for a product. The new stock is
// visible to validation as soon as the cached availability drops.
func (s *Service) ReceiveBatch(ctx context.Context, req domain.ReceiveBatchRequest) (domain.Batch, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.Batch{}, fmt.Errorf("manager role required")
	}

	req.ProductID = strings.TrimSpace(req.ProductID)
	req.BatchNumber = strings.TrimSpace(req.BatchNumber)
	if req.ProductID == "" || req.BatchNumber == "" {
		return domain.Batch{}, store.ErrInvalidTransaction
	}
	if req.Quantity.LessThanOrEqual(decimal.Zero) || req.CostPerUnit.IsNegative() {
		return domain.Batch{}, store.ErrInvalidTransaction
	}

	batch := domain.Batch{
		ID:          xid.New("batch"),
		ProductID:   req.ProductID,
		BatchNumber: req.BatchNumber,
		QtyReceived: req.Quantity,
		CostPerUnit: req.CostPerUnit,
		ReceivedAt:  time.Now().UTC(),
	}
	created, err := s.repo.CreateBatch(ctx, batch)
	if err != nil {
		return domain.Batch{}, err
	}

	s.validator.Invalidate(ctx, req.ProductID)
	s.logAudit(ctx, "batch_receive", "batch", created.ID, fmt.Sprintf("product=%s,qty=%s,cost=%s", req.ProductID, req.Quantity, req.CostPerUnit))
	return *created, nil
}

func (s *Service) ListBatches(ctx context.Context, productID string, limit int) ([]domain.Batch, error) {
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListBatches(ctx, strings.TrimSpace(productID), limit)
}

func (s *Service) ListLowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	return s.repo.ListLowStock(ctx)
}

// GetReorderSuggestions ranks low-stock products by urgency using the
// past week's sales as the run-rate.
func (s *Service) GetReorderSuggestions(ctx context.Context) ([]restock.Suggestion, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return nil, fmt.Errorf("manager role required")
	}

	lowStock, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	recent, err := s.repo.ListTransactions(ctx, now.Add(-7*24*time.Hour), now, 0)
	if err != nil {
		log.Printf("[service] WARN: list recent transactions for restock: %v", err)
		recent = nil
	}
	return s.restocker.Suggest(lowStock, recent), nil
}

// CheckQuantity probes whether a requested quantity is in stock. Misses
// are reported in the result, not as errors, so registers can show them
// inline without tearing down the cart line.
func (s *Service) CheckQuantity(ctx context.Context, productID string, qty decimal.Decimal) (inventory.QuantityCheck, error) {
	return s.validator.ValidateQuantity(ctx, strings.TrimSpace(productID), qty, nil)
}

// CreateTransaction commits a sale. The committed sequence is fixed:
// validate the whole cart, insert the transaction shell, then for each
// line in cart order allocate stock and insert the line item. There is
// no automatic undo; a mid-sequence failure leaves earlier writes in
// place and the caller's cart untouched, so the register can surface
// the error and retry.
func (s *Service) CreateTransaction(ctx context.Context, req domain.CreateTransactionRequest, lines []domain.CartLine) (domain.Transaction, error) {
	if len(lines) == 0 {
		return domain.Transaction{}, domain.NewValidationError("cart is empty")
	}
	if !isSupportedPaymentMethod(req.PaymentMethod) {
		return domain.Transaction{}, domain.NewValidationError("unsupported payment method")
	}
	if req.UserID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			req.UserID = actor.Username
		}
	}
	if req.UserID == "" {
		return domain.Transaction{}, domain.NewValidationError("user is required")
	}

	if err := s.validator.ValidateAvailability(ctx, lines); err != nil {
		return domain.Transaction{}, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal)
	}

	tx := domain.Transaction{
		ID:             xid.New("tx"),
		IdempotencyKey: strings.TrimSpace(req.IdempotencyKey),
		UserID:         req.UserID,
		ShiftID:        req.ShiftID,
		LocationID:     strings.TrimSpace(req.LocationID),
		TotalAmount:    total,
		PaymentMethod:  req.PaymentMethod,
		CreatedAt:      time.Now().UTC(),
	}
	saved, err := s.repo.InsertTransaction(ctx, tx)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	if saved.ID != tx.ID {
		// Idempotency hit: this sale was already committed; return it
		// without touching inventory again.
		log.Printf("[service] INFO: idempotent replay of transaction %s", saved.ID)
		replay, err := s.repo.FindTransactionByID(ctx, saved.ID)
		if err != nil {
			return *saved, nil
		}
		return *replay, nil
	}

	items := make([]domain.TransactionLineItem, 0, len(lines))
	for _, line := range lines {
		allocations, err := s.ledger.Allocate(ctx, line.Product.ID, line.Quantity)
		s.validator.Invalidate(ctx, line.Product.ID)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("allocate %s: %w", line.Product.ID, err)
		}

		item := domain.TransactionLineItem{
			ID:            xid.New("txi"),
			TransactionID: saved.ID,
			ProductID:     line.Product.ID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			LineTotal:     line.LineTotal,
			Allocations:   allocations,
			CreatedAt:     time.Now().UTC(),
		}
		inserted, err := s.repo.InsertTransactionLineItem(ctx, item)
		if err != nil {
			return domain.Transaction{}, fmt.Errorf("insert line item for %s: %w", line.Product.ID, err)
		}
		items = append(items, *inserted)
	}

	result := *saved
	result.Items = items
	s.logAudit(ctx, "transaction_create", "transaction", result.ID, fmt.Sprintf("total=%s,method=%s,lines=%d", result.TotalAmount, result.PaymentMethod, len(items)))
	return result, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.FindTransactionByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, day time.Time, limit int) ([]domain.Transaction, error) {
	if limit < 1 {
		limit = 100
	}
	from := day.UTC().Truncate(24 * time.Hour)
	return s.repo.ListTransactions(ctx, from, from.Add(24*time.Hour), limit)
}

func (s *Service) OpenShift(ctx context.Context, req domain.ShiftOpenRequest) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authentication required")
	}
	if req.OpeningFloat.IsNegative() {
		return domain.ShiftResponse{}, store.ErrInvalidTransaction
	}

	shift := domain.Shift{
		ID:           xid.New("shift"),
		UserID:       actor.Username,
		CashierName:  defaultString(req.CashierName, actor.Username),
		OpeningFloat: req.OpeningFloat,
		Status:       domain.ShiftStatusOpen,
		OpenedAt:     time.Now().UTC(),
	}
	saved, err := s.repo.CreateShift(ctx, shift)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransaction) {
			return domain.ShiftResponse{}, fmt.Errorf("shift already open")
		}
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, "shift_open", "shift", saved.ID, saved.CashierName)
	return domain.ShiftResponse{Shift: *saved}, nil
}

func (s *Service) CloseShift(ctx context.Context, req domain.ShiftCloseRequest) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authentication required")
	}
	if req.ClosingCash.IsNegative() {
		return domain.ShiftResponse{}, store.ErrInvalidTransaction
	}

	closed, err := s.repo.CloseActiveShift(ctx, actor.Username, req.ClosingCash, time.Now().UTC())
	if err != nil {
		return domain.ShiftResponse{}, err
	}

	s.logAudit(ctx, "shift_close", "shift", closed.ID, fmt.Sprintf("closing_cash=%s", req.ClosingCash))
	return domain.ShiftResponse{Shift: *closed}, nil
}

func (s *Service) GetActiveShift(ctx context.Context) (domain.ShiftResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ShiftResponse{}, fmt.Errorf("authentication required")
	}
	shift, err := s.repo.GetActiveShift(ctx, actor.Username)
	if err != nil {
		return domain.ShiftResponse{}, err
	}
	return domain.ShiftResponse{Shift: *shift}, nil
}

func (s *Service) GetDailyReport(ctx context.Context, day time.Time) (domain.DailyReport, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return domain.DailyReport{}, fmt.Errorf("manager role required")
	}
	from := day.UTC().Truncate(24 * time.Hour)
	return s.repo.GetDailyReport(ctx, from, from.Add(24*time.Hour))
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleManager {
		return nil, fmt.Errorf("manager role required")
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentQRCode:
		return true
	default:
		return false
	}
}

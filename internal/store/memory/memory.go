package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"greenleafpos/backend/internal/domain"
	"greenleafpos/backend/internal/store"
	"greenleafpos/backend/internal/xid"
)

type Store struct {
	mu                 sync.RWMutex
	products           map[string]domain.Product
	batchesByID        map[string]domain.Batch
	transactionsByID   map[string]*domain.Transaction
	transactionsByIdem map[string]*domain.Transaction
	lineItemsByTx      map[string][]domain.TransactionLineItem
	shiftsByID         map[string]domain.Shift
	activeShiftByUser  map[string]string
	auditLogs          []domain.AuditLog
	usersByUsername    map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD.
// If unset, hardcoded dev defaults are used with a warning. These
// credentials are never used in production (the backend uses PostgreSQL
// when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_MANAGER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"manager", managerPwd, domain.RoleManager},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:           make(map[string]domain.Product),
		batchesByID:        make(map[string]domain.Batch),
		transactionsByID:   make(map[string]*domain.Transaction),
		transactionsByIdem: make(map[string]*domain.Transaction),
		lineItemsByTx:      make(map[string][]domain.TransactionLineItem),
		shiftsByID:         make(map[string]domain.Shift),
		activeShiftByUser:  make(map[string]string),
		auditLogs:          make([]domain.AuditLog, 0, 128),
		usersByUsername:    seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	products := []domain.Product{
		{ID: "prod-flower-og", SKU: "FLW-001", Name: "OG Kush Flower", Category: "Flower", Unit: "gram", BasePrice: decimal.NewFromInt(12), RequiresFractionalQuantity: true, ReorderThreshold: decimal.NewFromInt(50), Active: true},
		{ID: "prod-flower-haze", SKU: "FLW-002", Name: "Silver Haze Flower", Category: "Flower", Unit: "gram", BasePrice: decimal.NewFromInt(14), RequiresFractionalQuantity: true, ReorderThreshold: decimal.NewFromInt(40), Active: true},
		{ID: "prod-preroll", SKU: "PRE-001", Name: "Classic Preroll", Category: "Preroll", Unit: "unit", BasePrice: decimal.NewFromInt(8), ReorderThreshold: decimal.NewFromInt(20), Active: true},
		{ID: "prod-edible-gummy", SKU: "EDB-001", Name: "Berry Gummies 10pk", Category: "Edible", Unit: "unit", BasePrice: decimal.NewFromInt(25), ReorderThreshold: decimal.NewFromInt(15), Active: true},
		{ID: "prod-tincture", SKU: "TNC-001", Name: "CBD Tincture 30ml", Category: "Tincture", Unit: "unit", BasePrice: decimal.NewFromInt(45), ReorderThreshold: decimal.NewFromInt(10), Active: true},
	}
	for i := range products {
		products[i].CreatedAt = now
		products[i].UpdatedAt = now
		s.products[products[i].ID] = products[i]
	}

	batches := []domain.Batch{
		{ID: "batch-og-1", ProductID: "prod-flower-og", BatchNumber: "B-2401", QtyReceived: decimal.NewFromInt(100), QtyRemaining: decimal.NewFromInt(100), CostPerUnit: decimal.NewFromInt(5), Status: domain.BatchStatusActive, ReceivedAt: now.Add(-72 * time.Hour)},
		{ID: "batch-og-2", ProductID: "prod-flower-og", BatchNumber: "B-2402", QtyReceived: decimal.NewFromInt(80), QtyRemaining: decimal.NewFromInt(80), CostPerUnit: decimal.NewFromInt(6), Status: domain.BatchStatusActive, ReceivedAt: now.Add(-24 * time.Hour)},
		{ID: "batch-preroll-1", ProductID: "prod-preroll", BatchNumber: "B-2403", QtyReceived: decimal.NewFromInt(200), QtyRemaining: decimal.NewFromInt(200), CostPerUnit: decimal.NewFromInt(3), Status: domain.BatchStatusActive, ReceivedAt: now.Add(-48 * time.Hour)},
	}
	for _, b := range batches {
		s.batchesByID[b.ID] = b
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	products := make([]domain.Product, 0, 8)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if needle == "" ||
			strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.SKU), needle) {
			products = append(products, p)
		}
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpString(a.Name, b.Name)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.SKU == "" || product.Name == "" || product.Unit == "" || product.BasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrInvalidTransaction
	}
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrInvalidTransaction
		}
	}

	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	now := time.Now().UTC()
	product.Active = true
	product.CreatedAt = now
	product.UpdatedAt = now
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.BasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrInvalidTransaction
	}
	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}

	product.UpdatedAt = time.Now().UTC()
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

// FetchActiveBatches returns batches with remaining quantity for one
// product, newest received first.
func (s *Store) FetchActiveBatches(_ context.Context, productID string) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.Batch, 0, 4)
	for _, b := range s.batchesByID {
		if b.ProductID != productID {
			continue
		}
		if b.QtyRemaining.LessThanOrEqual(decimal.Zero) {
			continue
		}
		batches = append(batches, b)
	}

	slices.SortFunc(batches, func(a, b domain.Batch) int {
		if a.ReceivedAt.Equal(b.ReceivedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.ReceivedAt.After(b.ReceivedAt) {
			return -1
		}
		return 1
	})
	return batches, nil
}

func (s *Store) DecrementBatch(_ context.Context, batchID string, qty decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, exists := s.batchesByID[batchID]
	if !exists {
		return store.ErrNotFound
	}
	if qty.LessThanOrEqual(decimal.Zero) {
		return store.ErrInvalidTransaction
	}
	if batch.QtyRemaining.LessThan(qty) {
		return store.ErrInsufficientStock
	}

	batch.QtyRemaining = batch.QtyRemaining.Sub(qty)
	if batch.QtyRemaining.LessThanOrEqual(decimal.Zero) {
		batch.Status = domain.BatchStatusDepleted
	}
	s.batchesByID[batchID] = batch
	return nil
}

func (s *Store) SumRemainingQuantity(_ context.Context, productID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, b := range s.batchesByID {
		if b.ProductID == productID {
			total = total.Add(b.QtyRemaining)
		}
	}
	return total, nil
}

func (s *Store) CreateBatch(_ context.Context, batch domain.Batch) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if batch.ProductID == "" || batch.QtyReceived.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrInvalidTransaction
	}
	if _, exists := s.products[batch.ProductID]; !exists {
		return nil, store.ErrNotFound
	}

	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = time.Now().UTC()
	}
	batch.QtyRemaining = batch.QtyReceived
	batch.Status = domain.BatchStatusActive
	s.batchesByID[batch.ID] = batch
	created := batch
	return &created, nil
}

func (s *Store) ListBatches(_ context.Context, productID string, limit int) ([]domain.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.Batch, 0, 8)
	for _, b := range s.batchesByID {
		if productID != "" && b.ProductID != productID {
			continue
		}
		batches = append(batches, b)
	}

	slices.SortFunc(batches, func(a, b domain.Batch) int {
		if a.ReceivedAt.Equal(b.ReceivedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.ReceivedAt.After(b.ReceivedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}
	return batches, nil
}

func (s *Store) ListLowStock(_ context.Context) ([]domain.LowStockItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.LowStockItem, 0, 4)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		remaining := decimal.Zero
		for _, b := range s.batchesByID {
			if b.ProductID == p.ID {
				remaining = remaining.Add(b.QtyRemaining)
			}
		}
		if remaining.LessThanOrEqual(p.ReorderThreshold) {
			items = append(items, domain.LowStockItem{Product: p, QtyRemaining: remaining})
		}
	}

	slices.SortFunc(items, func(a, b domain.LowStockItem) int {
		return cmpString(a.Product.Name, b.Product.Name)
	})
	return items, nil
}

func (s *Store) InsertTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.IdempotencyKey != "" {
		if existing, exists := s.transactionsByIdem[tx.IdempotencyKey]; exists {
			return cloneTransaction(existing), nil
		}
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.Items = nil

	stored := cloneTransaction(&tx)
	s.transactionsByID[tx.ID] = stored
	if tx.IdempotencyKey != "" {
		s.transactionsByIdem[tx.IdempotencyKey] = stored
	}
	return cloneTransaction(stored), nil
}

func (s *Store) InsertTransactionLineItem(_ context.Context, item domain.TransactionLineItem) (*domain.TransactionLineItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactionsByID[item.TransactionID]; !exists {
		return nil, store.ErrNotFound
	}
	if item.ID == "" {
		item.ID = xid.New("txi")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	stored := cloneLineItem(item)
	s.lineItemsByTx[item.TransactionID] = append(s.lineItemsByTx[item.TransactionID], stored)
	created := cloneLineItem(stored)
	return &created, nil
}

func (s *Store) FindTransactionByIdempotency(_ context.Context, key string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByIdem[key]
	if !exists {
		return nil, store.ErrNotFound
	}
	return s.withItems(tx), nil
}

func (s *Store) FindTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return s.withItems(tx), nil
}

func (s *Store) ListTransactions(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, 16)
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		result = append(result, *s.withItems(tx))
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) GetDailyReport(_ context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{
		Date:       from.Format("2006-01-02"),
		GrossSales: decimal.Zero,
	}
	byPayment := map[string]*domain.DailyReportPayment{}
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		report.Transactions++
		report.GrossSales = report.GrossSales.Add(tx.TotalAmount)
		entry, exists := byPayment[tx.PaymentMethod]
		if !exists {
			entry = &domain.DailyReportPayment{PaymentMethod: tx.PaymentMethod, Total: decimal.Zero}
			byPayment[tx.PaymentMethod] = entry
		}
		entry.Transactions++
		entry.Total = entry.Total.Add(tx.TotalAmount)
	}

	for _, entry := range byPayment {
		report.ByPayment = append(report.ByPayment, *entry)
	}
	slices.SortFunc(report.ByPayment, func(a, b domain.DailyReportPayment) int {
		return cmpString(a.PaymentMethod, b.PaymentMethod)
	})
	return report, nil
}

func (s *Store) CreateShift(_ context.Context, shift domain.Shift) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if shift.UserID == "" {
		return nil, store.ErrInvalidTransaction
	}
	if _, exists := s.activeShiftByUser[shift.UserID]; exists {
		return nil, store.ErrInvalidTransaction
	}

	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen
	s.shiftsByID[shift.ID] = shift
	s.activeShiftByUser[shift.UserID] = shift.ID
	created := shift
	return &created, nil
}

func (s *Store) CloseActiveShift(_ context.Context, userID string, closingCash decimal.Decimal, closedAt time.Time) (*domain.Shift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	shiftID, exists := s.activeShiftByUser[userID]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift := s.shiftsByID[shiftID]
	shift.Status = domain.ShiftStatusClosed
	shift.ClosingCash = closingCash
	at := closedAt
	shift.ClosedAt = &at
	s.shiftsByID[shiftID] = shift
	delete(s.activeShiftByUser, userID)
	closed := shift
	return &closed, nil
}

func (s *Store) GetActiveShift(_ context.Context, userID string) (*domain.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shiftID, exists := s.activeShiftByUser[userID]
	if !exists {
		return nil, store.ErrNotFound
	}
	shift := s.shiftsByID[shiftID]
	return &shift, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 32)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}

	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidTransaction
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidTransaction
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

// withItems assembles a detached copy of the transaction with its line
// items in insert order. Caller must hold at least the read lock.
func (s *Store) withItems(tx *domain.Transaction) *domain.Transaction {
	out := cloneTransaction(tx)
	items := s.lineItemsByTx[tx.ID]
	out.Items = make([]domain.TransactionLineItem, 0, len(items))
	for _, item := range items {
		out.Items = append(out.Items, cloneLineItem(item))
	}
	return out
}

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	out := *tx
	out.Items = make([]domain.TransactionLineItem, 0, len(tx.Items))
	for _, item := range tx.Items {
		out.Items = append(out.Items, cloneLineItem(item))
	}
	return &out
}

func cloneLineItem(item domain.TransactionLineItem) domain.TransactionLineItem {
	out := item
	out.Allocations = make([]domain.Allocation, len(item.Allocations))
	copy(out.Allocations, item.Allocations)
	return out
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

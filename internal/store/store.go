package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	// FetchActiveBatches returns batches with remaining quantity for one
	// product, newest received first. Allocation walks this order.
	FetchActiveBatches(ctx context.Context, productID string) ([]domain.Batch, error)
	// DecrementBatch atomically reduces a batch's remaining quantity.
	// It fails with ErrInsufficientStock rather than going negative.
	DecrementBatch(ctx context.Context, batchID string, qty decimal.Decimal) error
	// SumRemainingQuantity aggregates remaining stock across all of a
	// product's batches server-side.
	SumRemainingQuantity(ctx context.Context, productID string) (decimal.Decimal, error)
	CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error)
	ListBatches(ctx context.Context, productID string, limit int) ([]domain.Batch, error)
	ListLowStock(ctx context.Context) ([]domain.LowStockItem, error)

	InsertTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	InsertTransactionLineItem(ctx context.Context, item domain.TransactionLineItem) (*domain.TransactionLineItem, error)
	FindTransactionByIdempotency(ctx context.Context, key string) (*domain.Transaction, error)
	FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error)
	GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error)

	CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error)
	CloseActiveShift(ctx context.Context, userID string, closingCash decimal.Decimal, closedAt time.Time) (*domain.Shift, error)
	GetActiveShift(ctx context.Context, userID string) (*domain.Shift, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

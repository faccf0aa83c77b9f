package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleCashier = "cashier"
	RoleManager = "manager"
)

// Batch status labels. Allocation decisions key on QtyRemaining, not on
// Status; the label is kept current for reporting only.
const (
	BatchStatusActive   = "Active"
	BatchStatusDepleted = "Depleted"
)

const (
	ShiftStatusOpen   = "open"
	ShiftStatusClosed = "closed"
)

const (
	PaymentCash   = "Cash"
	PaymentCard   = "Card"
	PaymentQRCode = "QR Code"
)

// Product is a sellable catalog entry. Products sold by weight carry
// RequiresFractionalQuantity so carts accept tenth-of-a-unit amounts.
type Product struct {
	ID                         string          `json:"id"`
	SKU                        string          `json:"sku"`
	Name                       string          `json:"name"`
	Category                   string          `json:"category"`
	Unit                       string          `json:"unit"`
	BasePrice                  decimal.Decimal `json:"base_price"`
	RequiresFractionalQuantity bool            `json:"requires_fractional_quantity"`
	ReorderThreshold           decimal.Decimal `json:"reorder_threshold"`
	Active                     bool            `json:"active"`
	CreatedAt                  time.Time       `json:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at"`
}

type ProductCreateRequest struct {
	SKU                        string          `json:"sku"`
	Name                       string          `json:"name"`
	Category                   string          `json:"category"`
	Unit                       string          `json:"unit"`
	BasePrice                  decimal.Decimal `json:"base_price"`
	RequiresFractionalQuantity bool            `json:"requires_fractional_quantity"`
	ReorderThreshold           decimal.Decimal `json:"reorder_threshold"`
}

type ProductUpdateRequest struct {
	Name             *string          `json:"name,omitempty"`
	Category         *string          `json:"category,omitempty"`
	BasePrice        *decimal.Decimal `json:"base_price,omitempty"`
	ReorderThreshold *decimal.Decimal `json:"reorder_threshold,omitempty"`
	Active           *bool            `json:"active,omitempty"`
}

// Batch is a received lot of a product. QtyRemaining is decremented as
// sales allocate against it; cost is captured per batch so each sale
// records the cost of the exact stock it consumed.
type Batch struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"product_id"`
	BatchNumber  string          `json:"batch_number"`
	QtyReceived  decimal.Decimal `json:"quantity_received"`
	QtyRemaining decimal.Decimal `json:"quantity_remaining"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	Status       string          `json:"status"`
	ReceivedAt   time.Time       `json:"received_at"`
}

// Allocation records how much of one sale line was drawn from one batch,
// at that batch's unit cost. Allocations are immutable once written and
// persist alongside the line item they belong to.
type Allocation struct {
	BatchID      string          `json:"batch_id"`
	QtyAllocated decimal.Decimal `json:"quantity_allocated"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
}

// CartLine is one product's entry in a cart. UnitPrice is captured when
// the product is first added and does not track later catalog changes.
type CartLine struct {
	Product   Product         `json:"product"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Transaction is a committed sale. Immutable once written.
type Transaction struct {
	ID             string                `json:"id"`
	IdempotencyKey string                `json:"idempotency_key,omitempty"`
	UserID         string                `json:"user_id"`
	ShiftID        string                `json:"shift_id,omitempty"`
	LocationID     string                `json:"location_id,omitempty"`
	TotalAmount    decimal.Decimal       `json:"total_amount"`
	PaymentMethod  string                `json:"payment_method"`
	CreatedAt      time.Time             `json:"created_at"`
	Items          []TransactionLineItem `json:"items,omitempty"`
}

// TransactionLineItem is one sold line with the batch allocations that
// sourced it. Allocations round-trip exactly through persistence.
type TransactionLineItem struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Allocations   []Allocation    `json:"allocations"`
	CreatedAt     time.Time       `json:"created_at"`
}

type CreateTransactionRequest struct {
	IdempotencyKey string `json:"idempotency_key"`
	UserID         string `json:"user_id"`
	ShiftID        string `json:"shift_id"`
	LocationID     string `json:"location_id"`
	PaymentMethod  string `json:"payment_method"`
}

// Shift is a cashier session sales attach to.
type Shift struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	CashierName  string          `json:"cashier_name"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
	ClosingCash  decimal.Decimal `json:"closing_cash"`
	Status       string          `json:"status"`
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`
}

type ShiftOpenRequest struct {
	CashierName  string          `json:"cashier_name"`
	OpeningFloat decimal.Decimal `json:"opening_float"`
}

type ShiftCloseRequest struct {
	ClosingCash decimal.Decimal `json:"closing_cash"`
	Notes       string          `json:"notes"`
}

type ShiftResponse struct {
	Shift Shift `json:"shift"`
}

type ReceiveBatchRequest struct {
	ProductID   string          `json:"product_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

type BatchListResponse struct {
	Batches []Batch `json:"batches"`
}

// LowStockItem is a product whose summed remaining quantity sits at or
// below its reorder threshold.
type LowStockItem struct {
	Product      Product         `json:"product"`
	QtyRemaining decimal.Decimal `json:"quantity_remaining"`
}

type DailyReportPayment struct {
	PaymentMethod string          `json:"payment_method"`
	Transactions  int64           `json:"transactions"`
	Total         decimal.Decimal `json:"total"`
}

type DailyReport struct {
	Date         string               `json:"date"`
	Transactions int64                `json:"transactions"`
	GrossSales   decimal.Decimal      `json:"gross_sales"`
	ByPayment    []DailyReportPayment `json:"by_payment"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// ValidationError marks a business input problem. Callers never retry it.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Msg: msg}
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"greenleafpos/backend/internal/domain"
	"greenleafpos/backend/internal/store"
	"greenleafpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, unit, base_price, requires_fractional_quantity, reorder_threshold, active, created_at, updated_at
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, unit, base_price, requires_fractional_quantity, reorder_threshold, active, created_at, updated_at
		FROM products
		WHERE active = true AND (lower(name) LIKE $1 OR lower(sku) LIKE $1)
		ORDER BY name
	`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (s *Store) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, unit, base_price, requires_fractional_quantity, reorder_threshold, active, created_at, updated_at
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.BasePrice,
		&p.RequiresFractionalQuantity, &p.ReorderThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.SKU == "" || product.Name == "" || product.Unit == "" || product.BasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrInvalidTransaction
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	product.Active = true
	now := time.Now().UTC()
	product.CreatedAt = now
	product.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, category, unit, base_price, requires_fractional_quantity, reorder_threshold, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, product.ID, product.SKU, product.Name, product.Category, product.Unit, product.BasePrice,
		product.RequiresFractionalQuantity, product.ReorderThreshold, product.Active, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.BasePrice.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrInvalidTransaction
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, base_price = $4, reorder_threshold = $5, active = $6, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.BasePrice, product.ReorderThreshold, product.Active)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProduct(ctx, product.ID)
}

func (s *Store) FetchActiveBatches(ctx context.Context, productID string) ([]domain.Batch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, batch_number, quantity_received, quantity_remaining, cost_per_unit, status, received_at
		FROM batches
		WHERE product_id = $1 AND quantity_remaining > 0
		ORDER BY received_at DESC, id
	`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBatches(rows)
}

// DecrementBatch is a single conditional UPDATE so remaining quantity
// can never be driven negative by concurrent sales.
func (s *Store) DecrementBatch(ctx context.Context, batchID string, qty decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return store.ErrInvalidTransaction
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE batches
		SET quantity_remaining = quantity_remaining - $2,
		    status = CASE WHEN quantity_remaining - $2 <= 0 THEN 'Depleted' ELSE status END
		WHERE id = $1 AND quantity_remaining >= $2
	`, batchID, qty)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM batches WHERE id = $1)`, batchID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
		return store.ErrInsufficientStock
	}
	return nil
}

func (s *Store) SumRemainingQuantity(ctx context.Context, productID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity_remaining), 0)
		FROM batches
		WHERE product_id = $1
	`, productID).Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (s *Store) CreateBatch(ctx context.Context, batch domain.Batch) (*domain.Batch, error) {
	if batch.ProductID == "" || batch.QtyReceived.LessThanOrEqual(decimal.Zero) {
		return nil, store.ErrInvalidTransaction
	}
	if batch.ID == "" {
		batch.ID = xid.New("batch")
	}
	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = time.Now().UTC()
	}
	batch.QtyRemaining = batch.QtyReceived
	batch.Status = domain.BatchStatusActive

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO batches (id, product_id, batch_number, quantity_received, quantity_remaining, cost_per_unit, status, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, batch.ID, batch.ProductID, batch.BatchNumber, batch.QtyReceived, batch.QtyRemaining,
		batch.CostPerUnit, batch.Status, batch.ReceivedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := batch
	return &created, nil
}

func (s *Store) ListBatches(ctx context.Context, productID string, limit int) ([]domain.Batch, error) {
	if limit < 1 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if productID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, product_id, batch_number, quantity_received, quantity_remaining, cost_per_unit, status, received_at
			FROM batches
			ORDER BY received_at DESC, id
			LIMIT $1
		`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, product_id, batch_number, quantity_received, quantity_remaining, cost_per_unit, status, received_at
			FROM batches
			WHERE product_id = $1
			ORDER BY received_at DESC, id
			LIMIT $2
		`, productID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBatches(rows)
}

func (s *Store) ListLowStock(ctx context.Context) ([]domain.LowStockItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.sku, p.name, p.category, p.unit, p.base_price, p.requires_fractional_quantity, p.reorder_threshold, p.active, p.created_at, p.updated_at,
		       COALESCE(SUM(b.quantity_remaining), 0) AS remaining
		FROM products p
		LEFT JOIN batches b ON b.product_id = p.id
		WHERE p.active = true
		GROUP BY p.id, p.sku, p.name, p.category, p.unit, p.base_price, p.requires_fractional_quantity, p.reorder_threshold, p.active, p.created_at, p.updated_at
		HAVING COALESCE(SUM(b.quantity_remaining), 0) <= p.reorder_threshold
		ORDER BY p.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LowStockItem, 0, 16)
	for rows.Next() {
		var item domain.LowStockItem
		p := &item.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.BasePrice,
			&p.RequiresFractionalQuantity, &p.ReorderThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt,
			&item.QtyRemaining); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, idempotency_key, user_id, shift_id, location_id, total_amount, payment_method, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, tx.ID, nullIfEmpty(tx.IdempotencyKey), tx.UserID, nullIfEmpty(tx.ShiftID),
		nullIfEmpty(tx.LocationID), tx.TotalAmount, tx.PaymentMethod, tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) && tx.IdempotencyKey != "" {
			existing, lookupErr := s.FindTransactionByIdempotency(ctx, tx.IdempotencyKey)
			if lookupErr == nil {
				return existing, nil
			}
		}
		return nil, err
	}

	created := tx
	created.Items = nil
	return &created, nil
}

func (s *Store) InsertTransactionLineItem(ctx context.Context, item domain.TransactionLineItem) (*domain.TransactionLineItem, error) {
	if item.TransactionID == "" || item.ProductID == "" {
		return nil, store.ErrInvalidTransaction
	}
	if item.ID == "" {
		item.ID = xid.New("txi")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	allocations, err := json.Marshal(item.Allocations)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transaction_line_items (id, transaction_id, product_id, quantity, unit_price, line_total, allocations, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, item.ID, item.TransactionID, item.ProductID, item.Quantity, item.UnitPrice,
		item.LineTotal, allocations, item.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) FindTransactionByIdempotency(ctx context.Context, key string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, `WHERE idempotency_key = $1`, key)
}

func (s *Store) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, `WHERE id = $1`, id)
}

func (s *Store) findTransaction(ctx context.Context, where string, arg any) (*domain.Transaction, error) {
	var (
		tx       domain.Transaction
		idem     sql.NullString
		shift    sql.NullString
		location sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, user_id, shift_id, location_id, total_amount, payment_method, created_at
		FROM transactions
	`+where, arg).Scan(&tx.ID, &idem, &tx.UserID, &shift, &location, &tx.TotalAmount, &tx.PaymentMethod, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.IdempotencyKey = idem.String
	tx.ShiftID = shift.String
	tx.LocationID = location.String

	items, err := s.lineItems(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	tx.Items = items
	return &tx, nil
}

func (s *Store) lineItems(ctx context.Context, transactionID string) ([]domain.TransactionLineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, product_id, quantity, unit_price, line_total, allocations, created_at
		FROM transaction_line_items
		WHERE transaction_id = $1
		ORDER BY created_at, id
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TransactionLineItem, 0, 4)
	for rows.Next() {
		var (
			item    domain.TransactionLineItem
			rawJSON []byte
		)
		if err := rows.Scan(&item.ID, &item.TransactionID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.LineTotal, &rawJSON, &item.CreatedAt); err != nil {
			return nil, err
		}
		if len(rawJSON) > 0 {
			if err := json.Unmarshal(rawJSON, &item.Allocations); err != nil {
				return nil, err
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListTransactions(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Transaction, error) {
	query := `
		SELECT id, idempotency_key, user_id, shift_id, location_id, total_amount, payment_method, created_at
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id`
	args := []any{from, to}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, 32)
	for rows.Next() {
		var (
			tx       domain.Transaction
			idem     sql.NullString
			shift    sql.NullString
			location sql.NullString
		)
		if err := rows.Scan(&tx.ID, &idem, &tx.UserID, &shift, &location, &tx.TotalAmount, &tx.PaymentMethod, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.IdempotencyKey = idem.String
		tx.ShiftID = shift.String
		tx.LocationID = location.String
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range transactions {
		items, err := s.lineItems(ctx, transactions[i].ID)
		if err != nil {
			return nil, err
		}
		transactions[i].Items = items
	}
	return transactions, nil
}

func (s *Store) GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	report := domain.DailyReport{
		Date:       from.Format("2006-01-02"),
		GrossSales: decimal.Zero,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY payment_method
	`, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var row domain.DailyReportPayment
		if err := rows.Scan(&row.PaymentMethod, &row.Transactions, &row.Total); err != nil {
			return domain.DailyReport{}, err
		}
		report.ByPayment = append(report.ByPayment, row)
		report.Transactions += row.Transactions
		report.GrossSales = report.GrossSales.Add(row.Total)
	}
	if err := rows.Err(); err != nil {
		return domain.DailyReport{}, err
	}
	return report, nil
}

func (s *Store) CreateShift(ctx context.Context, shift domain.Shift) (*domain.Shift, error) {
	if shift.UserID == "" {
		return nil, store.ErrInvalidTransaction
	}
	if shift.ID == "" {
		shift.ID = xid.New("shift")
	}
	if shift.OpenedAt.IsZero() {
		shift.OpenedAt = time.Now().UTC()
	}
	shift.Status = domain.ShiftStatusOpen

	// A partial unique index on (user_id) WHERE status = 'open' enforces
	// one open shift per user.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts (id, user_id, cashier_name, opening_float, closing_cash, status, opened_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, shift.ID, shift.UserID, shift.CashierName, shift.OpeningFloat, decimal.Zero, shift.Status, shift.OpenedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidTransaction
		}
		return nil, err
	}

	created := shift
	return &created, nil
}

func (s *Store) CloseActiveShift(ctx context.Context, userID string, closingCash decimal.Decimal, closedAt time.Time) (*domain.Shift, error) {
	var shift domain.Shift
	var closed sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		UPDATE shifts
		SET status = $2, closing_cash = $3, closed_at = $4
		WHERE user_id = $1 AND status = $5
		RETURNING id, user_id, cashier_name, opening_float, closing_cash, status, opened_at, closed_at
	`, userID, domain.ShiftStatusClosed, closingCash, closedAt, domain.ShiftStatusOpen).Scan(
		&shift.ID, &shift.UserID, &shift.CashierName, &shift.OpeningFloat,
		&shift.ClosingCash, &shift.Status, &shift.OpenedAt, &closed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if closed.Valid {
		at := closed.Time
		shift.ClosedAt = &at
	}
	return &shift, nil
}

func (s *Store) GetActiveShift(ctx context.Context, userID string) (*domain.Shift, error) {
	var shift domain.Shift
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, cashier_name, opening_float, closing_cash, status, opened_at
		FROM shifts
		WHERE user_id = $1 AND status = $2
	`, userID, domain.ShiftStatusOpen).Scan(
		&shift.ID, &shift.UserID, &shift.CashierName, &shift.OpeningFloat,
		&shift.ClosingCash, &shift.Status, &shift.OpenedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &shift, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType,
		entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC, id
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, 32)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidTransaction
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidTransaction
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password_hash, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.Unit, &p.BasePrice,
			&p.RequiresFractionalQuantity, &p.ReorderThreshold, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func scanBatches(rows *sql.Rows) ([]domain.Batch, error) {
	batches := make([]domain.Batch, 0, 16)
	for rows.Next() {
		var b domain.Batch
		if err := rows.Scan(&b.ID, &b.ProductID, &b.BatchNumber, &b.QtyReceived,
			&b.QtyRemaining, &b.CostPerUnit, &b.Status, &b.ReceivedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return batches, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

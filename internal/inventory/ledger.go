package inventory

import (
	"context"
	"database/sql"
	"time"

	"github.com/motoshop/order-service/internal/domain"
)

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Reserve and Release take it so order creation can fold stock mutations
// into its own transaction.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Ledger struct {
	db *sql.DB
}

func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) DB() *sql.DB { return l.db }

// Reserve decrements a product's available quantity and returns the new
// value. The check and decrement are a single conditional UPDATE, so the
// reservation never races past available stock regardless of whether q is a
// transaction or an autocommit *sql.DB. A failed reservation is classified
// with a follow-up read: missing row or not enough stock.
func (l *Ledger) Reserve(ctx context.Context, q Querier, productID string, qty int) (int, error) {
	var available int
	err := q.QueryRowContext(ctx, `
		UPDATE inventory
		SET available = available - $2, last_updated = NOW()
		WHERE product_id = $1 AND available >= $2
		RETURNING available
	`, productID, qty).Scan(&available)
	if err == nil {
		return available, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	var current int
	err = q.QueryRowContext(ctx, `
		SELECT available FROM inventory
		WHERE product_id = $1
	`, productID).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrProductNotFound
		}
		return 0, err
	}

	return 0, &domain.InsufficientStockError{
		ProductID: productID,
		Available: current,
		Requested: qty,
	}
}

// Release is the compensating inverse of Reserve.
func (l *Ledger) Release(ctx context.Context, q Querier, productID string, qty int) (int, error) {
	var available int
	err := q.QueryRowContext(ctx, `
		UPDATE inventory
		SET available = available + $2, last_updated = NOW()
		WHERE product_id = $1
		RETURNING available
	`, productID, qty).Scan(&available)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrProductNotFound
		}
		return 0, err
	}
	return available, nil
}

func (l *Ledger) Get(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	rec := &domain.InventoryRecord{}

	err := l.db.QueryRowContext(ctx, `
		SELECT product_id, available, location, last_updated
		FROM inventory
		WHERE product_id = $1
	`, productID).Scan(&rec.ProductID, &rec.Available, &rec.Location, &rec.LastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return rec, nil
}

func (l *Ledger) List(ctx context.Context) ([]domain.InventoryRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT product_id, available, location, last_updated
		FROM inventory
		ORDER BY product_id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ProductID, &rec.Available, &rec.Location, &rec.LastUpdated); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// Put creates or overwrites a product's inventory record. Admin surface, not
// part of the reserve/release path.
func (l *Ledger) Put(ctx context.Context, rec *domain.InventoryRecord) error {
	rec.LastUpdated = time.Now().UTC()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, available, location, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id)
		DO UPDATE SET available = $2, location = $3, last_updated = $4
	`, rec.ProductID, rec.Available, rec.Location, rec.LastUpdated)
	return err
}

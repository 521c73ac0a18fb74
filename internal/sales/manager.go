package sales

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/motoshop/order-service/internal/domain"
	"github.com/motoshop/order-service/internal/inventory"
)

type CreateRequest struct {
	BuyerID       string               `json:"buyer_id"`
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	// Status is accepted on the wire for compatibility but never honored;
	// every created order starts PENDING.
	Status domain.OrderStatus `json:"status,omitempty"`
	Lines  []LineRequest      `json:"lines"`
}

type LineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// Patch carries the mutable header fields of an order. Nil fields are left
// untouched. Lines and inventory are never reachable through a patch.
type Patch struct {
	Status        *domain.OrderStatus   `json:"status"`
	PaymentMethod *domain.PaymentMethod `json:"payment_method"`
}

// Manager persists orders and their stock reservations as one atomic unit.
type Manager struct {
	db     *sql.DB
	ledger *inventory.Ledger
}

func NewManager(db *sql.DB, ledger *inventory.Ledger) *Manager {
	return &Manager{db: db, ledger: ledger}
}

func validate(req CreateRequest) error {
	if req.BuyerID == "" {
		return &domain.ValidationError{Field: "buyer_id", Msg: "must not be empty"}
	}
	if len(req.Lines) == 0 {
		return &domain.ValidationError{Field: "lines", Msg: "at least one line is required"}
	}
	seen := make(map[string]bool, len(req.Lines))
	for _, line := range req.Lines {
		if line.ProductID == "" {
			return &domain.ValidationError{Field: "lines.product_id", Msg: "must not be empty"}
		}
		if seen[line.ProductID] {
			return &domain.ValidationError{Field: "lines.product_id", Msg: "duplicate product " + line.ProductID}
		}
		seen[line.ProductID] = true
		if line.Quantity < 1 {
			return &domain.ValidationError{Field: "lines.quantity", Msg: "must be at least 1"}
		}
		if line.UnitPrice < 0 {
			return &domain.ValidationError{Field: "lines.unit_price", Msg: "must not be negative"}
		}
	}
	return nil
}

// Create reserves stock for every line and persists the order header plus
// all lines inside a single transaction. If any line cannot be reserved the
// whole call rolls back, including reservations made for earlier lines, and
// the specific failure is returned. The order is born PENDING.
func (m *Manager) Create(ctx context.Context, req CreateRequest) (*domain.Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:            uuid.New().String(),
		BuyerID:       req.BuyerID,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.OrderStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	for _, line := range req.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Subtotal:  int64(line.Quantity) * line.UnitPrice,
		})
		order.Total += int64(line.Quantity) * line.UnitPrice
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, buyer_id, payment_method, status, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.BuyerID, order.PaymentMethod, order.Status, order.Total, order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, line := range order.Lines {
		if _, err := m.ledger.Reserve(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5)
		`, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit order transaction: %w", err)
	}

	return order, nil
}

func (m *Manager) FindOne(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := m.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, payment_method, status, total, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.BuyerID, &order.PaymentMethod, &order.Status, &order.Total, &order.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, unit_price, subtotal
		FROM order_lines
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(&line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (m *Manager) FindByBuyer(ctx context.Context, buyerID string) ([]domain.Order, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, buyer_id, payment_method, status, total, created_at
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC
	`, buyerID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.BuyerID, &order.PaymentMethod, &order.Status, &order.Total, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Lines = []domain.OrderLine{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := m.db.QueryContext(ctx, `
		SELECT order_id, product_id, quantity, unit_price, subtotal
		FROM order_lines
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var line domain.OrderLine
		if err := lineRows.Scan(&line.OrderID, &line.ProductID, &line.Quantity, &line.UnitPrice, &line.Subtotal); err != nil {
			return nil, err
		}
		order := orderMap[line.OrderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// Update patches mutable header fields only. Status changes must follow the
// PENDING -> PAID / PENDING -> CANCELLED machine; anything else is rejected.
// The write is guarded on the status that was read, so an update racing a
// concurrent transition (a capture against the sweeper's cancel) has a single
// winner and the loser gets ErrNotPending.
func (m *Manager) Update(ctx context.Context, id string, patch Patch) (*domain.Order, error) {
	order, err := m.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	readStatus := order.Status

	if patch.Status != nil {
		if !domain.ValidTransition(order.Status, *patch.Status) {
			return nil, &domain.ValidationError{
				Field: "status",
				Msg:   fmt.Sprintf("cannot transition from %s to %s", order.Status, *patch.Status),
			}
		}
		order.Status = *patch.Status
	}
	if patch.PaymentMethod != nil {
		order.PaymentMethod = *patch.PaymentMethod
	}

	result, err := m.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, payment_method = $2
		WHERE id = $3 AND status = $4
	`, order.Status, order.PaymentMethod, id, readStatus)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, domain.ErrNotPending
	}

	return order, nil
}

// Remove deletes the order and its lines. Stock reserved by the order is not
// restored here; that is the legacy behavior this system preserves. Use
// Cancel for the compensating path.
func (m *Manager) Remove(ctx context.Context, id string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = $1`, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}

	return tx.Commit()
}

// Cancel transitions a PENDING order to CANCELLED and releases every line's
// reservation inside one transaction. The UPDATE's status guard makes
// concurrent cancels (or a cancel racing a capture) a single winner.
func (m *Manager) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	order, err := m.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2 AND status = $3
	`, domain.OrderStatusCancelled, id, domain.OrderStatusPending)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, domain.ErrNotPending
	}

	for _, line := range order.Lines {
		if _, err := m.ledger.Release(ctx, tx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Status = domain.OrderStatusCancelled
	return order, nil
}

// FindStalePending lists PENDING orders created before the cutoff. The
// reconciliation sweeper cancels these to return their reserved stock.
func (m *Manager) FindStalePending(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
	`, domain.OrderStatusPending, olderThan)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

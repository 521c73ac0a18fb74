package payments

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/motoshop/order-service/internal/domain"
)

var ErrSessionNotFound = errors.New("payment session not found")

// SessionRepository persists the one-to-one link between a local order and
// the provider's checkout order while a payment is in flight.
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.PaymentSession) error {
	session.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payment_sessions (order_id, external_order_id, approval_url, external_status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.OrderID, session.ExternalOrderID, session.ApprovalURL, session.ExternalStatus, session.CreatedAt)
	return err
}

func (r *SessionRepository) GetByExternalID(ctx context.Context, externalOrderID string) (*domain.PaymentSession, error) {
	session := &domain.PaymentSession{}
	var captureToken sql.NullString
	var capturedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, `
		SELECT order_id, external_order_id, approval_url, external_status, capture_token, captured_at, created_at
		FROM payment_sessions
		WHERE external_order_id = $1
	`, externalOrderID).Scan(
		&session.OrderID, &session.ExternalOrderID, &session.ApprovalURL,
		&session.ExternalStatus, &captureToken, &capturedAt, &session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	session.CaptureToken = captureToken.String
	if capturedAt.Valid {
		t := capturedAt.Time
		session.CapturedAt = &t
	}

	return session, nil
}

func (r *SessionRepository) SetExternalStatus(ctx context.Context, externalOrderID, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payment_sessions SET external_status = $2
		WHERE external_order_id = $1
	`, externalOrderID, status)
	return err
}

// ClaimCapture stamps the session captured with the attempt's token, but
// only if no prior attempt got there first. Returns false when the session
// was already captured, which makes replayed captures no-ops.
func (r *SessionRepository) ClaimCapture(ctx context.Context, externalOrderID, token, status string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payment_sessions
		SET captured_at = NOW(), capture_token = $2, external_status = $3
		WHERE external_order_id = $1 AND captured_at IS NULL
	`, externalOrderID, token, status)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected == 1, nil
}

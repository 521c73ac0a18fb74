package domain

import "time"

// PaymentSession links an order to the external provider's checkout order
// while the payment is in flight. One session per order; the external order
// id is unique across sessions. CapturedAt is set exactly once by the first
// successful capture, so replayed capture calls become no-ops.
type PaymentSession struct {
	OrderID         string     `json:"order_id"`
	ExternalOrderID string     `json:"external_order_id"`
	ApprovalURL     string     `json:"approval_url"`
	ExternalStatus  string     `json:"external_status"`
	CaptureToken    string     `json:"-"`
	CapturedAt      *time.Time `json:"captured_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

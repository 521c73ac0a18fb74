package domain

import "time"

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
)

// OrderEvent is the single envelope published for every order lifecycle
// change. The partition key is the order id, so events for one order stay
// ordered.
type OrderEvent struct {
	EventID   string      `json:"event_id"`
	Type      string      `json:"type"`
	OrderID   string      `json:"order_id"`
	BuyerID   string      `json:"buyer_id"`
	Status    OrderStatus `json:"status"`
	Total     int64       `json:"total"`
	Lines     []OrderLine `json:"lines,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

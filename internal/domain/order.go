package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusPaid      OrderStatus = "PAID"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ValidTransition reports whether an order may move from one status to
// another. PENDING is the only non-terminal status.
func ValidTransition(from, to OrderStatus) bool {
	if from == to {
		return false
	}
	return from == OrderStatusPending && (to == OrderStatusPaid || to == OrderStatusCancelled)
}

type PaymentMethod string

const (
	PaymentMethodInternal PaymentMethod = "internal"
	PaymentMethodPayPal   PaymentMethod = "paypal"
)

// OrderLine is one product entry within an order. Lines are written once at
// order creation and never mutated afterwards. Prices are in cents.
type OrderLine struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

type Order struct {
	ID            string        `json:"id"`
	BuyerID       string        `json:"buyer_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	Total         int64         `json:"total"`
	Lines         []OrderLine   `json:"lines"`
	CreatedAt     time.Time     `json:"created_at"`
}

package domain

import (
	"errors"
	"testing"
)

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusPending, false},
		{OrderStatusPaid, OrderStatusPending, false},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
	}

	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestGatewayErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &GatewayError{Op: "create order", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected GatewayError to unwrap to its cause")
	}

	var gatewayErr *GatewayError
	if !errors.As(error(err), &gatewayErr) {
		t.Error("expected errors.As to match *GatewayError")
	}
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := &InsufficientStockError{ProductID: "PROD-A", Available: 1, Requested: 5}

	want := "insufficient stock for product PROD-A: available 1, requested 5"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

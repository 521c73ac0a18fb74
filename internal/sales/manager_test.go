package sales

import (
	"context"
	"errors"
	"testing"

	"github.com/motoshop/order-service/internal/domain"
)

func TestCreateValidation(t *testing.T) {
	valid := CreateRequest{
		BuyerID:       "buyer-1",
		PaymentMethod: domain.PaymentMethodPayPal,
		Lines: []LineRequest{
			{ProductID: "PROD-A", Quantity: 2, UnitPrice: 1250},
		},
	}

	tests := []struct {
		name      string
		mutate    func(*CreateRequest)
		wantField string
	}{
		{
			name:      "missing buyer",
			mutate:    func(r *CreateRequest) { r.BuyerID = "" },
			wantField: "buyer_id",
		},
		{
			name:      "no lines",
			mutate:    func(r *CreateRequest) { r.Lines = nil },
			wantField: "lines",
		},
		{
			name: "duplicate product",
			mutate: func(r *CreateRequest) {
				r.Lines = append(r.Lines, LineRequest{ProductID: "PROD-A", Quantity: 1, UnitPrice: 500})
			},
			wantField: "lines.product_id",
		},
		{
			name:      "empty product id",
			mutate:    func(r *CreateRequest) { r.Lines[0].ProductID = "" },
			wantField: "lines.product_id",
		},
		{
			name:      "zero quantity",
			mutate:    func(r *CreateRequest) { r.Lines[0].Quantity = 0 },
			wantField: "lines.quantity",
		},
		{
			name:      "negative quantity",
			mutate:    func(r *CreateRequest) { r.Lines[0].Quantity = -3 },
			wantField: "lines.quantity",
		},
		{
			name:      "negative unit price",
			mutate:    func(r *CreateRequest) { r.Lines[0].UnitPrice = -1 },
			wantField: "lines.unit_price",
		},
	}

	// Validation runs before any database work, so a zero Manager is enough.
	manager := &Manager{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.Lines = append([]LineRequest(nil), valid.Lines...)
			tt.mutate(&req)

			_, err := manager.Create(context.Background(), req)

			var validationErr *domain.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, validationErr.Field)
			}
		})
	}
}

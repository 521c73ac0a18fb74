package paypal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/motoshop/order-service/internal/domain"
)

// fakeProvider mimics the provider's token, create and capture endpoints.
type fakeProvider struct {
	token         string
	orderID       string
	captureStatus string
	failAuth      bool
	failOrders    bool

	lastAuthHeader string
	lastOrderBody  map[string]any
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuthHeader = r.Header.Get("Authorization")

		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if f.failAuth {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": f.token,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.failOrders {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"name":"UNPROCESSABLE_ENTITY"}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&f.lastOrderBody)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     f.orderID,
			"status": "CREATED",
			"links": []map[string]string{
				{"href": "https://provider.test/self/" + f.orderID, "rel": "self"},
				{"href": "https://provider.test/approve/" + f.orderID, "rel": "approve"},
			},
		})
	})
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     r.PathValue("id"),
			"status": f.captureStatus,
		})
	})
	return mux
}

func newTestClient(t *testing.T, provider *fakeProvider) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(provider.handler(t))
	t.Cleanup(server.Close)

	return NewClient(server.URL, "client-id", "client-secret", server.Client()), server
}

func TestClient_Authenticate(t *testing.T) {
	t.Run("exchanges credentials for a token", func(t *testing.T) {
		provider := &fakeProvider{token: "tok-1"}
		client, _ := newTestClient(t, provider)

		token, err := client.Authenticate(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if token != "tok-1" {
			t.Errorf("expected token tok-1, got %s", token)
		}
		if provider.lastAuthHeader == "" {
			t.Error("expected basic auth header to be sent")
		}
	})

	t.Run("wraps auth rejection as gateway error", func(t *testing.T) {
		provider := &fakeProvider{token: "tok-1", failAuth: true}
		client, _ := newTestClient(t, provider)

		_, err := client.Authenticate(context.Background())
		var gatewayErr *domain.GatewayError
		if !errors.As(err, &gatewayErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
		if gatewayErr.Op != "authenticate" {
			t.Errorf("expected op authenticate, got %s", gatewayErr.Op)
		}
	})
}

func TestClient_CreateOrder(t *testing.T) {
	t.Run("creates order and extracts approval link", func(t *testing.T) {
		provider := &fakeProvider{token: "tok-1", orderID: "EXT-123"}
		client, _ := newTestClient(t, provider)

		order, err := client.CreateOrder(context.Background(), 2500, "https://shop.test/return", "https://shop.test/cancel")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if order.ID != "EXT-123" {
			t.Errorf("expected external order id EXT-123, got %s", order.ID)
		}
		if order.ApprovalURL != "https://provider.test/approve/EXT-123" {
			t.Errorf("unexpected approval url: %s", order.ApprovalURL)
		}

		units := provider.lastOrderBody["purchase_units"].([]any)
		amount := units[0].(map[string]any)["amount"].(map[string]any)
		if amount["value"] != "25.00" {
			t.Errorf("expected amount 25.00, got %v", amount["value"])
		}
		if provider.lastOrderBody["intent"] != "CAPTURE" {
			t.Errorf("expected intent CAPTURE, got %v", provider.lastOrderBody["intent"])
		}
		appCtx := provider.lastOrderBody["application_context"].(map[string]any)
		if appCtx["return_url"] != "https://shop.test/return" {
			t.Errorf("unexpected return_url: %v", appCtx["return_url"])
		}
		if appCtx["user_action"] != "PAY_NOW" {
			t.Errorf("unexpected user_action: %v", appCtx["user_action"])
		}
	})

	t.Run("wraps provider rejection as gateway error", func(t *testing.T) {
		provider := &fakeProvider{token: "tok-1", failOrders: true}
		client, _ := newTestClient(t, provider)

		_, err := client.CreateOrder(context.Background(), 2500, "https://shop.test/return", "https://shop.test/cancel")
		var gatewayErr *domain.GatewayError
		if !errors.As(err, &gatewayErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
	})

	t.Run("wraps timeout as gateway error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		client := NewClient(server.URL, "client-id", "client-secret", &http.Client{Timeout: 20 * time.Millisecond})

		_, err := client.CreateOrder(context.Background(), 2500, "https://shop.test/return", "https://shop.test/cancel")
		var gatewayErr *domain.GatewayError
		if !errors.As(err, &gatewayErr) {
			t.Fatalf("expected GatewayError, got %v", err)
		}
	})
}

func TestClient_CaptureOrder(t *testing.T) {
	t.Run("returns the provider status", func(t *testing.T) {
		provider := &fakeProvider{token: "tok-1", orderID: "EXT-123", captureStatus: "COMPLETED"}
		client, _ := newTestClient(t, provider)

		status, err := client.CaptureOrder(context.Background(), "EXT-123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status != "COMPLETED" {
			t.Errorf("expected COMPLETED, got %s", status)
		}
	})

	t.Run("passes non-success status through untouched", func(t *testing.T) {
		provider := &fakeProvider{token: "tok-1", orderID: "EXT-123", captureStatus: "DECLINED"}
		client, _ := newTestClient(t, provider)

		status, err := client.CaptureOrder(context.Background(), "EXT-123")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if status != "DECLINED" {
			t.Errorf("expected DECLINED, got %s", status)
		}
	})
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{2550, "25.50"},
		{999999, "9999.99"},
		{-150, "-1.50"},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d", tc.cents), func(t *testing.T) {
			if got := FormatAmount(tc.cents); got != tc.want {
				t.Errorf("FormatAmount(%d) = %s, want %s", tc.cents, got, tc.want)
			}
		})
	}
}

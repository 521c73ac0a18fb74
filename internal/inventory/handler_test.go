package inventory

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler() *Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(&Ledger{}, logger)
}

func TestHandleReserve_Validation(t *testing.T) {
	handler := newTestHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /stock/{productId}/reserve", handler.HandleReserve)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"quantity":`},
		{name: "zero quantity", body: `{"quantity": 0}`},
		{name: "negative quantity", body: `{"quantity": -4}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/stock/PROD-A/reserve", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestHandlePut_RejectsNegativeStock(t *testing.T) {
	handler := newTestHandler()

	mux := http.NewServeMux()
	mux.HandleFunc("PUT /stock/{productId}", handler.HandlePut)

	req := httptest.NewRequest(http.MethodPut, "/stock/PROD-A", strings.NewReader(`{"available": -1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/motoshop/order-service/internal/domain"
	"github.com/motoshop/order-service/internal/sales"
)

type Handler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

func NewHandler(orchestrator *Orchestrator, logger *slog.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type createOrderRequest struct {
	OrderData sales.CreateRequest `json:"order_data"`
	ReturnURL string              `json:"return_url"`
	CancelURL string              `json:"cancel_url"`
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReturnURL == "" || req.CancelURL == "" {
		h.writeError(w, http.StatusBadRequest, "return_url and cancel_url are required")
		return
	}

	result, err := h.orchestrator.CreateOrder(r.Context(), req.OrderData, req.ReturnURL, req.CancelURL)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

type captureOrderRequest struct {
	ExternalOrderID string `json:"external_order_id"`
	OrderID         string `json:"order_id"`
}

func (h *Handler) HandleCaptureOrder(w http.ResponseWriter, r *http.Request) {
	var req captureOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ExternalOrderID == "" || req.OrderID == "" {
		h.writeError(w, http.StatusBadRequest, "external_order_id and order_id are required")
		return
	}

	result, err := h.orchestrator.CaptureOrder(r.Context(), req.ExternalOrderID, req.OrderID)
	if err != nil {
		h.writeOrchestratorError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) writeOrchestratorError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var stockErr *domain.InsufficientStockError
	var gatewayErr *domain.GatewayError
	switch {
	case errors.As(err, &validationErr):
		h.writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &stockErr):
		h.writeError(w, http.StatusBadRequest, stockErr.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, domain.ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrSessionNotFound):
		h.writeError(w, http.StatusNotFound, "payment session not found")
	case errors.Is(err, domain.ErrNotPending):
		h.writeError(w, http.StatusConflict, "order is no longer pending")
	case errors.As(err, &gatewayErr):
		h.logger.Error("payment gateway failure", "error", err)
		h.writeError(w, http.StatusBadGateway, "payment provider unavailable")
	default:
		h.logger.Error("payment flow failure", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

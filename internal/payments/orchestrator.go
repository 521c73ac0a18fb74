// Package payments coordinates the local order store and the external
// payment provider into a two-phase saga: reserve-and-persist locally, then
// settle externally. The two phases are deliberately asymmetric: local
// failures roll back fully, while gateway failures after the local commit
// leave the order PENDING rather than attempting compensation.
package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motoshop/order-service/internal/domain"
	"github.com/motoshop/order-service/internal/paypal"
	"github.com/motoshop/order-service/internal/sales"
)

const (
	// StatusCompleted is the provider's success code for a settled capture.
	StatusCompleted = "COMPLETED"

	captureOutcomeTTL = 24 * time.Hour
)

// SaleStore is the slice of sales.Manager the orchestrator needs.
type SaleStore interface {
	Create(ctx context.Context, req sales.CreateRequest) (*domain.Order, error)
	FindOne(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, id string, patch sales.Patch) (*domain.Order, error)
}

// Gateway is the external payment provider. paypal.Client satisfies it.
type Gateway interface {
	CreateOrder(ctx context.Context, amountCents int64, returnURL, cancelURL string) (*paypal.ExternalOrder, error)
	CaptureOrder(ctx context.Context, externalOrderID string) (string, error)
}

// Sessions is the payment-session persistence. SessionRepository satisfies
// it.
type Sessions interface {
	Create(ctx context.Context, session *domain.PaymentSession) error
	GetByExternalID(ctx context.Context, externalOrderID string) (*domain.PaymentSession, error)
	SetExternalStatus(ctx context.Context, externalOrderID, status string) error
	ClaimCapture(ctx context.Context, externalOrderID, token, status string) (bool, error)
}

type Orchestrator struct {
	store     SaleStore
	gateway   Gateway
	sessions  Sessions
	keyStore  KeyStore
	publisher sales.EventPublisher
	logger    *slog.Logger
}

// NewOrchestrator wires the saga. keyStore and publisher may be nil; the
// fast-path dedup and event dispatch are then skipped.
func NewOrchestrator(store SaleStore, gateway Gateway, sessions Sessions, keyStore KeyStore, publisher sales.EventPublisher, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		gateway:   gateway,
		sessions:  sessions,
		keyStore:  keyStore,
		publisher: publisher,
		logger:    logger,
	}
}

type CreateOrderResult struct {
	OrderID         string `json:"order_id"`
	ExternalOrderID string `json:"external_order_id"`
	ApprovalURL     string `json:"approval_url"`
}

// CreateOrder runs the first phase of the saga. The sale request's status is
// forced to PENDING regardless of caller input, the order is persisted with
// its reservations, and only then is the provider's checkout order opened
// with the return URL carrying the internal order id. The gateway call runs
// outside any database transaction; if it fails, the committed order stays
// PENDING ("abandoned cart"), which is surfaced, not suppressed.
func (o *Orchestrator) CreateOrder(ctx context.Context, req sales.CreateRequest, returnURL, cancelURL string) (*CreateOrderResult, error) {
	req.Status = domain.OrderStatusPending

	order, err := o.store.Create(ctx, req)
	if err != nil {
		return nil, err
	}

	external, err := o.gateway.CreateOrder(ctx, order.Total,
		fmt.Sprintf("%s?order_id=%s", returnURL, order.ID), cancelURL)
	if err != nil {
		o.logger.Error("gateway order creation failed, local order remains pending",
			"error", err, "order_id", order.ID)
		return nil, err
	}

	session := &domain.PaymentSession{
		OrderID:         order.ID,
		ExternalOrderID: external.ID,
		ApprovalURL:     external.ApprovalURL,
		ExternalStatus:  "CREATED",
	}
	if err := o.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("persist payment session: %w", err)
	}

	o.logger.Info("payment order created",
		"order_id", order.ID, "external_order_id", external.ID)

	return &CreateOrderResult{
		OrderID:         order.ID,
		ExternalOrderID: external.ID,
		ApprovalURL:     external.ApprovalURL,
	}, nil
}

type CaptureResult struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
	OrderID string `json:"order_id"`
}

// CaptureOrder runs the second phase. Each attempt carries a unique token;
// the session row's check-and-set decides a single winner, so a replayed
// capture never re-applies the PAID transition or re-fires side effects. A
// non-success provider status leaves the order PENDING for retry or manual
// review.
func (o *Orchestrator) CaptureOrder(ctx context.Context, externalOrderID, orderID string) (*CaptureResult, error) {
	if prior, ok := o.priorOutcome(ctx, externalOrderID); ok {
		return prior, nil
	}

	session, err := o.sessions.GetByExternalID(ctx, externalOrderID)
	if err != nil {
		return nil, err
	}
	if session.OrderID != orderID {
		return nil, &domain.ValidationError{
			Field: "order_id",
			Msg:   "does not match the payment session",
		}
	}

	if session.CapturedAt != nil {
		return &CaptureResult{Success: true, Status: session.ExternalStatus, OrderID: orderID}, nil
	}

	status, err := o.gateway.CaptureOrder(ctx, externalOrderID)
	if err != nil {
		return nil, err
	}

	if status != StatusCompleted {
		if err := o.sessions.SetExternalStatus(ctx, externalOrderID, status); err != nil {
			o.logger.Error("failed to record external status", "error", err, "external_order_id", externalOrderID)
		}
		o.logger.Info("capture not completed, order left pending",
			"order_id", orderID, "external_order_id", externalOrderID, "status", status)
		return &CaptureResult{Success: false, Status: status, OrderID: orderID}, nil
	}

	token := uuid.New().String()
	claimed, err := o.sessions.ClaimCapture(ctx, externalOrderID, token, status)
	if err != nil {
		return nil, err
	}

	if claimed {
		paid := domain.OrderStatusPaid
		order, err := o.store.Update(ctx, orderID, sales.Patch{Status: &paid})
		if err != nil {
			return nil, fmt.Errorf("mark order paid: %w", err)
		}
		o.publishPaid(ctx, order)
		o.logger.Info("order paid", "order_id", orderID, "external_order_id", externalOrderID)
	}

	result := &CaptureResult{Success: true, Status: status, OrderID: orderID}
	o.recordOutcome(ctx, externalOrderID, result)
	return result, nil
}

func (o *Orchestrator) priorOutcome(ctx context.Context, externalOrderID string) (*CaptureResult, bool) {
	if o.keyStore == nil {
		return nil, false
	}

	val, found, err := o.keyStore.Get(ctx, captureKey(externalOrderID))
	if err != nil {
		o.logger.Error("capture dedup lookup failed", "error", err, "external_order_id", externalOrderID)
		return nil, false
	}
	if !found {
		return nil, false
	}

	var result CaptureResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		return nil, false
	}
	return &result, true
}

func (o *Orchestrator) recordOutcome(ctx context.Context, externalOrderID string, result *CaptureResult) {
	if o.keyStore == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := o.keyStore.Set(ctx, captureKey(externalOrderID), string(data), captureOutcomeTTL); err != nil {
		o.logger.Error("failed to record capture outcome", "error", err, "external_order_id", externalOrderID)
	}
}

func (o *Orchestrator) publishPaid(ctx context.Context, order *domain.Order) {
	if o.publisher == nil {
		return
	}

	event := domain.OrderEvent{
		EventID:   uuid.New().String(),
		Type:      domain.EventOrderPaid,
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		Status:    order.Status,
		Total:     order.Total,
		Timestamp: time.Now().UTC(),
	}
	if err := o.publisher.Publish(ctx, order.ID, event); err != nil {
		o.logger.Error("failed to publish order paid event", "error", err, "order_id", order.ID)
	}
}

func captureKey(externalOrderID string) string {
	return "capture:" + externalOrderID
}

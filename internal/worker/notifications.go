package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/motoshop/order-service/internal/domain"
	"github.com/motoshop/order-service/internal/notify"
)

// NotificationHandler turns consumed order events into outbound
// notifications. Dispatch failures are logged and swallowed; a broken email
// path must never block the event stream or the order it belongs to.
type NotificationHandler struct {
	dispatcher notify.Dispatcher
	logger     *slog.Logger
}

func NewNotificationHandler(dispatcher notify.Dispatcher, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	h.logger.Info("processing order event", "type", event.Type, "order_id", event.OrderID)

	if err := h.dispatcher.Send(ctx, event); err != nil {
		h.logger.Error("failed to dispatch notification",
			"error", err, "type", event.Type, "order_id", event.OrderID)
	}

	return nil
}

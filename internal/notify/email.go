// Package notify dispatches order notifications. Dispatch is fire-and-
// forget from the caller's point of view: failures are logged by the caller
// and never affect the order they describe.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/motoshop/order-service/internal/domain"
)

// Dispatcher sends a notification for one order event.
type Dispatcher interface {
	Send(ctx context.Context, event domain.OrderEvent) error
}

// EmailDispatcher renders order events as emails and posts them to the
// email delivery service.
type EmailDispatcher struct {
	serviceURL string
	httpClient *http.Client
}

func NewEmailDispatcher(serviceURL string, client *http.Client) *EmailDispatcher {
	return &EmailDispatcher{
		serviceURL: serviceURL,
		httpClient: client,
	}
}

func (d *EmailDispatcher) Send(ctx context.Context, event domain.OrderEvent) error {
	var subject, text string
	switch event.Type {
	case domain.EventOrderCreated:
		subject = "Order received: " + event.OrderID
		text = fmt.Sprintf("We received your order %s for %s. Complete the payment to confirm it.",
			event.OrderID, formatTotal(event.Total))
	case domain.EventOrderPaid:
		subject = "Payment confirmed: " + event.OrderID
		text = fmt.Sprintf("Your payment of %s for order %s was confirmed.",
			formatTotal(event.Total), event.OrderID)
	case domain.EventOrderCancelled:
		subject = "Order cancelled: " + event.OrderID
		text = fmt.Sprintf("Your order %s was cancelled.", event.OrderID)
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	body := map[string]string{
		"to":      event.BuyerID + "@example.com",
		"subject": subject,
		"body":    text,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.serviceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

func formatTotal(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

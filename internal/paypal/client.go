// Package paypal wraps the PayPal REST checkout API: client-credentials
// authentication, order creation and order capture. The client is stateless;
// a fresh access token is fetched for every call. Callers that need token
// caching must layer it on top.
package paypal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/motoshop/order-service/internal/domain"
)

const captureIntent = "CAPTURE"

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewClient builds a client for the given provider environment. The
// http.Client's timeout bounds every call; an expired deadline surfaces as a
// GatewayError and the local order is left PENDING for reconciliation.
func NewClient(baseURL, clientID, clientSecret string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   httpClient,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// Authenticate exchanges the client credentials for a short-lived access
// token.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &domain.GatewayError{Op: "authenticate", Cause: err}
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.GatewayError{Op: "authenticate", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &domain.GatewayError{Op: "authenticate", Cause: statusError(resp)}
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", &domain.GatewayError{Op: "authenticate", Cause: err}
	}
	if token.AccessToken == "" {
		return "", &domain.GatewayError{Op: "authenticate", Cause: fmt.Errorf("empty access token")}
	}

	return token.AccessToken, nil
}

type ExternalOrder struct {
	ID          string
	ApprovalURL string
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// CreateOrder opens a checkout order with the provider for the given amount
// in cents and returns the external order id plus the URL the buyer must
// visit to approve the payment.
func (c *Client) CreateOrder(ctx context.Context, amountCents int64, returnURL, cancelURL string) (*ExternalOrder, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"intent": captureIntent,
		"purchase_units": []map[string]any{
			{
				"amount": map[string]string{
					"currency_code": "USD",
					"value":         FormatAmount(amountCents),
				},
			},
		},
		"application_context": map[string]string{
			"return_url":  returnURL,
			"cancel_url":  cancelURL,
			"user_action": "PAY_NOW",
		},
	}

	var order orderResponse
	if err := c.post(ctx, "/v2/checkout/orders", token, body, &order); err != nil {
		return nil, &domain.GatewayError{Op: "create order", Cause: err}
	}

	approvalURL := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approvalURL = link.Href
			break
		}
	}
	if order.ID == "" || approvalURL == "" {
		return nil, &domain.GatewayError{Op: "create order", Cause: fmt.Errorf("provider response missing order id or approval link")}
	}

	return &ExternalOrder{ID: order.ID, ApprovalURL: approvalURL}, nil
}

type captureResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CaptureOrder finalizes a previously approved checkout order and returns
// the provider's reported status. "COMPLETED" means settled funds; any other
// status is reported to the caller without interpretation.
func (c *Client) CaptureOrder(ctx context.Context, externalOrderID string) (string, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return "", err
	}

	var capture captureResponse
	path := "/v2/checkout/orders/" + externalOrderID + "/capture"
	if err := c.post(ctx, path, token, map[string]any{}, &capture); err != nil {
		return "", &domain.GatewayError{Op: "capture order", Cause: err}
	}

	return capture.Status, nil
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if len(body) == 0 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}
	return fmt.Errorf("provider returned status %d: %s", resp.StatusCode, body)
}

// FormatAmount renders cents as the provider's two-decimal currency string.
func FormatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

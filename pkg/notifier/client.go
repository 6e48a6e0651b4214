package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("notification service base url is required")

// ConfirmationItem is one purchased line included in the confirmation.
type ConfirmationItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// OrderConfirmation is the payload for the order confirmation message.
type OrderConfirmation struct {
	OrderID       string             `json:"order_id"`
	CustomerID    string             `json:"customer_id"`
	CustomerEmail string             `json:"customer_email"`
	TotalCents    int64              `json:"total_cents"`
	Items         []ConfirmationItem `json:"items"`
}

// Client wraps the notification service HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the notification client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return client, nil
}

// SendOrderConfirmation delivers the confirmation message. Callers treat
// failures as retryable; the dispatcher owns the retry policy.
func (c *Client) SendOrderConfirmation(ctx context.Context, confirmation OrderConfirmation) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "notification client not configured")
	}
	if strings.TrimSpace(confirmation.OrderID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if strings.TrimSpace(confirmation.CustomerEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	payload, err := json.Marshal(confirmation)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal confirmation payload")
	}

	endpoint := fmt.Sprintf("%s/notifications/order-confirmation", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build confirmation request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute confirmation request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"confirmation request failed")
	}
	return nil
}

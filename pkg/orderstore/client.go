package orderstore

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
	"github.com/nmoreno/storefront-checkout/pkg/types"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("order store base url is required")

// OrderItem is one purchased line forwarded to the order store. Amounts are
// integer minor units.
type OrderItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int64  `json:"quantity"`
}

// Totals is the computed money summary of the order in minor units.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// CreateOrderParams is the payload for createFromCheckout. TransactionID is
// the payment provider's transaction id; the order store guarantees that a
// repeated call with the same id returns the existing order.
type CreateOrderParams struct {
	CustomerID      string        `json:"customer_id"`
	Items           []OrderItem   `json:"items"`
	Totals          Totals        `json:"totals"`
	ShippingAddress types.Address `json:"shipping_address"`
	BillingAddress  types.Address `json:"billing_address"`
	TransactionID   string        `json:"transaction_id"`
}

// Client wraps the order store HTTP API.
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

// NewClient builds the order store client for the given base URL.
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

// CreateFromCheckout submits the order payload and returns the order id.
// Idempotent on params.TransactionID downstream.
func (c *Client) CreateFromCheckout(ctx context.Context, params CreateOrderParams) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "order store client not configured")
	}
	if strings.TrimSpace(params.CustomerID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	if strings.TrimSpace(params.TransactionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "transaction id is required")
	}
	if len(params.Items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal order payload")
	}

	endpoint := fmt.Sprintf("%s/orders/from-checkout", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build create order request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeOrderCreation, err, "execute create order request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeOrderCreation,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"create order request failed")
	}

	var apiResp struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeOrderCreation, err, "decode create order response")
	}
	if apiResp.OrderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeOrderCreation, "create order response missing order id")
	}
	return apiResp.OrderID, nil
}

package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("inventory store base url is required")

// Product is the stock state served by the inventory store for one product.
type Product struct {
	ProductID string `json:"product_id"`
	Stock     int64  `json:"stock"`
	Active    bool   `json:"active"`
}

// Client wraps the inventory store HTTP API.
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

// NewClient builds the inventory store client for the given base URL.
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

// GetProduct fetches the raw stock level for the product. Inactive products
// surface PRODUCT_INACTIVE; unknown ones PRODUCT_NOT_FOUND.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory client not configured")
	}
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}

	endpoint := fmt.Sprintf("%s/products/%s/stock", c.baseURL, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build get product request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute get product request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
	case resp.StatusCode != http.StatusOK:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, statusError(resp), "get product request failed")
	}

	var product Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product response")
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeProductInactive, "product is not active")
	}
	if product.ProductID == "" {
		product.ProductID = trimmed
	}
	return &product, nil
}

// DecrementStock commits a stock decrement for one product. The inventory
// store rejects decrements below zero with INSUFFICIENT_STOCK.
func (c *Client) DecrementStock(ctx context.Context, productID string, quantity int64) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "inventory client not configured")
	}
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	body := struct {
		Quantity int64 `json:"quantity"`
	}{Quantity: quantity}
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal decrement payload")
	}

	endpoint := fmt.Sprintf("%s/products/%s/stock/decrement", c.baseURL, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build decrement request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute decrement request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeProductNotFound, "product not found")
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusBadRequest:
		return pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, statusError(resp), "decrement rejected")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, statusError(resp), "decrement request failed")
	}
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

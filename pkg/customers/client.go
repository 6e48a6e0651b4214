package customers

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

	"github.com/nmoreno/storefront-checkout/pkg/cartstore"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/types"
)

const responseBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("customer store base url is required")

// Client wraps the customer store HTTP API.
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

// NewClient builds the customer store client for the given base URL.
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

// ResolveOrCreate looks up the customer by email, creating the record when
// absent, and returns the customer id. Transport failures surface as
// CUSTOMER_SERVICE_UNAVAILABLE; downstream statuses are propagated.
func (c *Client) ResolveOrCreate(ctx context.Context, data cartstore.CustomerData) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "customer store client not configured")
	}
	if strings.TrimSpace(data.Email) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer email is required")
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal customer data")
	}

	endpoint := fmt.Sprintf("%s/customers/resolve-or-create", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build resolve-or-create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeCustomerUnavailable, err, "execute resolve-or-create request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", pkgerrors.Wrap(propagatedCode(resp.StatusCode), statusError(resp), "resolve-or-create request failed")
	}

	var apiResp struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeCustomerUnavailable, err, "decode resolve-or-create response")
	}
	if apiResp.CustomerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeCustomerUnavailable, "resolve-or-create response missing customer id")
	}
	return apiResp.CustomerID, nil
}

// SaveAddresses writes the shipping and billing addresses to the customer
// record in one bulk call.
func (c *Client) SaveAddresses(ctx context.Context, customerID string, shipping, billing types.Address, useSameBilling bool) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "customer store client not configured")
	}
	trimmed := strings.TrimSpace(customerID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	body := struct {
		Shipping              types.Address `json:"shipping"`
		Billing               types.Address `json:"billing"`
		UseSameBillingAddress bool          `json:"use_same_billing_address"`
	}{Shipping: shipping, Billing: billing, UseSameBillingAddress: useSameBilling}

	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal addresses payload")
	}

	endpoint := fmt.Sprintf("%s/customers/%s/addresses/bulk", c.baseURL, url.PathEscape(trimmed))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build save addresses request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute save addresses request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, statusError(resp), "save addresses request failed")
	}
	return nil
}

func propagatedCode(status int) pkgerrors.Code {
	switch {
	case status == http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case status >= 400 && status < 500:
		return pkgerrors.CodeValidation
	default:
		return pkgerrors.CodeCustomerUnavailable
	}
}

func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}

package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/nmoreno/storefront-checkout/pkg/config"
	scerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// SessionLineItem is one priced cart line forwarded to the payment provider.
// Amounts are integer minor units (cents).
type SessionLineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int64
}

// CreateSessionParams carries everything needed to open a hosted checkout
// session for a cart.
type CreateSessionParams struct {
	LineItems     []SessionLineItem
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the freshly created provider session.
type Session struct {
	ID          string
	RedirectURL string
}

// SessionDetails is the state of an existing provider session, retrieved
// during finalization.
type SessionDetails struct {
	TransactionID string
	PaymentStatus string
	CustomerEmail string
	Metadata      map[string]string
}

// Client wraps the payment provider plus env-specific metadata.
type Client struct {
	environment string
	currency    string
}

// NewClient initializes Stripe once with the configured secret and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	stripe.Key = apiKey

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	currency := strings.TrimSpace(strings.ToLower(cfg.Currency))
	if currency == "" {
		currency = "eur"
	}

	return &Client{environment: env, currency: currency}, nil
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateCheckoutSession opens a hosted payment session for the given line
// items and returns the redirect target for the buyer.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	if len(params.LineItems) == 0 {
		return nil, scerrors.New(scerrors.CodeValidation, "checkout session requires at least one line item")
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(params.SuccessURL),
		CancelURL:  stripe.String(params.CancelURL),
	}
	sessionParams.Context = ctx
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for _, item := range params.LineItems {
		sessionParams.LineItems = append(sessionParams.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(c.currency),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
		})
	}
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}

	created, err := session.New(sessionParams)
	if err != nil {
		return nil, scerrors.Wrap(scerrors.CodeDependency, err, "creating checkout session")
	}
	return &Session{ID: created.ID, RedirectURL: created.URL}, nil
}

// GetCheckoutSession retrieves an existing session along with its payment
// intent, which carries the provider transaction id.
func (c *Client) GetCheckoutSession(ctx context.Context, sessionID string) (*SessionDetails, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, scerrors.New(scerrors.CodeValidation, "session id is required")
	}

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	found, err := session.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, scerrors.Wrap(scerrors.CodePaymentSessionNotFound, err, "retrieving checkout session")
		}
		return nil, scerrors.Wrap(scerrors.CodeDependency, err, "retrieving checkout session")
	}

	details := &SessionDetails{
		PaymentStatus: string(found.PaymentStatus),
		Metadata:      found.Metadata,
	}
	if found.PaymentIntent != nil {
		details.TransactionID = found.PaymentIntent.ID
	}
	if found.CustomerDetails != nil {
		details.CustomerEmail = found.CustomerDetails.Email
	}
	return details, nil
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}

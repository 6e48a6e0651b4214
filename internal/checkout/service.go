package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/nmoreno/storefront-checkout/pkg/cartstore"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
	"github.com/nmoreno/storefront-checkout/pkg/stripe"
)

// Metadata keys written onto the provider session. The finalizer reads them
// back after the payment redirect; they are the only channel carrying
// application identifiers across it.
const (
	MetadataCustomerID    = "customer_id"
	MetadataCartSessionID = "cart_session_id"
)

type cartReader interface {
	GetCart(ctx context.Context, sessionID string) (*cartstore.CartSnapshot, error)
}

type customerResolver interface {
	ResolveOrCreate(ctx context.Context, data cartstore.CustomerData) (string, error)
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params stripe.CreateSessionParams) (*stripe.Session, error)
}

// Service turns a filled cart into a hosted payment session.
type Service interface {
	Initiate(ctx context.Context, sessionID, successURL, cancelURL string) (string, error)
}

type service struct {
	carts     cartReader
	customers customerResolver
	payments  sessionCreator
	logg      *logger.Logger
}

// NewService builds the checkout initiator.
func NewService(carts cartReader, customers customerResolver, payments sessionCreator, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart reader required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer resolver required")
	}
	if payments == nil {
		return nil, fmt.Errorf("session creator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		carts:     carts,
		customers: customers,
		payments:  payments,
		logg:      logg,
	}, nil
}

// Initiate runs the pre-payment sequence: load cart, require checkout email,
// resolve the customer, create the provider session. Steps are sequential
// and never retried; the caller retries the whole checkout on failure.
func (s *service) Initiate(ctx context.Context, sessionID, successURL, cancelURL string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session id is required")
	}

	snapshot, err := s.carts.GetCart(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if snapshot.IsEmpty() {
		return "", pkgerrors.New(pkgerrors.CodeCartEmpty, "cart has no items")
	}
	if !snapshot.CheckoutData.HasEmail() {
		return "", pkgerrors.New(pkgerrors.CodeCheckoutDataMissing, "checkout data with a contact email is required")
	}

	customerID, err := s.customers.ResolveOrCreate(ctx, snapshot.CheckoutData.Customer)
	if err != nil {
		return "", err
	}

	session, err := s.payments.CreateCheckoutSession(ctx, stripe.CreateSessionParams{
		LineItems:     buildLineItems(snapshot),
		CustomerEmail: snapshot.CheckoutData.Customer.Email,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			MetadataCustomerID:    customerID,
			MetadataCartSessionID: sessionID,
		},
	})
	if err != nil {
		return "", err
	}

	ctx = s.logg.WithCartSession(ctx, sessionID)
	s.logg.Info(ctx, fmt.Sprintf("payment session %s created", session.ID))
	return session.RedirectURL, nil
}

// buildLineItems converts the decimal cart prices to the provider's minor
// unit representation and appends the computed tax as its own line.
func buildLineItems(snapshot *cartstore.CartSnapshot) []stripe.SessionLineItem {
	items := make([]stripe.SessionLineItem, 0, len(snapshot.Items)+1)
	for _, line := range snapshot.Items {
		items = append(items, stripe.SessionLineItem{
			Name:       line.Name,
			UnitAmount: line.UnitPriceCents(),
			Quantity:   line.Quantity,
		})
	}
	if tax := snapshot.TaxCents(); tax > 0 {
		items = append(items, stripe.SessionLineItem{
			Name:       "Tax",
			UnitAmount: tax,
			Quantity:   1,
		})
	}
	return items
}

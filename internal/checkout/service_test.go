package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmoreno/storefront-checkout/pkg/cartstore"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
	"github.com/nmoreno/storefront-checkout/pkg/stripe"
)

type stubCartReader struct {
	snapshot *cartstore.CartSnapshot
	err      error
}

func (s *stubCartReader) GetCart(ctx context.Context, sessionID string) (*cartstore.CartSnapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

type stubCustomerResolver struct {
	customerID string
	err        error
	calls      int
}

func (s *stubCustomerResolver) ResolveOrCreate(ctx context.Context, data cartstore.CustomerData) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.customerID, nil
}

type stubSessionCreator struct {
	session *stripe.Session
	err     error
	params  stripe.CreateSessionParams
	calls   int
}

func (s *stubSessionCreator) CreateCheckoutSession(ctx context.Context, params stripe.CreateSessionParams) (*stripe.Session, error) {
	s.calls++
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return s.session, nil
}

func testSnapshot() *cartstore.CartSnapshot {
	return &cartstore.CartSnapshot{
		SessionID: "sess-1",
		Items: []cartstore.LineItem{
			{ProductID: "p1", Name: "Widget", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 1, TaxRate: decimal.RequireFromString("0.21")},
			{ProductID: "p2", Name: "Gadget", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 2, TaxRate: decimal.RequireFromString("0.21")},
		},
		Subtotal: decimal.RequireFromString("20.00"),
		Tax:      decimal.RequireFromString("4.20"),
		Total:    decimal.RequireFromString("24.20"),
		CheckoutData: &cartstore.CheckoutData{
			Customer: cartstore.CustomerData{Email: "buyer@example.com", FirstName: "Ada"},
		},
	}
}

func newTestService(t *testing.T, carts *stubCartReader, customers *stubCustomerResolver, payments *stubSessionCreator) Service {
	t.Helper()
	svc, err := NewService(carts, customers, payments, logger.New(logger.Options{Level: logger.ParseLevel("error")}))
	require.NoError(t, err)
	return svc
}

func TestInitiateReturnsRedirectURL(t *testing.T) {
	payments := &stubSessionCreator{session: &stripe.Session{ID: "cs_1", RedirectURL: "https://pay.example/cs_1"}}
	customers := &stubCustomerResolver{customerID: "cust-42"}
	svc := newTestService(t, &stubCartReader{snapshot: testSnapshot()}, customers, payments)

	redirect, err := svc.Initiate(context.Background(), "sess-1", "https://shop.example/ok", "https://shop.example/cancel")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", redirect)

	// Line items in minor units plus one tax line.
	require.Len(t, payments.params.LineItems, 3)
	assert.Equal(t, int64(1000), payments.params.LineItems[0].UnitAmount)
	assert.Equal(t, int64(500), payments.params.LineItems[1].UnitAmount)
	assert.Equal(t, int64(2), payments.params.LineItems[1].Quantity)
	assert.Equal(t, "Tax", payments.params.LineItems[2].Name)
	assert.Equal(t, int64(420), payments.params.LineItems[2].UnitAmount)

	assert.Equal(t, "cust-42", payments.params.Metadata[MetadataCustomerID])
	assert.Equal(t, "sess-1", payments.params.Metadata[MetadataCartSessionID])
	assert.Equal(t, "buyer@example.com", payments.params.CustomerEmail)
}

func TestInitiateCartNotFound(t *testing.T) {
	carts := &stubCartReader{err: pkgerrors.New(pkgerrors.CodeCartNotFound, "cart not found for session")}
	payments := &stubSessionCreator{}
	svc := newTestService(t, carts, &stubCustomerResolver{}, payments)

	_, err := svc.Initiate(context.Background(), "sess-1", "https://ok", "https://cancel")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCartNotFound))
	assert.Zero(t, payments.calls)
}

func TestInitiateEmptyCart(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.Items = nil
	svc := newTestService(t, &stubCartReader{snapshot: snapshot}, &stubCustomerResolver{}, &stubSessionCreator{})

	_, err := svc.Initiate(context.Background(), "sess-1", "https://ok", "https://cancel")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCartEmpty))
}

func TestInitiateMissingCheckoutEmail(t *testing.T) {
	snapshot := testSnapshot()
	snapshot.CheckoutData = nil
	customers := &stubCustomerResolver{}
	svc := newTestService(t, &stubCartReader{snapshot: snapshot}, customers, &stubSessionCreator{})

	_, err := svc.Initiate(context.Background(), "sess-1", "https://ok", "https://cancel")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCheckoutDataMissing))
	assert.Zero(t, customers.calls)
}

func TestInitiateCustomerServiceDown(t *testing.T) {
	customers := &stubCustomerResolver{err: pkgerrors.New(pkgerrors.CodeCustomerUnavailable, "connection refused")}
	payments := &stubSessionCreator{}
	svc := newTestService(t, &stubCartReader{snapshot: testSnapshot()}, customers, payments)

	_, err := svc.Initiate(context.Background(), "sess-1", "https://ok", "https://cancel")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeCustomerUnavailable))
	assert.Zero(t, payments.calls)
}

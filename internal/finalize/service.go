package finalize

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/nmoreno/storefront-checkout/internal/checkout"
	"github.com/nmoreno/storefront-checkout/pkg/cartstore"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
	"github.com/nmoreno/storefront-checkout/pkg/metrics"
	"github.com/nmoreno/storefront-checkout/pkg/notifier"
	"github.com/nmoreno/storefront-checkout/pkg/orderstore"
	"github.com/nmoreno/storefront-checkout/pkg/stripe"
	"github.com/nmoreno/storefront-checkout/pkg/types"
)

type providerSessionReader interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (*stripe.SessionDetails, error)
}

type cartAccessor interface {
	GetCart(ctx context.Context, sessionID string) (*cartstore.CartSnapshot, error)
	DeleteCart(ctx context.Context, sessionID string) error
}

type addressWriter interface {
	SaveAddresses(ctx context.Context, customerID string, shipping, billing types.Address, useSameBilling bool) error
}

type orderCreator interface {
	CreateFromCheckout(ctx context.Context, params orderstore.CreateOrderParams) (string, error)
}

type stockAdjuster interface {
	DecrementStock(ctx context.Context, productID string, quantity int64) error
}

type reservationReleaser interface {
	ReleaseSession(ctx context.Context, sessionID string) error
}

type confirmationEnqueuer interface {
	Enqueue(confirmation notifier.OrderConfirmation) bool
}

// Config carries the step timeouts of the finalization pipeline.
type Config struct {
	StockDecrementTimeout time.Duration
	CartClearTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.StockDecrementTimeout <= 0 {
		c.StockDecrementTimeout = 10 * time.Second
	}
	if c.CartClearTimeout <= 0 {
		c.CartClearTimeout = 3 * time.Second
	}
	return c
}

// Service drives the post-payment pipeline: provider session, metadata,
// cart, addresses, order, stock, cart clear, confirmation. Order creation is
// idempotent on the provider transaction id; re-invoking Finalize with the
// same provider session returns the existing order.
type Service interface {
	Finalize(ctx context.Context, providerSessionID, cartSessionID string) (string, error)
}

type service struct {
	provider     providerSessionReader
	carts        cartAccessor
	customers    addressWriter
	orders       orderCreator
	inventory    stockAdjuster
	reservations reservationReleaser
	confirmer    confirmationEnqueuer
	logg         *logger.Logger
	obs          *metrics.FinalizeMetrics
	cfg          Config
}

// NewService builds the payment finalizer.
func NewService(
	provider providerSessionReader,
	carts cartAccessor,
	customers addressWriter,
	orders orderCreator,
	inventory stockAdjuster,
	reservations reservationReleaser,
	confirmer confirmationEnqueuer,
	logg *logger.Logger,
	obs *metrics.FinalizeMetrics,
	cfg Config,
) (Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider session reader required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart accessor required")
	}
	if customers == nil {
		return nil, fmt.Errorf("address writer required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	if inventory == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		provider:     provider,
		carts:        carts,
		customers:    customers,
		orders:       orders,
		inventory:    inventory,
		reservations: reservations,
		confirmer:    confirmer,
		logg:         logg,
		obs:          obs,
		cfg:          cfg.withDefaults(),
	}, nil
}

func (s *service) Finalize(ctx context.Context, providerSessionID, cartSessionID string) (string, error) {
	if strings.TrimSpace(providerSessionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "provider session id is required")
	}

	orderID, err := s.finalize(ctx, providerSessionID, cartSessionID)
	if err != nil {
		s.obs.IncOutcome("failure")
		return "", err
	}
	s.obs.IncOutcome("success")
	return orderID, nil
}

func (s *service) finalize(ctx context.Context, providerSessionID, cartSessionID string) (string, error) {
	// Step 1: retrieve the provider session. Without its metadata there is
	// no safe way to proceed, so any failure here surfaces as a missing
	// session.
	details, err := step(ctx, s, "retrieve_provider_session", func(ctx context.Context) (*stripe.SessionDetails, error) {
		found, err := s.provider.GetCheckoutSession(ctx, providerSessionID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodePaymentSessionNotFound) {
				return nil, err
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodePaymentSessionNotFound, err, "payment session unavailable")
		}
		return found, nil
	})
	if err != nil {
		return "", err
	}

	// Step 2: validate metadata. A missing customer id means the session was
	// not created by the checkout initiator; not retryable.
	customerID := details.Metadata[checkout.MetadataCustomerID]
	if strings.TrimSpace(customerID) == "" {
		s.obs.IncStepFailure("validate_metadata")
		return "", pkgerrors.New(pkgerrors.CodeInvalidSessionMetadata, "session metadata is missing the customer id")
	}
	if strings.TrimSpace(details.TransactionID) == "" {
		s.obs.IncStepFailure("validate_metadata")
		return "", pkgerrors.New(pkgerrors.CodeInvalidSessionMetadata, "session carries no transaction id")
	}
	if strings.TrimSpace(cartSessionID) == "" {
		cartSessionID = details.Metadata[checkout.MetadataCartSessionID]
	}
	if strings.TrimSpace(cartSessionID) == "" {
		return "", pkgerrors.New(pkgerrors.CodeInvalidSessionMetadata, "cart session id is missing")
	}

	ctx = s.logg.WithCartSession(ctx, cartSessionID)

	// Step 3: load the cart snapshot.
	snapshot, err := step(ctx, s, "load_cart", func(ctx context.Context) (*cartstore.CartSnapshot, error) {
		found, err := s.carts.GetCart(ctx, cartSessionID)
		if err != nil {
			return nil, err
		}
		if found.IsEmpty() {
			return nil, pkgerrors.New(pkgerrors.CodeCartNotFound, "cart is empty or already consumed")
		}
		if found.CheckoutData == nil {
			return nil, pkgerrors.New(pkgerrors.CodeCheckoutDataMissing, "cart snapshot lacks checkout data")
		}
		return found, nil
	})
	if err != nil {
		return "", err
	}

	// Step 4: persist addresses, blocking. The order's address references
	// must be valid before the order exists.
	checkoutData := snapshot.CheckoutData
	_, err = step(ctx, s, "persist_addresses", func(ctx context.Context) (struct{}, error) {
		err := s.customers.SaveAddresses(ctx, customerID,
			checkoutData.ShippingAddress, checkoutData.BillingAddress, checkoutData.UseSameBillingAddress)
		if err != nil {
			return struct{}{}, pkgerrors.Wrap(pkgerrors.CodeAddressPersistence, err, "persisting addresses")
		}
		return struct{}{}, nil
	})
	if err != nil {
		return "", err
	}

	// Step 5: create the order. The order store collapses duplicate calls
	// with the same transaction id into the existing order.
	orderID, err := step(ctx, s, "create_order", func(ctx context.Context) (string, error) {
		created, err := s.orders.CreateFromCheckout(ctx, buildOrderParams(customerID, details.TransactionID, snapshot))
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeOrderCreation) {
				return "", err
			}
			return "", pkgerrors.Wrap(pkgerrors.CodeOrderCreation, err, "creating order")
		}
		return created, nil
	})
	if err != nil {
		return "", err
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	// Step 6: adjust stock, one concurrent decrement per line item, each
	// bounded by its own timeout. The order is NOT rolled back on failure;
	// it is the record of what the customer paid for. The error flags the
	// inconsistency for manual reconciliation instead.
	if err := s.adjustStock(ctx, snapshot); err != nil {
		s.obs.IncStepFailure("adjust_stock")
		s.logg.Error(ctx, "stock adjustment failed after order creation", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeStockAdjustment, err, "adjusting stock").
			WithDetails(map[string]any{
				"order_id":                orderID,
				"reconciliation_required": true,
			})
	}

	// The granted reservations were consumed by the decrements above.
	if s.reservations != nil {
		if err := s.reservations.ReleaseSession(ctx, cartSessionID); err != nil {
			s.logg.Warn(ctx, fmt.Sprintf("releasing reservations failed: %v", err))
		}
	}

	// Step 7: clear the cart, best-effort with a short timeout. The order
	// and stock are already settled; a leftover cart is cosmetic.
	clearCtx, cancel := context.WithTimeout(ctx, s.cfg.CartClearTimeout)
	defer cancel()
	if err := s.carts.DeleteCart(clearCtx, cartSessionID); err != nil {
		s.obs.IncStepFailure("clear_cart")
		s.logg.Warn(ctx, fmt.Sprintf("cart clear failed: %v", err))
	}

	// Step 8: hand the confirmation to the dispatcher. Runs detached from
	// this request's lifetime.
	if s.confirmer != nil {
		s.confirmer.Enqueue(buildConfirmation(orderID, customerID, snapshot))
	}

	s.logg.Info(ctx, "finalization completed")
	return orderID, nil
}

// step runs one blocking saga stage with duration/failure observation.
func step[T any](ctx context.Context, s *service, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	out, err := fn(ctx)
	s.obs.ObserveStep(name, time.Since(start))
	if err != nil {
		s.obs.IncStepFailure(name)
	}
	return out, err
}

func (s *service) adjustStock(ctx context.Context, snapshot *cartstore.CartSnapshot) error {
	start := time.Now()
	defer func() { s.obs.ObserveStep("adjust_stock", time.Since(start)) }()

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, item := range snapshot.Items {
		wg.Add(1)
		go func(line cartstore.LineItem) {
			defer wg.Done()
			itemCtx, cancel := context.WithTimeout(ctx, s.cfg.StockDecrementTimeout)
			defer cancel()
			if err := s.inventory.DecrementStock(itemCtx, line.ProductID, line.Quantity); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("product %s: %w", line.ProductID, err))
				mu.Unlock()
			}
		}(item)
	}
	wg.Wait()
	return errs
}

func buildOrderParams(customerID, transactionID string, snapshot *cartstore.CartSnapshot) orderstore.CreateOrderParams {
	items := make([]orderstore.OrderItem, 0, len(snapshot.Items))
	for _, line := range snapshot.Items {
		items = append(items, orderstore.OrderItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			UnitPriceCents: line.UnitPriceCents(),
			Quantity:       line.Quantity,
		})
	}

	billing := snapshot.CheckoutData.BillingAddress
	if snapshot.CheckoutData.UseSameBillingAddress {
		billing = snapshot.CheckoutData.ShippingAddress
	}

	return orderstore.CreateOrderParams{
		CustomerID: customerID,
		Items:      items,
		Totals: orderstore.Totals{
			SubtotalCents: snapshot.SubtotalCents(),
			TaxCents:      snapshot.TaxCents(),
			TotalCents:    snapshot.TotalCents(),
		},
		ShippingAddress: snapshot.CheckoutData.ShippingAddress,
		BillingAddress:  billing,
		TransactionID:   transactionID,
	}
}

func buildConfirmation(orderID, customerID string, snapshot *cartstore.CartSnapshot) notifier.OrderConfirmation {
	items := make([]notifier.ConfirmationItem, 0, len(snapshot.Items))
	for _, line := range snapshot.Items {
		items = append(items, notifier.ConfirmationItem{Name: line.Name, Quantity: line.Quantity})
	}
	return notifier.OrderConfirmation{
		OrderID:       orderID,
		CustomerID:    customerID,
		CustomerEmail: snapshot.CheckoutData.Customer.Email,
		TotalCents:    snapshot.TotalCents(),
		Items:         items,
	}
}

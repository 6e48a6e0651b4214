package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoreno/storefront-checkout/pkg/db/models"
	pkgerrors "github.com/nmoreno/storefront-checkout/pkg/errors"
	"github.com/nmoreno/storefront-checkout/pkg/inventory"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productReader interface {
	GetProduct(ctx context.Context, productID string) (*inventory.Product, error)
}

// Availability is the result of a stock check.
type Availability struct {
	Available      bool
	AvailableStock int64
}

// Reservation is a granted stock hold.
type Reservation struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int64
	ExpiresAt time.Time
}

// Service owns the availability and reservation operations. Available stock
// for a product is the inventory store's raw stock minus the sum of active
// local reservations.
type Service interface {
	CheckAvailability(ctx context.Context, productID string, quantity int64) (*Availability, error)
	Reserve(ctx context.Context, productID string, quantity int64, sessionID string, ttl time.Duration) (*Reservation, error)
	ReleaseSession(ctx context.Context, sessionID string) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	products   productReader
	logg       *logger.Logger
	defaultTTL time.Duration
	now        func() time.Time
}

// NewService builds the stock reservation service.
func NewService(tx txRunner, repo Repository, products productReader, logg *logger.Logger, defaultTTL time.Duration) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if defaultTTL <= 0 {
		defaultTTL = 30 * time.Minute
	}
	return &service{
		tx:         tx,
		repo:       repo,
		products:   products,
		logg:       logg,
		defaultTTL: defaultTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CheckAvailability(ctx context.Context, productID string, quantity int64) (*Availability, error) {
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	product, err := s.products.GetProduct(ctx, pid.String())
	if err != nil {
		return nil, err
	}

	reserved, err := s.repo.ActiveQuantity(ctx, pid, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing active reservations")
	}

	available := product.Stock - reserved
	if available < 0 {
		available = 0
	}
	return &Availability{
		Available:      available >= quantity,
		AvailableStock: available,
	}, nil
}

func (s *service) Reserve(ctx context.Context, productID string, quantity int64, sessionID string, ttl time.Duration) (*Reservation, error) {
	pid, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	product, err := s.products.GetProduct(ctx, pid.String())
	if err != nil {
		return nil, err
	}

	var reservation *Reservation
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Serializes concurrent attempts for this product; the availability
		// re-check below runs under the lock.
		if err := repo.AcquireProductLock(ctx, pid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "acquiring product lock")
		}

		now := s.now()
		reserved, err := repo.ActiveQuantity(ctx, pid, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "summing active reservations")
		}
		if product.Stock-reserved < quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for requested quantity")
		}

		row := &models.StockReservation{
			ID:        uuid.New(),
			ProductID: pid,
			SessionID: sessionID,
			Qty:       int(quantity),
			ExpiresAt: now.Add(ttl),
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting reservation")
		}
		reservation = &Reservation{
			ID:        row.ID,
			ProductID: pid,
			Quantity:  quantity,
			ExpiresAt: row.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// ReleaseSession drops every reservation held by the session. Used after a
// successful order consumed the stock; best-effort from the caller's side.
func (s *service) ReleaseSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	released, err := s.repo.ReleaseForSession(ctx, sessionID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "releasing session reservations")
	}
	if released > 0 {
		s.logg.Info(ctx, fmt.Sprintf("released %d reservations for session", released))
	}
	return nil
}

func (s *service) PurgeExpired(ctx context.Context) (int64, error) {
	purged, err := s.repo.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "purging expired reservations")
	}
	return purged, nil
}

func parseProductID(raw string) (uuid.UUID, error) {
	pid, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be a valid uuid")
	}
	return pid, nil
}

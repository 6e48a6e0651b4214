package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nmoreno/storefront-checkout/pkg/db/models"
)

// Repository exposes the reservation table operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AcquireProductLock(ctx context.Context, productID uuid.UUID) error
	ActiveQuantity(ctx context.Context, productID uuid.UUID, now time.Time) (int64, error)
	Create(ctx context.Context, reservation *models.StockReservation) error
	ReleaseForSession(ctx context.Context, sessionID string) (int64, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservation repository backed by the provided DB.
func NewRepository(db *gorm.DB) Repository {
	if db == nil {
		return nil
	}
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AcquireProductLock upserts the per-product lock row and writes to it so the
// enclosing transaction holds its row lock. Concurrent reservation attempts
// for the same product serialize here, which keeps the check-and-insert in
// Reserve atomic without FOR UPDATE.
func (r *repository) AcquireProductLock(ctx context.Context, productID uuid.UUID) error {
	lock := models.StockReservationLock{
		ProductID: productID,
		LockedAt:  time.Now().UTC(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"locked_at": lock.LockedAt}),
		}).
		Create(&lock).Error
}

func (r *repository) ActiveQuantity(ctx context.Context, productID uuid.UUID, now time.Time) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.StockReservation{}).
		Select("COALESCE(SUM(qty), 0)").
		Where("product_id = ? AND expires_at > ?", productID, now).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) Create(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// ReleaseForSession removes every reservation held by the cart session,
// called once the order has consumed the stock.
func (r *repository) ReleaseForSession(ctx context.Context, sessionID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Delete(&models.StockReservation{})
	return result.RowsAffected, result.Error
}

// PurgeExpired deletes reservations past their expiry. Availability math
// already excludes them; this is storage hygiene.
func (r *repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.StockReservation{})
	return result.RowsAffected, result.Error
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// StockReservation is a time-boxed hold on inventory quantity for one cart
// session. Rows stop counting against availability once ExpiresAt has passed;
// successful order creation releases them explicitly.
type StockReservation struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	SessionID string    `gorm:"column:session_id;not null;index"`
	Qty       int       `gorm:"column:qty;not null"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// StockReservationLock holds one row per product. Reservation transactions
// update it first so concurrent check-and-insert attempts for the same
// product serialize on the row lock.
type StockReservationLock struct {
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	LockedAt  time.Time `gorm:"column:locked_at;not null"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Reservation is a time-boxed soft hold against available stock, created at
// checkout and consumed, released or expired later.
type Reservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CartID    uuid.UUID               `gorm:"column:cart_id;type:uuid;not null;index"`
	VariantID uuid.UUID               `gorm:"column:variant_id;type:uuid;not null;index"`
	Qty       int                     `gorm:"column:qty;not null"`
	Status    enums.ReservationStatus `gorm:"column:status;type:text;not null;default:'Active'"`
	ExpiresAt time.Time               `gorm:"column:expires_at;not null;index"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

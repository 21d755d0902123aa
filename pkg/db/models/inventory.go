package models

import (
	"time"

	"github.com/google/uuid"
)

// Inventory is the on-hand count for a variant. Quantity is only mutated by
// ledger-producing operations so the stock ledger stays replayable.
type Inventory struct {
	VariantID   uuid.UUID `gorm:"column:variant_id;type:uuid;primaryKey"`
	Quantity    int       `gorm:"column:quantity;not null;default:0"`
	SafetyStock int       `gorm:"column:safety_stock;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

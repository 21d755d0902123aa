package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// StockLedgerEntry records an immutable inventory delta. Replaying all deltas
// for a variant from zero yields its current quantity.
type StockLedgerEntry struct {
	ID        uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	VariantID uuid.UUID          `gorm:"column:variant_id;type:uuid;not null;index"`
	Delta     int                `gorm:"column:delta;not null"`
	Reason    enums.LedgerReason `gorm:"column:reason;type:text;not null"`
	RefType   string             `gorm:"column:ref_type"`
	RefID     *uuid.UUID         `gorm:"column:ref_id;type:uuid"`
	CreatedAt time.Time          `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Refund is an append-only record of money returned against an order. It does
// not flip the order status on its own.
type Refund struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	OrderID    uuid.UUID          `gorm:"column:order_id;type:uuid;not null;index"`
	AmountKobo int64              `gorm:"column:amount_kobo;not null"`
	Method     enums.RefundMethod `gorm:"column:method;type:text;not null"`
	Reason     *string            `gorm:"column:reason"`
	CreatedBy  uuid.UUID          `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Coupon adjusts checkout totals. Value is a percentage for percent coupons
// and a kobo amount for fixed coupons; shipping coupons ignore it.
type Coupon struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Code      string           `gorm:"column:code;uniqueIndex;not null"`
	Type      enums.CouponType `gorm:"column:type;type:text;not null"`
	Value     int64            `gorm:"column:value;not null"`
	Active    bool             `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

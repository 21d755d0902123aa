package models

import (
	"time"

	"github.com/google/uuid"
)

// Product groups sellable variants under one catalog entry.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Title       string    `gorm:"column:title;not null"`
	Slug        string    `gorm:"column:slug;uniqueIndex;not null"`
	Description *string   `gorm:"column:description"`
	Variants    []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Variant is the sellable unit: one SKU with size/color and price. Each
// variant owns exactly one Inventory row.
type Variant struct {
	ID                 uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID          uuid.UUID  `gorm:"column:product_id;type:uuid;not null;index"`
	SKU                string     `gorm:"column:sku;uniqueIndex;not null"`
	Size               *string    `gorm:"column:size"`
	Color              *string    `gorm:"column:color"`
	PriceKobo          int64      `gorm:"column:price_kobo;not null"`
	CompareAtPriceKobo *int64     `gorm:"column:compare_at_price_kobo"`
	Inventory          *Inventory `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// OnSale reports whether the variant currently sells below its compare-at price.
func (v Variant) OnSale() bool {
	return v.CompareAtPriceKobo != nil && *v.CompareAtPriceKobo > v.PriceKobo
}

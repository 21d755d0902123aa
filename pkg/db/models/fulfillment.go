package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Fulfillment tracks packing of a paid order, one per order.
type Fulfillment struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID               `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	Status    enums.FulfillmentStatus `gorm:"column:status;type:text;not null;default:'Processing'"`
	PackedBy  *uuid.UUID              `gorm:"column:packed_by;type:uuid"`
	PackedAt  *time.Time              `gorm:"column:packed_at"`
	Shipment  *Shipment               `gorm:"foreignKey:FulfillmentID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// Shipment tracks the courier leg, one per fulfillment.
type Shipment struct {
	ID            uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	FulfillmentID uuid.UUID            `gorm:"column:fulfillment_id;type:uuid;uniqueIndex;not null"`
	Status        enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'Dispatched'"`
	Courier       *string              `gorm:"column:courier"`
	TrackingID    *string              `gorm:"column:tracking_id"`
	Events        []ShipmentEvent      `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// ShipmentEvent is one entry in the append-only tracking timeline. Every
// accepted shipment transition appends exactly one event.
type ShipmentEvent struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ShipmentID uuid.UUID `gorm:"column:shipment_id;type:uuid;not null;index"`
	Code       string    `gorm:"column:code;not null"`
	Message    string    `gorm:"column:message"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

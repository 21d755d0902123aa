package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/pkg/enums"
	"github.com/nonsonwune/mdv-backend/pkg/types"
)

// Order is created once per checkout-init call. PaymentRef is the idempotency
// key the payment gateway echoes back on every callback.
type Order struct {
	ID               uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	CartID           uuid.UUID          `gorm:"column:cart_id;type:uuid;not null;index"`
	UserID           *uuid.UUID         `gorm:"column:user_id;type:uuid;index"`
	Email            string             `gorm:"column:email;not null"`
	Status           enums.OrderStatus  `gorm:"column:status;type:text;not null;default:'PendingPayment'"`
	Totals           *types.OrderTotals `gorm:"column:totals;type:jsonb;serializer:json"`
	PaymentRef       string             `gorm:"column:payment_ref;uniqueIndex;not null"`
	AuthorizationURL *string            `gorm:"column:authorization_url"`
	PaidAt           *time.Time         `gorm:"column:paid_at"`
	CancelledAt      *time.Time         `gorm:"column:cancelled_at"`
	Items            []OrderItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Address          *Address           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Fulfillment      *Fulfillment       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem is an immutable snapshot of a cart line at order-creation time,
// decoupled from later variant price changes.
type OrderItem struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID       uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	VariantID     uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
	Qty           int       `gorm:"column:qty;not null"`
	UnitPriceKobo int64     `gorm:"column:unit_price_kobo;not null"`
	OnSale        bool      `gorm:"column:on_sale;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

// Address is the shipping address snapshot taken at checkout, one per order.
type Address struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;uniqueIndex;not null"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	State     string    `gorm:"column:state;not null"`
	City      string    `gorm:"column:city;not null"`
	Street    string    `gorm:"column:street;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Zone is a shipping-fee bucket. The zone named "Other Zone" is the fallback
// for unmapped states.
type Zone struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;uniqueIndex;not null"`
	FeeKobo   int64     `gorm:"column:fee_kobo;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// StateZone maps a customer state string onto a zone.
type StateZone struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	State     string    `gorm:"column:state;uniqueIndex;not null"`
	ZoneID    uuid.UUID `gorm:"column:zone_id;type:uuid;not null"`
	Zone      *Zone     `gorm:"foreignKey:ZoneID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

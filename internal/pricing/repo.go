package pricing

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/db/models"
)

// FallbackZoneName is the zone used for states with no explicit mapping.
const FallbackZoneName = "Other Zone"

// Repository reads the shipping-zone map and coupon catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindZoneForState(ctx context.Context, state string) (*models.Zone, error)
	FindZoneByName(ctx context.Context, name string) (*models.Zone, error)
	FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a pricing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindZoneForState(ctx context.Context, state string) (*models.Zone, error) {
	var mapping models.StateZone
	err := r.db.WithContext(ctx).
		Preload("Zone").
		First(&mapping, "state = ?", strings.TrimSpace(state)).Error
	if err != nil {
		return nil, err
	}
	return mapping.Zone, nil
}

func (r *repository) FindZoneByName(ctx context.Context, name string) (*models.Zone, error) {
	var zone models.Zone
	if err := r.db.WithContext(ctx).First(&zone, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &zone, nil
}

func (r *repository) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		First(&coupon, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

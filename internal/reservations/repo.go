package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Repository manages persistence for stock reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, res *models.Reservation) error
	ListActiveByCart(ctx context.Context, cartID uuid.UUID) ([]models.Reservation, error)
	// ConsumeActive flips the Active hold for (cart, variant) to Consumed and
	// reports how many rows changed. Zero rows means there was nothing to
	// consume, which callers treat as a no-op.
	ConsumeActive(ctx context.Context, cartID, variantID uuid.UUID) (int64, error)
	ReleaseActiveByCart(ctx context.Context, cartID uuid.UUID) (int64, error)
	// ExpireBefore marks Active holds whose deadline has passed as Expired,
	// at most limit rows per call.
	ExpireBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a reservation repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, res *models.Reservation) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(res).Error
}

func (r *repository) ListActiveByCart(ctx context.Context, cartID uuid.UUID) ([]models.Reservation, error) {
	var out []models.Reservation
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND status = ?", cartID, enums.ReservationStatusActive).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ConsumeActive(ctx context.Context, cartID, variantID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("cart_id = ? AND variant_id = ? AND status = ?", cartID, variantID, enums.ReservationStatusActive).
		Update("status", enums.ReservationStatusConsumed)
	return result.RowsAffected, result.Error
}

func (r *repository) ReleaseActiveByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("cart_id = ? AND status = ?", cartID, enums.ReservationStatusActive).
		Update("status", enums.ReservationStatusReleased)
	return result.RowsAffected, result.Error
}

func (r *repository) ExpireBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	// subquery keeps the batch bounded; UPDATE ... LIMIT is not portable
	sub := r.db.
		Model(&models.Reservation{}).
		Select("id").
		Where("status = ? AND expires_at < ?", enums.ReservationStatusActive, cutoff).
		Order("expires_at ASC").
		Limit(limit)

	// the outer update re-checks status so a hold consumed between the
	// subquery snapshot and the row lock is left alone
	result := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id IN (?) AND status = ?", sub, enums.ReservationStatusActive).
		Update("status", enums.ReservationStatusExpired)
	return result.RowsAffected, result.Error
}

package checkout

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/db/models"
)

// Repository reads the cart and variant rows checkout snapshots from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error)
	FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a checkout repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) FindVariants(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Variant, error) {
	var rows []models.Variant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]models.Variant, len(rows))
	for _, v := range rows {
		out[v.ID] = v
	}
	return out, nil
}

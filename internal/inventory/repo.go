package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Repository manages persistence for inventory rows and the stock ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByVariant(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error)
	// FindByVariantForUpdate takes a row lock so concurrent availability
	// checks for the same variant serialize.
	FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error)
	UpdateQuantity(ctx context.Context, variantID uuid.UUID, quantity int) error
	SumActiveReservations(ctx context.Context, variantID uuid.UUID, now time.Time) (int, error)
	AppendLedger(ctx context.Context, entry *models.StockLedgerEntry) error
	ListLedger(ctx context.Context, variantID uuid.UUID) ([]models.StockLedgerEntry, error)
	SumLedger(ctx context.Context, variantID uuid.UUID) (int, error)
	VariantIDsMissingInventory(ctx context.Context) ([]uuid.UUID, error)
	CreateMissing(ctx context.Context, variantIDs []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByVariant(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error) {
	var inv models.Inventory
	if err := r.db.WithContext(ctx).First(&inv, "variant_id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) FindByVariantForUpdate(ctx context.Context, variantID uuid.UUID) (*models.Inventory, error) {
	query := r.db.WithContext(ctx)
	// sqlite (tests) has no FOR UPDATE; single-writer semantics cover it there.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var inv models.Inventory
	if err := query.First(&inv, "variant_id = ?", variantID).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repository) UpdateQuantity(ctx context.Context, variantID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.Inventory{}).
		Where("variant_id = ?", variantID).
		Update("quantity", quantity).Error
}

func (r *repository) SumActiveReservations(ctx context.Context, variantID uuid.UUID, now time.Time) (int, error) {
	var total *int
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("SUM(qty)").
		Where("variant_id = ? AND status = ? AND expires_at > ?", variantID, enums.ReservationStatusActive, now).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) AppendLedger(ctx context.Context, entry *models.StockLedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListLedger(ctx context.Context, variantID uuid.UUID) ([]models.StockLedgerEntry, error) {
	var entries []models.StockLedgerEntry
	if err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumLedger(ctx context.Context, variantID uuid.UUID) (int, error) {
	var total *int
	err := r.db.WithContext(ctx).
		Model(&models.StockLedgerEntry{}).
		Select("SUM(delta)").
		Where("variant_id = ?", variantID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) VariantIDsMissingInventory(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Select("variants.id").
		Joins("LEFT JOIN inventories ON inventories.variant_id = variants.id").
		Where("inventories.variant_id IS NULL").
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repository) CreateMissing(ctx context.Context, variantIDs []uuid.UUID) error {
	if len(variantIDs) == 0 {
		return nil
	}
	rows := make([]models.Inventory, 0, len(variantIDs))
	for _, id := range variantIDs {
		rows = append(rows, models.Inventory{VariantID: id})
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
)

// Repository manages persistence for fulfillments, shipments and the
// shipment timeline.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Fulfillment, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// MarkReadyIf flips Processing to ReadyToShip only while the row still
	// holds the expected status.
	MarkReadyIf(ctx context.Context, fulfillmentID uuid.UUID, packedBy uuid.UUID, packedAt time.Time) (int64, error)
	CreateShipment(ctx context.Context, shipment *models.Shipment) error
	FindShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error)
	// UpdateShipmentStatusIf flips the shipment only while it still holds the
	// expected status, so a lost race produces zero rows and no event.
	UpdateShipmentStatusIf(ctx context.Context, shipmentID uuid.UUID, expected, next enums.ShipmentStatus) (int64, error)
	AppendShipmentEvent(ctx context.Context, event *models.ShipmentEvent) error
	ListShipmentEvents(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a fulfillment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	err := r.db.WithContext(ctx).
		Preload("Shipment").
		First(&fulfillment, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &fulfillment, nil
}

func (r *repository) FindByOrder(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	err := r.db.WithContext(ctx).
		Preload("Shipment").
		First(&fulfillment, "order_id = ?", orderID).Error
	if err != nil {
		return nil, err
	}
	return &fulfillment, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) MarkReadyIf(ctx context.Context, fulfillmentID uuid.UUID, packedBy uuid.UUID, packedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Fulfillment{}).
		Where("id = ? AND status = ?", fulfillmentID, enums.FulfillmentStatusProcessing).
		Updates(map[string]any{
			"status":    enums.FulfillmentStatusReadyToShip,
			"packed_by": packedBy,
			"packed_at": packedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	if shipment.ID == uuid.Nil {
		shipment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(shipment).Error
}

func (r *repository) FindShipment(ctx context.Context, shipmentID uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).First(&shipment, "id = ?", shipmentID).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func (r *repository) UpdateShipmentStatusIf(ctx context.Context, shipmentID uuid.UUID, expected, next enums.ShipmentStatus) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Shipment{}).
		Where("id = ? AND status = ?", shipmentID, expected).
		Update("status", next)
	return result.RowsAffected, result.Error
}

func (r *repository) AppendShipmentEvent(ctx context.Context, event *models.ShipmentEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListShipmentEvents(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentEvent, error) {
	var events []models.ShipmentEvent
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		Order("occurred_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/internal/audit"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
	"github.com/nonsonwune/mdv-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateShipmentInput hands a packed fulfillment to a courier.
type CreateShipmentInput struct {
	FulfillmentID uuid.UUID
	Courier       *string
	TrackingID    *string
	ActorID       uuid.UUID
}

// Service drives the post-payment pack/ship/deliver lifecycle. Every accepted
// shipment transition appends exactly one timeline event; rejected ones append
// nothing.
type Service interface {
	GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error)
	MarkReadyToShip(ctx context.Context, fulfillmentID, actorID uuid.UUID) (*models.Fulfillment, error)
	CreateShipment(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error)
	TransitionShipment(ctx context.Context, shipmentID uuid.UUID, next enums.ShipmentStatus, message string, actorID uuid.UUID) (*models.Shipment, error)
	Timeline(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentEvent, error)
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox *outbox.Service
	audit  audit.Sink
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the fulfillment service.
func NewService(tx txRunner, repo Repository, outboxSvc *outbox.Service, auditSink audit.Sink, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("fulfillment repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if auditSink == nil {
		auditSink = audit.Noop{}
	}
	return &service{tx: tx, repo: repo, outbox: outboxSvc, audit: auditSink, logg: logg, now: time.Now}, nil
}

func (s *service) GetByOrder(ctx context.Context, orderID uuid.UUID) (*models.Fulfillment, error) {
	fulfillment, err := s.repo.FindByOrder(ctx, orderID)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment not found")
	}
	if err != nil {
		return nil, err
	}
	return fulfillment, nil
}

func (s *service) MarkReadyToShip(ctx context.Context, fulfillmentID, actorID uuid.UUID) (*models.Fulfillment, error) {
	if fulfillmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fulfillment id required")
	}
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		fulfillment, err := repo.FindByID(ctx, fulfillmentID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment not found")
		}
		if err != nil {
			return err
		}

		order, err := repo.FindOrder(ctx, fulfillment.OrderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paid").
				WithDetails(map[string]any{"order_status": order.Status})
		}
		if fulfillment.Status != enums.FulfillmentStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment is not processing").
				WithDetails(map[string]any{"status": fulfillment.Status})
		}

		rows, err := repo.MarkReadyIf(ctx, fulfillmentID, actorID, s.now())
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment changed concurrently")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   "fulfillment.ready_to_ship",
		Entity:   "fulfillment",
		EntityID: fulfillmentID,
		Before:   enums.FulfillmentStatusProcessing,
		After:    enums.FulfillmentStatusReadyToShip,
	})
	fulfillment, err := s.repo.FindByID(ctx, fulfillmentID)
	if err != nil {
		return nil, err
	}
	return fulfillment, nil
}

func (s *service) CreateShipment(ctx context.Context, input CreateShipmentInput) (*models.Shipment, error) {
	if input.FulfillmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fulfillment id required")
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	shipment := &models.Shipment{
		FulfillmentID: input.FulfillmentID,
		Status:        enums.ShipmentStatusDispatched,
		Courier:       input.Courier,
		TrackingID:    input.TrackingID,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		fulfillment, err := repo.FindByID(ctx, input.FulfillmentID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "fulfillment not found")
		}
		if err != nil {
			return err
		}
		if fulfillment.Status != enums.FulfillmentStatusReadyToShip {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "fulfillment is not ready to ship").
				WithDetails(map[string]any{"status": fulfillment.Status})
		}
		if fulfillment.Shipment != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "shipment already exists")
		}

		if err := repo.CreateShipment(ctx, shipment); err != nil {
			return err
		}
		if err := repo.AppendShipmentEvent(ctx, &models.ShipmentEvent{
			ShipmentID: shipment.ID,
			Code:       enums.ShipmentStatusDispatched.String(),
			Message:    "handed to courier",
			OccurredAt: s.now(),
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventShipmentDispatched,
			AggregateType: "shipment",
			AggregateID:   shipment.ID,
			Actor:         outbox.ActorFor(input.ActorID),
			Data: map[string]any{
				"shipment_id":    shipment.ID,
				"fulfillment_id": input.FulfillmentID,
				"order_id":       fulfillment.OrderID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  input.ActorID,
		Action:   "shipment.create",
		Entity:   "shipment",
		EntityID: shipment.ID,
		After:    enums.ShipmentStatusDispatched,
	})
	return shipment, nil
}

func (s *service) TransitionShipment(ctx context.Context, shipmentID uuid.UUID, next enums.ShipmentStatus, message string, actorID uuid.UUID) (*models.Shipment, error) {
	if shipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid shipment status %q", next))
	}

	var previous enums.ShipmentStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		shipment, err := repo.FindShipment(ctx, shipmentID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
		}
		if err != nil {
			return err
		}
		if !shipment.Status.CanTransitionTo(next) {
			// rejected transitions change nothing: no status write, no event
			return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid shipment transition").
				WithDetails(map[string]any{"from": shipment.Status, "to": next})
		}
		previous = shipment.Status

		rows, err := repo.UpdateShipmentStatusIf(ctx, shipmentID, shipment.Status, next)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "shipment changed concurrently")
		}

		if err := repo.AppendShipmentEvent(ctx, &models.ShipmentEvent{
			ShipmentID: shipmentID,
			Code:       next.String(),
			Message:    message,
			OccurredAt: s.now(),
		}); err != nil {
			return err
		}

		if eventType, ok := outboxEventFor(next); ok {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     eventType,
				AggregateType: "shipment",
				AggregateID:   shipmentID,
				Actor:         outbox.ActorFor(actorID),
				Data: map[string]any{
					"shipment_id": shipmentID,
					"from":        previous,
					"to":          next,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   "shipment.transition",
		Entity:   "shipment",
		EntityID: shipmentID,
		Before:   previous,
		After:    next,
	})
	return s.repo.FindShipment(ctx, shipmentID)
}

func (s *service) Timeline(ctx context.Context, shipmentID uuid.UUID) ([]models.ShipmentEvent, error) {
	if shipmentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipment id required")
	}
	if _, err := s.repo.FindShipment(ctx, shipmentID); err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shipment not found")
	} else if err != nil {
		return nil, err
	}
	return s.repo.ListShipmentEvents(ctx, shipmentID)
}

func outboxEventFor(status enums.ShipmentStatus) (enums.OutboxEventType, bool) {
	switch status {
	case enums.ShipmentStatusDelivered:
		return enums.OutboxEventShipmentDelivered, true
	case enums.ShipmentStatusReturned:
		return enums.OutboxEventShipmentReturned, true
	default:
		return "", false
	}
}

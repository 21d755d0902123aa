package fulfillment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/internal/audit"
	"github.com/nonsonwune/mdv-backend/pkg/db"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/outbox"
)

func TestMarkReadyToShip(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	orderID := seedOrder(t, conn, enums.OrderStatusPaid)
	fulfillmentID := seedFulfillment(t, conn, orderID, enums.FulfillmentStatusProcessing)
	actorID := uuid.New()

	got, err := svc.MarkReadyToShip(ctx, fulfillmentID, actorID)
	if err != nil {
		t.Fatalf("mark ready: %v", err)
	}
	if got.Status != enums.FulfillmentStatusReadyToShip {
		t.Fatalf("expected ReadyToShip, got %s", got.Status)
	}
	if got.PackedBy == nil || *got.PackedBy != actorID || got.PackedAt == nil {
		t.Fatalf("expected packer recorded, got %+v", got)
	}
}

func TestMarkReadyToShipRequiresPaidOrder(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)

	orderID := seedOrder(t, conn, enums.OrderStatusPendingPayment)
	fulfillmentID := seedFulfillment(t, conn, orderID, enums.FulfillmentStatusProcessing)

	_, err := svc.MarkReadyToShip(context.Background(), fulfillmentID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	var got models.Fulfillment
	if err := conn.First(&got, "id = ?", fulfillmentID).Error; err != nil {
		t.Fatalf("load fulfillment: %v", err)
	}
	if got.Status != enums.FulfillmentStatusProcessing {
		t.Fatalf("guard must leave status unchanged, got %s", got.Status)
	}
}

func TestCreateShipmentGuards(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	orderID := seedOrder(t, conn, enums.OrderStatusPaid)
	processing := seedFulfillment(t, conn, orderID, enums.FulfillmentStatusProcessing)

	_, err := svc.CreateShipment(ctx, CreateShipmentInput{FulfillmentID: processing, ActorID: uuid.New()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for processing fulfillment, got %v", err)
	}

	_, err = svc.CreateShipment(ctx, CreateShipmentInput{FulfillmentID: uuid.New(), ActorID: uuid.New()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateShipmentDispatchesWithEvent(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	orderID := seedOrder(t, conn, enums.OrderStatusPaid)
	fulfillmentID := seedFulfillment(t, conn, orderID, enums.FulfillmentStatusReadyToShip)
	courier := "GIG Logistics"

	shipment, err := svc.CreateShipment(ctx, CreateShipmentInput{
		FulfillmentID: fulfillmentID,
		Courier:       &courier,
		ActorID:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("create shipment: %v", err)
	}
	if shipment.Status != enums.ShipmentStatusDispatched {
		t.Fatalf("expected Dispatched, got %s", shipment.Status)
	}

	events, err := svc.Timeline(ctx, shipment.ID)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(events) != 1 || events[0].Code != enums.ShipmentStatusDispatched.String() {
		t.Fatalf("expected single dispatch event, got %+v", events)
	}

	var outboxCount int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.OutboxEventShipmentDispatched).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected dispatch outbox event, got %d", outboxCount)
	}

	// one shipment per fulfillment
	_, err = svc.CreateShipment(ctx, CreateShipmentInput{FulfillmentID: fulfillmentID, ActorID: uuid.New()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on duplicate shipment, got %v", err)
	}
}

func TestTransitionShipmentTable(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	cases := []struct {
		from    enums.ShipmentStatus
		to      enums.ShipmentStatus
		allowed bool
	}{
		{enums.ShipmentStatusDispatched, enums.ShipmentStatusInTransit, true},
		{enums.ShipmentStatusDispatched, enums.ShipmentStatusDelivered, false},
		{enums.ShipmentStatusDispatched, enums.ShipmentStatusReturned, false},
		{enums.ShipmentStatusInTransit, enums.ShipmentStatusDelivered, true},
		{enums.ShipmentStatusInTransit, enums.ShipmentStatusReturned, true},
		{enums.ShipmentStatusInTransit, enums.ShipmentStatusDispatched, false},
		{enums.ShipmentStatusDelivered, enums.ShipmentStatusReturned, false},
		{enums.ShipmentStatusReturned, enums.ShipmentStatusInTransit, false},
	}

	for _, tc := range cases {
		shipmentID := seedShipment(t, conn, tc.from)

		got, err := svc.TransitionShipment(ctx, shipmentID, tc.to, "", uuid.New())
		if tc.allowed {
			if err != nil {
				t.Fatalf("%s -> %s: expected success, got %v", tc.from, tc.to, err)
			}
			if got.Status != tc.to {
				t.Fatalf("%s -> %s: status not updated, got %s", tc.from, tc.to, got.Status)
			}
			events, err := svc.Timeline(ctx, shipmentID)
			if err != nil {
				t.Fatalf("timeline: %v", err)
			}
			if len(events) != 1 || events[0].Code != tc.to.String() {
				t.Fatalf("%s -> %s: expected exactly one event, got %+v", tc.from, tc.to, events)
			}
			continue
		}

		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
			t.Fatalf("%s -> %s: expected state conflict, got %v", tc.from, tc.to, err)
		}
		var current models.Shipment
		if err := conn.First(&current, "id = ?", shipmentID).Error; err != nil {
			t.Fatalf("load shipment: %v", err)
		}
		if current.Status != tc.from {
			t.Fatalf("%s -> %s: rejected transition must not change status, got %s", tc.from, tc.to, current.Status)
		}
		var eventCount int64
		if err := conn.Model(&models.ShipmentEvent{}).Where("shipment_id = ?", shipmentID).Count(&eventCount).Error; err != nil {
			t.Fatalf("count events: %v", err)
		}
		if eventCount != 0 {
			t.Fatalf("%s -> %s: rejected transition must not append events, got %d", tc.from, tc.to, eventCount)
		}
	}
}

func TestTransitionShipmentEmitsTerminalOutboxEvents(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	shipmentID := seedShipment(t, conn, enums.ShipmentStatusInTransit)
	if _, err := svc.TransitionShipment(ctx, shipmentID, enums.ShipmentStatusDelivered, "left at gate", uuid.New()); err != nil {
		t.Fatalf("transition: %v", err)
	}

	var outboxCount int64
	if err := conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.OutboxEventShipmentDelivered).
		Count(&outboxCount).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	if outboxCount != 1 {
		t.Fatalf("expected delivered outbox event, got %d", outboxCount)
	}
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	client := db.NewWithConn(conn, nil)
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(client, NewRepository(conn), outboxSvc, audit.Noop{}, nil)
	if err != nil {
		t.Fatalf("fulfillment service: %v", err)
	}
	return svc
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:fulfillment_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Order{},
		&models.Fulfillment{},
		&models.Shipment{},
		&models.ShipmentEvent{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func seedOrder(t *testing.T, conn *gorm.DB, status enums.OrderStatus) uuid.UUID {
	t.Helper()
	order := models.Order{
		ID:         uuid.New(),
		CartID:     uuid.New(),
		Email:      "customer@example.com",
		Status:     status,
		PaymentRef: "MDV-" + uuid.NewString(),
	}
	if err := conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order.ID
}

func seedFulfillment(t *testing.T, conn *gorm.DB, orderID uuid.UUID, status enums.FulfillmentStatus) uuid.UUID {
	t.Helper()
	fulfillment := models.Fulfillment{ID: uuid.New(), OrderID: orderID, Status: status}
	if err := conn.Create(&fulfillment).Error; err != nil {
		t.Fatalf("seed fulfillment: %v", err)
	}
	return fulfillment.ID
}

func seedShipment(t *testing.T, conn *gorm.DB, status enums.ShipmentStatus) uuid.UUID {
	t.Helper()
	orderID := seedOrder(t, conn, enums.OrderStatusPaid)
	fulfillmentID := seedFulfillment(t, conn, orderID, enums.FulfillmentStatusReadyToShip)
	shipment := models.Shipment{ID: uuid.New(), FulfillmentID: fulfillmentID, Status: status}
	if err := conn.Create(&shipment).Error; err != nil {
		t.Fatalf("seed shipment: %v", err)
	}
	return shipment.ID
}

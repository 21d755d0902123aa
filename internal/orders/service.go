package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/internal/audit"
	"github.com/nonsonwune/mdv-backend/internal/inventory"
	"github.com/nonsonwune/mdv-backend/internal/reservations"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
	"github.com/nonsonwune/mdv-backend/pkg/outbox"
	"github.com/nonsonwune/mdv-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PaymentOutcome reports what MarkPaidByReference did. Applied is false both
// for unknown references and for repeat deliveries that lost the status flip.
type PaymentOutcome struct {
	Found   bool
	Applied bool
	OrderID uuid.UUID
	CartID  uuid.UUID
}

// RefundInput describes a staff-recorded refund against a paid order.
type RefundInput struct {
	OrderID    uuid.UUID
	AmountKobo int64
	Method     enums.RefundMethod
	Reason     *string
	ActorID    uuid.UUID
}

// Service owns the order state machine. All forward motion goes through
// conditional updates so concurrent writers cannot double-apply side effects.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, string, error)
	// MarkPaidByReference flips the order to Paid and, in the same
	// transaction, creates the fulfillment, decrements inventory with ledger
	// entries, consumes reservations and clears the cart. Safe to call any
	// number of times per reference.
	MarkPaidByReference(ctx context.Context, reference string) (*PaymentOutcome, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	Refund(ctx context.Context, input RefundInput) (*models.Refund, error)
}

type service struct {
	tx           txRunner
	repo         Repository
	inventory    inventory.Service
	reservations reservations.Service
	outbox       *outbox.Service
	audit        audit.Sink
	logg         *logger.Logger
	now          func() time.Time
}

// NewService wires the order service.
func NewService(
	tx txRunner,
	repo Repository,
	inventorySvc inventory.Service,
	reservationSvc reservations.Service,
	outboxSvc *outbox.Service,
	auditSink audit.Sink,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if reservationSvc == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if auditSink == nil {
		auditSink = audit.Noop{}
	}
	return &service{
		tx:           tx,
		repo:         repo,
		inventory:    inventorySvc,
		reservations: reservationSvc,
		outbox:       outboxSvc,
		audit:        auditSink,
		logg:         logg,
		now:          time.Now,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	order, err := s.repo.FindByPaymentRef(ctx, reference)
	if err == gorm.ErrRecordNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filter ListFilter, page pagination.Params) ([]models.Order, string, error) {
	return s.repo.List(ctx, filter, page)
}

func (s *service) MarkPaidByReference(ctx context.Context, reference string) (*PaymentOutcome, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	outcome := &PaymentOutcome{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByPaymentRef(ctx, reference)
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		outcome.Found = true
		outcome.OrderID = order.ID
		outcome.CartID = order.CartID

		rows, err := repo.MarkPaidIfPending(ctx, order.ID, s.now())
		if err != nil {
			return err
		}
		if rows == 0 {
			// repeat delivery or terminal order, side effects already done
			return nil
		}
		outcome.Applied = true

		if _, err := repo.EnsureFulfillment(ctx, order.ID); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := s.inventory.DecrementOnPayment(ctx, tx, item.VariantID, item.Qty, order.ID); err != nil {
				return err
			}
			if err := s.reservations.ConsumeForOrder(ctx, tx, order.CartID, item.VariantID); err != nil {
				return err
			}
		}
		if err := repo.DeleteCartItems(ctx, order.CartID); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPaid,
			AggregateType: "order",
			AggregateID:   order.ID,
			Data: map[string]any{
				"order_id":    order.ID,
				"payment_ref": order.PaymentRef,
				"cart_id":     order.CartID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if outcome.Applied {
		ctx = s.withOrderLog(ctx, outcome.OrderID, reference)
		if s.logg != nil {
			s.logg.Info(ctx, "order marked paid")
		}
		s.audit.Record(ctx, audit.Entry{
			Action:   "order.mark_paid",
			Entity:   "order",
			EntityID: outcome.OrderID,
			Before:   enums.OrderStatusPendingPayment,
			After:    enums.OrderStatusPaid,
		})
	}
	return outcome, nil
}

func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var previous enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return err
		}

		switch order.Status {
		case enums.OrderStatusPendingPayment:
		case enums.OrderStatusPaid:
			shipped, err := repo.ShipmentExists(ctx, order.ID)
			if err != nil {
				return err
			}
			if shipped {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a shipment").
					WithDetails(map[string]any{"order_id": order.ID})
			}
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be cancelled").
				WithDetails(map[string]any{"status": order.Status})
		}
		previous = order.Status

		rows, err := repo.MarkCancelledIf(ctx, order.ID, order.Status, s.now())
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order changed concurrently")
		}

		// compensate in the same transaction: a pending cancel gives the
		// holds back, a paid cancel returns stock that never shipped
		switch previous {
		case enums.OrderStatusPendingPayment:
			if _, err := s.reservations.ReleaseForCart(ctx, tx, order.CartID); err != nil {
				return err
			}
		case enums.OrderStatusPaid:
			for _, item := range order.Items {
				if err := s.inventory.RestockOnCancel(ctx, tx, item.VariantID, item.Qty, order.ID); err != nil {
					return err
				}
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCancelled,
			AggregateType: "order",
			AggregateID:   order.ID,
			Actor:         outbox.ActorFor(actorID),
			Data: map[string]any{
				"order_id": order.ID,
				"from":     previous,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  actorID,
		Action:   "order.cancel",
		Entity:   "order",
		EntityID: orderID,
		Before:   previous,
		After:    enums.OrderStatusCancelled,
	})
	return s.Get(ctx, orderID)
}

func (s *service) Refund(ctx context.Context, input RefundInput) (*models.Refund, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AmountKobo <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "refund amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid refund method %q", input.Method))
	}
	if input.ActorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor id required")
	}

	refund := &models.Refund{
		OrderID:    input.OrderID,
		AmountKobo: input.AmountKobo,
		Method:     input.Method,
		Reason:     input.Reason,
		CreatedBy:  input.ActorID,
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, input.OrderID)
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPaid && order.Status != enums.OrderStatusRefunded {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only paid orders can be refunded").
				WithDetails(map[string]any{"status": order.Status})
		}

		if err := repo.CreateRefund(ctx, refund); err != nil {
			return err
		}

		// the refund record does not flip order status or reverse inventory
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderRefundLogged,
			AggregateType: "order",
			AggregateID:   order.ID,
			Actor:         outbox.ActorFor(input.ActorID),
			Data: map[string]any{
				"order_id":    order.ID,
				"refund_id":   refund.ID,
				"amount_kobo": input.AmountKobo,
				"method":      input.Method,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, audit.Entry{
		ActorID:  input.ActorID,
		Action:   "order.refund_logged",
		Entity:   "order",
		EntityID: input.OrderID,
		After:    map[string]any{"amount_kobo": input.AmountKobo, "method": input.Method},
	})
	return refund, nil
}

func (s *service) withOrderLog(ctx context.Context, orderID uuid.UUID, reference string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithPaymentRef(s.logg.WithOrderID(ctx, orderID.String()), reference)
}

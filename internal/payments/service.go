package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nonsonwune/mdv-backend/internal/orders"
	"github.com/nonsonwune/mdv-backend/internal/reservations"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
	"github.com/nonsonwune/mdv-backend/pkg/paystack"
	"github.com/nonsonwune/mdv-backend/pkg/redis"
)

const idempotencyTTL = 24 * time.Hour

// Event is one parsed gateway callback.
type Event struct {
	Type string    `json:"event"`
	Data EventData `json:"data"`
}

// EventData carries the fields reconciliation reads; the rest of the gateway
// payload is ignored.
type EventData struct {
	Reference string `json:"reference"`
}

// Outcome describes what a delivery did, for logging and webhook responses.
type Outcome struct {
	Handled bool
	Applied bool
	Action  string
}

// Verifier is the slice of the gateway client manual verification needs.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// Service reconciles gateway callbacks against the order state machine. The
// database path is idempotent on its own; redis only short-circuits repeat
// deliveries cheaply.
type Service interface {
	HandleEvent(ctx context.Context, event Event) (*Outcome, error)
	// ManualVerify asks the gateway synchronously and, on success, re-enters
	// the same idempotent success path a webhook would take.
	ManualVerify(ctx context.Context, reference string) (bool, json.RawMessage, error)
	ParseEvent(raw []byte) (*Event, error)
}

type service struct {
	orders       orders.Service
	reservations reservations.Service
	verifier     Verifier
	idempotency  redis.IdempotencyStore
	logg         *logger.Logger
}

// NewService wires the payment reconciliation service. idempotency may be nil;
// the database then carries deduplication alone.
func NewService(
	orderSvc orders.Service,
	reservationSvc reservations.Service,
	verifier Verifier,
	idempotency redis.IdempotencyStore,
	logg *logger.Logger,
) (Service, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("order service required")
	}
	if reservationSvc == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if verifier == nil {
		return nil, fmt.Errorf("gateway verifier required")
	}
	return &service{
		orders:       orderSvc,
		reservations: reservationSvc,
		verifier:     verifier,
		idempotency:  idempotency,
		logg:         logg,
	}, nil
}

func (s *service) ParseEvent(raw []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed event payload")
	}
	if event.Type == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event type missing")
	}
	return &event, nil
}

func (s *service) HandleEvent(ctx context.Context, event Event) (*Outcome, error) {
	switch event.Type {
	case "charge.success", "transfer.success", "paymentrequest.success":
		return s.handleSuccess(ctx, event)
	case "charge.failed", "transfer.failed":
		return s.handleFailure(ctx, event)
	default:
		// foreign or future event types pass through untouched
		return &Outcome{Handled: false, Action: "ignored"}, nil
	}
}

func (s *service) handleSuccess(ctx context.Context, event Event) (*Outcome, error) {
	if event.Data.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event reference missing")
	}
	ctx = s.withRefLog(ctx, event.Data.Reference)

	if s.alreadySeen(ctx, event) {
		return &Outcome{Handled: true, Action: "duplicate_delivery"}, nil
	}

	outcome, err := s.orders.MarkPaidByReference(ctx, event.Data.Reference)
	if err != nil {
		return nil, err
	}
	if !outcome.Found {
		if s.logg != nil {
			s.logg.Warn(ctx, "payment event for unknown reference ignored")
		}
		return &Outcome{Handled: true, Action: "unknown_reference"}, nil
	}
	s.markSeen(ctx, event)
	if outcome.Applied {
		return &Outcome{Handled: true, Applied: true, Action: "order_paid"}, nil
	}
	return &Outcome{Handled: true, Action: "already_paid"}, nil
}

func (s *service) handleFailure(ctx context.Context, event Event) (*Outcome, error) {
	if event.Data.Reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event reference missing")
	}
	ctx = s.withRefLog(ctx, event.Data.Reference)

	order, err := s.orders.FindByReference(ctx, event.Data.Reference)
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
		return &Outcome{Handled: true, Action: "unknown_reference"}, nil
	}
	if err != nil {
		return nil, err
	}

	// the order stays PendingPayment so the customer can retry; only the
	// stock holds are returned
	released, err := s.reservations.ReleaseByCart(ctx, order.CartID)
	if err != nil {
		return nil, err
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "released", released), "payment failed, holds released")
	}
	return &Outcome{Handled: true, Applied: released > 0, Action: "reservations_released"}, nil
}

func (s *service) ManualVerify(ctx context.Context, reference string) (bool, json.RawMessage, error) {
	if reference == "" {
		return false, nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}

	result, err := s.verifier.Verify(ctx, reference)
	if err != nil {
		return false, nil, err
	}
	if !result.Success() {
		return false, result.Raw, nil
	}

	if _, err := s.HandleEvent(ctx, Event{
		Type: "charge.success",
		Data: EventData{Reference: reference},
	}); err != nil {
		return false, nil, err
	}
	return true, result.Raw, nil
}

// alreadySeen reports whether this exact event was processed recently. Any
// redis failure falls through to the database path.
func (s *service) alreadySeen(ctx context.Context, event Event) bool {
	if s.idempotency == nil {
		return false
	}
	key := s.idempotency.IdempotencyKey("webhook", event.Type+":"+event.Data.Reference)
	value, err := s.idempotency.Get(ctx, key)
	return err == nil && value != ""
}

func (s *service) markSeen(ctx context.Context, event Event) {
	if s.idempotency == nil {
		return
	}
	key := s.idempotency.IdempotencyKey("webhook", event.Type+":"+event.Data.Reference)
	if _, err := s.idempotency.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), idempotencyTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "key", key), "idempotency marker write failed")
	}
}

func (s *service) withRefLog(ctx context.Context, reference string) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithPaymentRef(ctx, reference)
}

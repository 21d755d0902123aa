package reservations

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/internal/inventory"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages time-boxed stock holds: created at checkout, consumed on
// payment, released on failure, expired by the sweeper.
type Service interface {
	// Reserve places a hold inside the caller's transaction. The inventory
	// row is locked first so concurrent holds for the same variant serialize.
	Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*models.Reservation, error)
	// ConsumeForOrder finalizes the Active hold for (cart, variant). Missing
	// or already-terminal holds are a no-op so payment processing never
	// fails on them.
	ConsumeForOrder(ctx context.Context, tx *gorm.DB, cartID, variantID uuid.UUID) error
	ReleaseByCart(ctx context.Context, cartID uuid.UUID) (int64, error)
	// ReleaseForCart releases the cart's Active holds inside the caller's
	// transaction, for callers compensating a cancel atomically.
	ReleaseForCart(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (int64, error)
	SweepExpired(ctx context.Context, batch int) (int64, error)
}

// ReserveInput describes one hold request.
type ReserveInput struct {
	CartID    uuid.UUID
	VariantID uuid.UUID
	Qty       int
}

type service struct {
	tx        txRunner
	repo      Repository
	inventory inventory.Service
	ttl       time.Duration
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the reservation service. ttl bounds how long a hold stays
// active before the sweeper reclaims it.
func NewService(tx txRunner, repo Repository, inventorySvc inventory.Service, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if inventorySvc == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	return &service{tx: tx, repo: repo, inventory: inventorySvc, ttl: ttl, logg: logg, now: time.Now}, nil
}

func (s *service) Reserve(ctx context.Context, tx *gorm.DB, input ReserveInput) (*models.Reservation, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.CartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if input.Qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}

	available, err := s.inventory.AvailableTx(ctx, tx, input.VariantID, true)
	if err != nil {
		return nil, err
	}
	if input.Qty > available {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
			WithDetails(map[string]any{
				"variant_id": input.VariantID,
				"requested":  input.Qty,
				"available":  available,
			})
	}

	res := &models.Reservation{
		CartID:    input.CartID,
		VariantID: input.VariantID,
		Qty:       input.Qty,
		Status:    enums.ReservationStatusActive,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.repo.WithTx(tx).Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) ConsumeForOrder(ctx context.Context, tx *gorm.DB, cartID, variantID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	_, err := s.repo.WithTx(tx).ConsumeActive(ctx, cartID, variantID)
	return err
}

func (s *service) ReleaseForCart(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) (int64, error) {
	if tx == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if cartID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	return s.repo.WithTx(tx).ReleaseActiveByCart(ctx, cartID)
}

func (s *service) ReleaseByCart(ctx context.Context, cartID uuid.UUID) (int64, error) {
	if cartID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}
	var released int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		released, txErr = s.ReleaseForCart(ctx, tx, cartID)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	if released > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"cart_id": cartID, "released": released}), "reservations released")
	}
	return released, nil
}

func (s *service) SweepExpired(ctx context.Context, batch int) (int64, error) {
	if batch <= 0 {
		batch = 100
	}
	var expired int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		expired, txErr = s.repo.WithTx(tx).ExpireBefore(ctx, s.now(), batch)
		return txErr
	})
	if err != nil {
		return 0, err
	}
	return expired, nil
}

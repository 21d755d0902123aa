package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns every mutation of inventory quantity. Each mutation appends a
// ledger entry so the quantity stays replayable from deltas.
type Service interface {
	// Available computes quantity minus safety stock minus active unexpired
	// reservations, clamped at zero. Callers inside a transaction that need
	// the row locked should use AvailableTx.
	Available(ctx context.Context, variantID uuid.UUID) (int, error)
	AvailableTx(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, lock bool) (int, error)
	// DecrementOnPayment reduces quantity (clamped at zero) and appends an
	// order_paid ledger entry. Runs inside the caller's transaction.
	DecrementOnPayment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int, orderID uuid.UUID) error
	// RestockOnCancel returns quantity for goods that never shipped and
	// appends a restock ledger entry. Runs inside the caller's transaction.
	RestockOnCancel(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int, orderID uuid.UUID) error
	Adjust(ctx context.Context, input AdjustInput) (*models.StockLedgerEntry, error)
	EnsureRecordsExist(ctx context.Context) (int, error)
	ListLedger(ctx context.Context, variantID uuid.UUID) ([]models.StockLedgerEntry, error)
}

// AdjustInput is a manual stock correction.
type AdjustInput struct {
	VariantID uuid.UUID
	Delta     int
	Reason    enums.LedgerReason
	RefType   string
	RefID     *uuid.UUID
}

type service struct {
	tx   txRunner
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the inventory service.
func NewService(tx txRunner, repo Repository, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{tx: tx, repo: repo, logg: logg, now: time.Now}, nil
}

func (s *service) Available(ctx context.Context, variantID uuid.UUID) (int, error) {
	var available int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		available, txErr = s.AvailableTx(ctx, tx, variantID, false)
		return txErr
	})
	return available, err
}

func (s *service) AvailableTx(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, lock bool) (int, error) {
	repo := s.repo.WithTx(tx)

	var inv *models.Inventory
	var err error
	if lock {
		inv, err = repo.FindByVariantForUpdate(ctx, variantID)
	} else {
		inv, err = repo.FindByVariant(ctx, variantID)
	}
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return 0, err
	}

	reserved, err := repo.SumActiveReservations(ctx, variantID, s.now())
	if err != nil {
		return 0, err
	}

	available := inv.Quantity - inv.SafetyStock - reserved
	if available < 0 {
		available = 0
	}
	return available, nil
}

func (s *service) DecrementOnPayment(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	repo := s.repo.WithTx(tx)

	inv, err := repo.FindByVariantForUpdate(ctx, variantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return err
	}

	next := inv.Quantity - qty
	if next < 0 {
		next = 0
	}
	if err := repo.UpdateQuantity(ctx, variantID, next); err != nil {
		return err
	}

	refID := orderID
	return repo.AppendLedger(ctx, &models.StockLedgerEntry{
		VariantID: variantID,
		Delta:     next - inv.Quantity,
		Reason:    enums.LedgerReasonOrderPaid,
		RefType:   "order",
		RefID:     &refID,
	})
}

func (s *service) RestockOnCancel(ctx context.Context, tx *gorm.DB, variantID uuid.UUID, qty int, orderID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "qty must be positive")
	}
	repo := s.repo.WithTx(tx)

	inv, err := repo.FindByVariantForUpdate(ctx, variantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
		}
		return err
	}

	if err := repo.UpdateQuantity(ctx, variantID, inv.Quantity+qty); err != nil {
		return err
	}

	refID := orderID
	return repo.AppendLedger(ctx, &models.StockLedgerEntry{
		VariantID: variantID,
		Delta:     qty,
		Reason:    enums.LedgerReasonRestock,
		RefType:   "order",
		RefID:     &refID,
	})
}

func (s *service) Adjust(ctx context.Context, input AdjustInput) (*models.StockLedgerEntry, error) {
	if input.VariantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	if input.Delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta must be non-zero")
	}
	if !input.Reason.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid ledger reason %q", input.Reason))
	}

	var entry *models.StockLedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		inv, err := repo.FindByVariantForUpdate(ctx, input.VariantID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory record not found")
			}
			return err
		}

		next := inv.Quantity + input.Delta
		if next < 0 {
			next = 0
		}
		if err := repo.UpdateQuantity(ctx, input.VariantID, next); err != nil {
			return err
		}

		entry = &models.StockLedgerEntry{
			VariantID: input.VariantID,
			Delta:     next - inv.Quantity,
			Reason:    input.Reason,
			RefType:   input.RefType,
			RefID:     input.RefID,
		}
		return repo.AppendLedger(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) EnsureRecordsExist(ctx context.Context) (int, error) {
	var created int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		missing, err := repo.VariantIDsMissingInventory(ctx)
		if err != nil {
			return err
		}
		if len(missing) == 0 {
			return nil
		}
		if err := repo.CreateMissing(ctx, missing); err != nil {
			return err
		}
		created = len(missing)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 && s.logg != nil {
		s.logg.Info(s.logg.WithField(ctx, "created", created), "inventory records synced")
	}
	return created, nil
}

func (s *service) ListLedger(ctx context.Context, variantID uuid.UUID) ([]models.StockLedgerEntry, error) {
	if variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant id required")
	}
	return s.repo.ListLedger(ctx, variantID)
}

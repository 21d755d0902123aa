package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/pkg/config"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service computes checkout totals: zone shipping fee, coupon discount and
// the free-shipping rule. Pure over its inputs apart from zone/coupon lookups.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*Quote, error)
	QuoteTx(ctx context.Context, tx *gorm.DB, input QuoteInput) (*Quote, error)
	ShippingFee(ctx context.Context, state string) (int64, error)
}

// QuoteItem is one priced cart line.
type QuoteItem struct {
	UnitPriceKobo int64
	Qty           int
	OnSale        bool
}

// QuoteInput is everything the calculator needs for a full quote.
type QuoteInput struct {
	Items      []QuoteItem
	State      string
	CouponCode string
}

// Quote is the calculator's result. Reason explains a zeroed shipping fee.
type Quote struct {
	Totals types.OrderTotals
	Reason string
}

type service struct {
	tx   txRunner
	repo Repository
	cfg  config.CheckoutConfig
}

// NewService wires the pricing service.
func NewService(tx txRunner, repo Repository, cfg config.CheckoutConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	return &service{tx: tx, repo: repo, cfg: cfg}, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*Quote, error) {
	var quote *Quote
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		quote, txErr = s.QuoteTx(ctx, tx, input)
		return txErr
	})
	return quote, err
}

func (s *service) QuoteTx(ctx context.Context, tx *gorm.DB, input QuoteInput) (*Quote, error) {
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if input.State == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "state required")
	}
	for _, item := range input.Items {
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive")
		}
		if item.UnitPriceKobo < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price must not be negative")
		}
	}
	repo := s.repo.WithTx(tx)

	var subtotal, eligible int64
	for _, item := range input.Items {
		line := item.UnitPriceKobo * int64(item.Qty)
		subtotal += line
		if !item.OnSale || s.cfg.CouponAppliesToDiscounted {
			eligible += line
		}
	}

	shippingFee, err := s.zoneFee(ctx, repo, input.State)
	if err != nil {
		return nil, err
	}

	quote := &Quote{Totals: types.OrderTotals{
		SubtotalKobo:    subtotal,
		ShippingFeeKobo: shippingFee,
	}}

	if input.CouponCode != "" {
		coupon, err := repo.FindCouponByCode(ctx, input.CouponCode)
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, err
		}
		// unknown or inactive codes change nothing
		if coupon != nil && coupon.Active {
			s.applyCoupon(coupon, eligible, quote)
		}
	}

	// free shipping is evaluated after the coupon discount
	if input.State == s.cfg.FreeShippingState && subtotal-quote.Totals.DiscountKobo >= s.cfg.FreeShippingThresholdKobo {
		quote.Totals.ShippingFeeKobo = 0
		quote.Totals.FreeShippingEligible = true
		quote.Reason = "free shipping threshold met"
	}

	discounted := subtotal - quote.Totals.DiscountKobo
	if discounted < 0 {
		discounted = 0
	}
	quote.Totals.TotalKobo = discounted + quote.Totals.ShippingFeeKobo
	return quote, nil
}

func (s *service) applyCoupon(coupon *models.Coupon, eligible int64, quote *Quote) {
	switch coupon.Type {
	case enums.CouponTypePercent:
		quote.Totals.DiscountKobo = decimal.NewFromInt(eligible).
			Mul(decimal.NewFromInt(coupon.Value)).
			Div(decimal.NewFromInt(100)).
			IntPart()
	case enums.CouponTypeFixed:
		discount := coupon.Value
		if discount > eligible {
			discount = eligible
		}
		quote.Totals.DiscountKobo = discount
	case enums.CouponTypeShipping:
		quote.Totals.ShippingFeeKobo = 0
		quote.Reason = "shipping coupon applied"
	default:
		return
	}
	quote.Totals.CouponCode = coupon.Code
}

func (s *service) ShippingFee(ctx context.Context, state string) (int64, error) {
	if state == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "state required")
	}
	var fee int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		fee, txErr = s.zoneFee(ctx, s.repo.WithTx(tx), state)
		return txErr
	})
	return fee, err
}

func (s *service) zoneFee(ctx context.Context, repo Repository, state string) (int64, error) {
	zone, err := repo.FindZoneForState(ctx, state)
	if err == gorm.ErrRecordNotFound {
		zone, err = repo.FindZoneByName(ctx, FallbackZoneName)
		if err == gorm.ErrRecordNotFound {
			return 0, pkgerrors.New(pkgerrors.CodeInternal, "fallback shipping zone missing")
		}
	}
	if err != nil {
		return 0, err
	}
	if zone == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "shipping zone mapping is dangling")
	}
	return zone.FeeKobo, nil
}

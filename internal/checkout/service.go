package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nonsonwune/mdv-backend/internal/orders"
	"github.com/nonsonwune/mdv-backend/internal/pricing"
	"github.com/nonsonwune/mdv-backend/internal/reservations"
	"github.com/nonsonwune/mdv-backend/pkg/config"
	"github.com/nonsonwune/mdv-backend/pkg/db/models"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
	"github.com/nonsonwune/mdv-backend/pkg/paystack"
	"github.com/nonsonwune/mdv-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway is the slice of the payment client checkout needs.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
}

// AddressInput is the shipping address captured at checkout.
type AddressInput struct {
	Name   string
	Phone  string
	State  string
	City   string
	Street string
}

// Input is one checkout-init request.
type Input struct {
	CartID     uuid.UUID
	UserID     *uuid.UUID
	Email      string
	Address    AddressInput
	CouponCode string
}

// Result is returned to the storefront so it can redirect to the gateway.
type Result struct {
	OrderID          uuid.UUID         `json:"order_id"`
	AuthorizationURL string            `json:"authorization_url"`
	Reference        string            `json:"reference"`
	Totals           types.OrderTotals `json:"totals"`
}

// Service turns a cart into a PendingPayment order: snapshot, quote, persist,
// optionally reserve stock, then hand off to the payment gateway.
type Service interface {
	Execute(ctx context.Context, input Input) (*Result, error)
}

type service struct {
	tx           txRunner
	repo         Repository
	ordersRepo   orders.Repository
	pricing      pricing.Service
	reservations reservations.Service
	gateway      Gateway
	cfg          config.CheckoutConfig
	logg         *logger.Logger
}

// NewService wires the checkout service.
func NewService(
	tx txRunner,
	repo Repository,
	ordersRepo orders.Repository,
	pricingSvc pricing.Service,
	reservationSvc reservations.Service,
	gateway Gateway,
	cfg config.CheckoutConfig,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("checkout repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if pricingSvc == nil {
		return nil, fmt.Errorf("pricing service required")
	}
	if reservationSvc == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	return &service{
		tx:           tx,
		repo:         repo,
		ordersRepo:   ordersRepo,
		pricing:      pricingSvc,
		reservations: reservationSvc,
		gateway:      gateway,
		cfg:          cfg,
		logg:         logg,
	}, nil
}

func (s *service) Execute(ctx context.Context, input Input) (*Result, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		cartItems, err := repo.ListCartItems(ctx, input.CartID)
		if err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		variantIDs := make([]uuid.UUID, 0, len(cartItems))
		for _, item := range cartItems {
			variantIDs = append(variantIDs, item.VariantID)
		}
		variants, err := repo.FindVariants(ctx, variantIDs)
		if err != nil {
			return err
		}

		orderItems := make([]models.OrderItem, 0, len(cartItems))
		quoteItems := make([]pricing.QuoteItem, 0, len(cartItems))
		for _, item := range cartItems {
			variant, ok := variants[item.VariantID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart references unknown variant").
					WithDetails(map[string]any{"variant_id": item.VariantID})
			}
			orderItems = append(orderItems, models.OrderItem{
				VariantID:     variant.ID,
				Qty:           item.Qty,
				UnitPriceKobo: variant.PriceKobo,
				OnSale:        variant.OnSale(),
			})
			quoteItems = append(quoteItems, pricing.QuoteItem{
				UnitPriceKobo: variant.PriceKobo,
				Qty:           item.Qty,
				OnSale:        variant.OnSale(),
			})
		}

		quote, err := s.pricing.QuoteTx(ctx, tx, pricing.QuoteInput{
			Items:      quoteItems,
			State:      input.Address.State,
			CouponCode: input.CouponCode,
		})
		if err != nil {
			return err
		}

		orderID := uuid.New()
		totals := quote.Totals
		order = &models.Order{
			ID:         orderID,
			CartID:     input.CartID,
			UserID:     input.UserID,
			Email:      input.Email,
			Status:     enums.OrderStatusPendingPayment,
			Totals:     &totals,
			PaymentRef: paymentReference(orderID),
			Items:      orderItems,
			Address: &models.Address{
				Name:   input.Address.Name,
				Phone:  input.Address.Phone,
				State:  input.Address.State,
				City:   input.Address.City,
				Street: input.Address.Street,
			},
		}
		if err := s.ordersRepo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		if s.cfg.ReservationsEnabled {
			// any failed hold aborts the whole checkout
			for _, item := range orderItems {
				if _, err := s.reservations.Reserve(ctx, tx, reservations.ReserveInput{
					CartID:    input.CartID,
					VariantID: item.VariantID,
					Qty:       item.Qty,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// gateway handoff happens after commit so a slow or failing gateway never
	// holds row locks; unredeemed holds are reclaimed by the TTL sweeper
	init, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:      input.Email,
		AmountKobo: order.Totals.TotalKobo,
		Reference:  order.PaymentRef,
	})
	if err != nil {
		return nil, err
	}
	if err := s.ordersRepo.SetAuthorizationURL(ctx, order.ID, init.AuthorizationURL); err != nil {
		return nil, err
	}

	if s.logg != nil {
		fields := map[string]any{"order_id": order.ID, "payment_ref": order.PaymentRef, "total_kobo": order.Totals.TotalKobo}
		s.logg.Info(s.logg.WithFields(ctx, fields), "checkout initialized")
	}
	return &Result{
		OrderID:          order.ID,
		AuthorizationURL: init.AuthorizationURL,
		Reference:        order.PaymentRef,
		Totals:           *order.Totals,
	}, nil
}

func validateInput(input Input) error {
	switch {
	case input.CartID == uuid.Nil:
		return pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	case !strings.Contains(input.Email, "@"):
		return pkgerrors.New(pkgerrors.CodeValidation, "valid email required")
	case input.Address.Name == "", input.Address.Phone == "", input.Address.State == "",
		input.Address.City == "", input.Address.Street == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "complete shipping address required")
	}
	return nil
}

// paymentReference derives the gateway reference from the order id, so the
// same order always maps to the same reference.
func paymentReference(orderID uuid.UUID) string {
	return "MDV-" + strings.ToUpper(strings.ReplaceAll(orderID.String(), "-", ""))
}

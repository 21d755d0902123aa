package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/nonsonwune/mdv-backend/api/responses"
	"github.com/nonsonwune/mdv-backend/api/validators"
	"github.com/nonsonwune/mdv-backend/internal/checkout"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

type checkoutInitRequest struct {
	CartID     string                 `json:"cart_id" validate:"required,uuid"`
	UserID     string                 `json:"user_id" validate:"omitempty,uuid"`
	Email      string                 `json:"email" validate:"required,email"`
	Address    checkoutAddressRequest `json:"address" validate:"required"`
	CouponCode string                 `json:"coupon_code" validate:"omitempty,max=64"`
}

type checkoutAddressRequest struct {
	Name   string `json:"name" validate:"required"`
	Phone  string `json:"phone" validate:"required"`
	State  string `json:"state" validate:"required"`
	City   string `json:"city" validate:"required"`
	Street string `json:"street" validate:"required"`
}

// CheckoutInit turns a cart into a pending order and returns the gateway
// authorization URL.
func CheckoutInit(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var req checkoutInitRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cartID, err := uuid.Parse(req.CartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cart id"))
			return
		}

		input := checkout.Input{
			CartID:     cartID,
			Email:      req.Email,
			CouponCode: req.CouponCode,
			Address: checkout.AddressInput{
				Name:   req.Address.Name,
				Phone:  req.Address.Phone,
				State:  req.Address.State,
				City:   req.Address.City,
				Street: req.Address.Street,
			},
		}
		if req.UserID != "" {
			userID, err := uuid.Parse(req.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
				return
			}
			input.UserID = &userID
		}

		result, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

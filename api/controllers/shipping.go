package controllers

import (
	"net/http"
	"strings"

	"github.com/nonsonwune/mdv-backend/api/responses"
	"github.com/nonsonwune/mdv-backend/api/validators"
	"github.com/nonsonwune/mdv-backend/internal/pricing"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

// ShippingCalculate quotes the shipping fee for a state. When a subtotal is
// provided it also evaluates coupon and free-shipping rules.
func ShippingCalculate(svc pricing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pricing service unavailable"))
			return
		}

		state := strings.TrimSpace(r.URL.Query().Get("state"))
		if state == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "state is required"))
			return
		}

		subtotal, err := validators.ParseQueryInt64(r, "subtotal", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if subtotal == 0 {
			fee, err := svc.ShippingFee(r.Context(), state)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{
				"state":             state,
				"shipping_fee_kobo": fee,
			})
			return
		}

		quote, err := svc.Quote(r.Context(), pricing.QuoteInput{
			Items:      []pricing.QuoteItem{{UnitPriceKobo: subtotal, Qty: 1}},
			State:      state,
			CouponCode: strings.TrimSpace(r.URL.Query().Get("coupon_code")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"state":  state,
			"totals": quote.Totals,
			"reason": quote.Reason,
		})
	}
}

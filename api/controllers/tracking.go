package controllers

import (
	"net/http"
	"strings"

	"github.com/nonsonwune/mdv-backend/api/responses"
	"github.com/nonsonwune/mdv-backend/internal/fulfillment"
	internalorders "github.com/nonsonwune/mdv-backend/internal/orders"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

// Tracking returns the shipment timeline for an order, looked up by its
// payment reference so customers can follow their delivery.
func Tracking(orders internalorders.Service, fulfillments fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orders == nil || fulfillments == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tracking unavailable"))
			return
		}

		reference := strings.TrimSpace(r.URL.Query().Get("reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		order, err := orders.FindByReference(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := fulfillments.GetByOrder(r.Context(), order.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if record.Shipment == nil {
			responses.WriteSuccess(w, map[string]any{
				"order_status":       order.Status,
				"fulfillment_status": record.Status,
				"events":             []any{},
			})
			return
		}

		events, err := fulfillments.Timeline(r.Context(), record.Shipment.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"order_status":       order.Status,
			"fulfillment_status": record.Status,
			"shipment":           record.Shipment,
			"events":             events,
		})
	}
}

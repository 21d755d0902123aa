package controllers

import (
	"net/http"

	"github.com/nonsonwune/mdv-backend/api/responses"
	"github.com/nonsonwune/mdv-backend/api/validators"
	"github.com/nonsonwune/mdv-backend/internal/fulfillment"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	pkgerrors "github.com/nonsonwune/mdv-backend/pkg/errors"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
)

// FulfillmentReady marks a processing fulfillment as packed and ready to ship.
func FulfillmentReady(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		fulfillmentID, err := parseIDParam(r, "fulfillmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		got, err := svc.MarkReadyToShip(r.Context(), fulfillmentID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, got)
	}
}

type createShipmentRequest struct {
	Courier    *string `json:"courier" validate:"omitempty,max=120"`
	TrackingID *string `json:"tracking_id" validate:"omitempty,max=120"`
}

// ShipmentCreate dispatches a ready-to-ship fulfillment with a courier.
func ShipmentCreate(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		fulfillmentID, err := parseIDParam(r, "fulfillmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createShipmentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.CreateShipment(r.Context(), fulfillment.CreateShipmentInput{
			FulfillmentID: fulfillmentID,
			Courier:       req.Courier,
			TrackingID:    req.TrackingID,
			ActorID:       actorID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

type shipmentTransitionRequest struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message" validate:"omitempty,max=500"`
}

// ShipmentTransition moves a shipment along its allowed transitions.
func ShipmentTransition(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		shipmentID, err := parseIDParam(r, "shipmentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req shipmentTransitionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.TransitionShipment(r.Context(), shipmentID, enums.ShipmentStatus(req.Status), req.Message, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shipment)
	}
}

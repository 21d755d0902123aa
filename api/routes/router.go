package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nonsonwune/mdv-backend/api/controllers"
	webhookcontrollers "github.com/nonsonwune/mdv-backend/api/controllers/webhooks"
	"github.com/nonsonwune/mdv-backend/api/middleware"
	checkoutsvc "github.com/nonsonwune/mdv-backend/internal/checkout"
	"github.com/nonsonwune/mdv-backend/internal/fulfillment"
	"github.com/nonsonwune/mdv-backend/internal/inventory"
	internalorders "github.com/nonsonwune/mdv-backend/internal/orders"
	"github.com/nonsonwune/mdv-backend/internal/payments"
	"github.com/nonsonwune/mdv-backend/internal/pricing"
	"github.com/nonsonwune/mdv-backend/pkg/config"
	"github.com/nonsonwune/mdv-backend/pkg/enums"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
	"github.com/nonsonwune/mdv-backend/pkg/paystack"
	pkgredis "github.com/nonsonwune/mdv-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Metrics  http.Handler
	Paystack *paystack.Client

	Idempotency pkgredis.IdempotencyStore
	RateLimiter middleware.RateLimiterStore

	Checkout    checkoutsvc.Service
	Pricing     pricing.Service
	Payments    payments.Service
	Orders      internalorders.Service
	Fulfillment fulfillment.Service
	Inventory   inventory.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Route("/paystack", func(r chi.Router) {
			r.Post("/webhook", webhookcontrollers.PaystackWebhook(deps.Payments, deps.Paystack, logg))
			r.Get("/verify", webhookcontrollers.PaystackVerify(deps.Payments, logg))
		})

		checkoutPolicy := middleware.NewRateLimitPolicy(
			"checkout",
			cfg.RateLimit.CheckoutWindow,
			cfg.RateLimit.CheckoutIPLimit,
			cfg.RateLimit.CheckoutEmailLimit,
		)
		r.With(middleware.RateLimit(checkoutPolicy, deps.RateLimiter, logg)).
			Post("/checkout/init", controllers.CheckoutInit(deps.Checkout, logg))
		r.Get("/shipping/calculate", controllers.ShippingCalculate(deps.Pricing, logg))
		r.Get("/tracking", controllers.Tracking(deps.Orders, deps.Fulfillment, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.StaffRoleAdmin.String(), enums.StaffRoleOps.String()))

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", controllers.AdminOrderList(deps.Orders, logg))
					r.Get("/{orderId}", controllers.AdminOrderDetail(deps.Orders, logg))
					r.Post("/{orderId}/cancel", controllers.AdminOrderCancel(deps.Orders, logg))
					r.Post("/{orderId}/refund", controllers.AdminOrderRefund(deps.Orders, logg))
				})

				r.Route("/inventory", func(r chi.Router) {
					r.Post("/sync", controllers.InventorySync(deps.Inventory, logg))
					r.Get("/{variantId}/availability", controllers.InventoryAvailability(deps.Inventory, logg))
					r.Get("/{variantId}/ledger", controllers.InventoryLedger(deps.Inventory, logg))
					r.Post("/{variantId}/adjust", controllers.InventoryAdjust(deps.Inventory, logg))
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg,
					enums.StaffRoleAdmin.String(),
					enums.StaffRoleOps.String(),
					enums.StaffRoleLogistics.String(),
				))

				r.Route("/fulfillments/{fulfillmentId}", func(r chi.Router) {
					r.Post("/ready", controllers.FulfillmentReady(deps.Fulfillment, logg))
					r.Post("/shipment", controllers.ShipmentCreate(deps.Fulfillment, logg))
				})
				r.Post("/shipments/{shipmentId}/transition", controllers.ShipmentTransition(deps.Fulfillment, logg))
			})
		})
	})

	return r
}

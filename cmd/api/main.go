package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nonsonwune/mdv-backend/api/routes"
	"github.com/nonsonwune/mdv-backend/internal/audit"
	"github.com/nonsonwune/mdv-backend/internal/checkout"
	"github.com/nonsonwune/mdv-backend/internal/fulfillment"
	"github.com/nonsonwune/mdv-backend/internal/inventory"
	"github.com/nonsonwune/mdv-backend/internal/orders"
	"github.com/nonsonwune/mdv-backend/internal/payments"
	"github.com/nonsonwune/mdv-backend/internal/pricing"
	"github.com/nonsonwune/mdv-backend/internal/reservations"
	"github.com/nonsonwune/mdv-backend/pkg/config"
	"github.com/nonsonwune/mdv-backend/pkg/db"
	"github.com/nonsonwune/mdv-backend/pkg/logger"
	"github.com/nonsonwune/mdv-backend/pkg/metrics"
	"github.com/nonsonwune/mdv-backend/pkg/migrate"
	"github.com/nonsonwune/mdv-backend/pkg/outbox"
	"github.com/nonsonwune/mdv-backend/pkg/paystack"
	"github.com/nonsonwune/mdv-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	registry := prometheus.NewRegistry()
	breakerMetrics := metrics.NewBreakerMetrics(registry)
	breaker := db.NewBreaker(cfg.Breaker, func(state db.BreakerState) {
		breakerMetrics.SetState(string(state))
	})

	dbClient, err := db.New(context.Background(), cfg.DB, breaker, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	paystackClient, err := paystack.NewClient(cfg.Paystack, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create paystack client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	auditSink := audit.NewLogSink(logg)

	inventorySvc, err := inventory.NewService(dbClient, inventory.NewRepository(conn), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}
	reservationSvc, err := reservations.NewService(dbClient, reservations.NewRepository(conn), inventorySvc, cfg.Checkout.ReservationTTL, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reservation service", err)
		os.Exit(1)
	}
	pricingSvc, err := pricing.NewService(dbClient, pricing.NewRepository(conn), cfg.Checkout)
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}
	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(dbClient, ordersRepo, inventorySvc, reservationSvc, outboxSvc, auditSink, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}
	checkoutSvc, err := checkout.NewService(dbClient, checkout.NewRepository(conn), ordersRepo, pricingSvc, reservationSvc, paystackClient, cfg.Checkout, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}
	paymentsSvc, err := payments.NewService(ordersSvc, reservationSvc, paystackClient, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}
	fulfillmentSvc, err := fulfillment.NewService(dbClient, fulfillment.NewRepository(conn), outboxSvc, auditSink, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			DB:          dbClient,
			Redis:       redisClient,
			Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			Paystack:    paystackClient,
			Idempotency: redisClient,
			RateLimiter: redisClient,
			Checkout:    checkoutSvc,
			Pricing:     pricingSvc,
			Payments:    paymentsSvc,
			Orders:      ordersSvc,
			Fulfillment: fulfillmentSvc,
			Inventory:   inventorySvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

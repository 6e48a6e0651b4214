package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nmoreno/storefront-checkout/api/routes"
	"github.com/nmoreno/storefront-checkout/internal/checkout"
	"github.com/nmoreno/storefront-checkout/internal/finalize"
	"github.com/nmoreno/storefront-checkout/internal/notify"
	"github.com/nmoreno/storefront-checkout/internal/stock"
	"github.com/nmoreno/storefront-checkout/pkg/cartstore"
	"github.com/nmoreno/storefront-checkout/pkg/config"
	"github.com/nmoreno/storefront-checkout/pkg/customers"
	"github.com/nmoreno/storefront-checkout/pkg/db"
	"github.com/nmoreno/storefront-checkout/pkg/inventory"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
	"github.com/nmoreno/storefront-checkout/pkg/metrics"
	"github.com/nmoreno/storefront-checkout/pkg/migrate"
	"github.com/nmoreno/storefront-checkout/pkg/notifier"
	"github.com/nmoreno/storefront-checkout/pkg/orderstore"
	"github.com/nmoreno/storefront-checkout/pkg/redis"
	"github.com/nmoreno/storefront-checkout/pkg/stripe"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	downstream := &http.Client{Timeout: cfg.Endpoints.HTTPTimeout}

	carts, err := cartstore.NewClient(cfg.Endpoints.CartStoreURL, cartstore.WithHTTPClient(downstream))
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store client", err)
		os.Exit(1)
	}
	customerStore, err := customers.NewClient(cfg.Endpoints.CustomerStoreURL, customers.WithHTTPClient(downstream))
	if err != nil {
		logg.Error(context.Background(), "failed to create customer store client", err)
		os.Exit(1)
	}
	orders, err := orderstore.NewClient(cfg.Endpoints.OrderStoreURL, orderstore.WithHTTPClient(downstream))
	if err != nil {
		logg.Error(context.Background(), "failed to create order store client", err)
		os.Exit(1)
	}
	inventoryClient, err := inventory.NewClient(cfg.Endpoints.InventoryURL, inventory.WithHTTPClient(downstream))
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory client", err)
		os.Exit(1)
	}
	notifierClient, err := notifier.NewClient(cfg.Endpoints.NotificationURL, notifier.WithHTTPClient(downstream))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification client", err)
		os.Exit(1)
	}

	payments, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment provider client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	finalizeMetrics := metrics.NewFinalizeMetrics(registry)

	stockService, err := stock.NewService(dbClient, stock.NewRepository(dbClient.DB()), inventoryClient, logg, cfg.Checkout.ReservationTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(carts, customerStore, payments, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	dispatcher, err := notify.NewDispatcher(notifierClient, logg, finalizeMetrics, notify.Config{
		QueueSize:      cfg.Notify.QueueSize,
		MaxAttempts:    cfg.Notify.MaxAttempts,
		InitialBackoff: cfg.Notify.InitialBackoff,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	finalizeService, err := finalize.NewService(
		payments,
		carts,
		customerStore,
		orders,
		inventoryClient,
		stockService,
		dispatcher,
		logg,
		finalizeMetrics,
		finalize.Config{
			StockDecrementTimeout: cfg.Checkout.StockDecrementTimeout,
			CartClearTimeout:      cfg.Checkout.CartClearTimeout,
		},
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create finalize service", err)
		os.Exit(1)
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	go dispatcher.Run(dispatcherCtx)

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
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			Idempotency:     redisClient,
			CheckoutService: checkoutService,
			FinalizeService: finalizeService,
			StockService:    stockService,
			Metrics:         registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

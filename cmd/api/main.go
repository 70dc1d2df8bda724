package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rbhandari/attira-backend/api/routes"
	cartsvc "github.com/rbhandari/attira-backend/internal/cart"
	"github.com/rbhandari/attira-backend/internal/catalog"
	checkoutsvc "github.com/rbhandari/attira-backend/internal/checkout"
	couponsvc "github.com/rbhandari/attira-backend/internal/coupons"
	ordersvc "github.com/rbhandari/attira-backend/internal/orders"
	returnsvc "github.com/rbhandari/attira-backend/internal/returns"
	"github.com/rbhandari/attira-backend/internal/shipping"
	webhooksvc "github.com/rbhandari/attira-backend/internal/webhooks"
	"github.com/rbhandari/attira-backend/pkg/config"
	"github.com/rbhandari/attira-backend/pkg/db"
	"github.com/rbhandari/attira-backend/pkg/logger"
	"github.com/rbhandari/attira-backend/pkg/metrics"
	"github.com/rbhandari/attira-backend/pkg/migrate"
	"github.com/rbhandari/attira-backend/pkg/redis"
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

	conn := dbClient.DB()
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cartsvc.NewRepository(conn)
	couponRepo := couponsvc.NewRepository(conn)
	orderRepo := ordersvc.NewRepository(conn)
	returnRepo := returnsvc.NewRepository(conn)

	catalogService, err := catalog.NewService(catalogRepo)
	exitOnErr(logg, "catalog service", err)

	cartService, err := cartsvc.NewService(cartRepo, catalogRepo, dbClient)
	exitOnErr(logg, "cart service", err)

	couponService, err := couponsvc.NewService(couponRepo)
	exitOnErr(logg, "coupons service", err)

	orderService, err := ordersvc.NewService(orderRepo, catalogRepo, dbClient, logg, cfg.Checkout.ReturnWindowDays)
	exitOnErr(logg, "orders service", err)

	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
	checkoutService, err := checkoutsvc.NewService(
		cartService, catalogRepo, couponService, orderRepo,
		dbClient, cfg.Checkout, logg, checkoutMetrics,
	)
	exitOnErr(logg, "checkout service", err)

	returnService, err := returnsvc.NewService(returnRepo, orderRepo, catalogRepo, dbClient, logg)
	exitOnErr(logg, "returns service", err)

	webhookService, err := webhooksvc.NewService(orderService, redisClient, logg, cfg.Checkout.WebhookEventTTL)
	exitOnErr(logg, "webhooks service", err)

	carrierClient, err := shipping.NewClient(cfg.Shipping, logg)
	exitOnErr(logg, "carrier client", err)
	dispatcher, err := shipping.NewDispatcher(carrierClient, orderRepo, logg)
	exitOnErr(logg, "shipping dispatcher", err)

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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Catalog:    catalogService,
			Cart:       cartService,
			Coupons:    couponService,
			Checkout:   checkoutService,
			Orders:     orderService,
			Returns:    returnService,
			Webhooks:   webhookService,
			Dispatcher: dispatcher,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func exitOnErr(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ian1hx/equiploan-backend/api/controllers"
	"github.com/ian1hx/equiploan-backend/api/routes"
	"github.com/ian1hx/equiploan-backend/internal/equipment"
	"github.com/ian1hx/equiploan-backend/internal/fulfillment"
	"github.com/ian1hx/equiploan-backend/internal/inventory"
	"github.com/ian1hx/equiploan-backend/internal/orders"
	"github.com/ian1hx/equiploan-backend/pkg/config"
	"github.com/ian1hx/equiploan-backend/pkg/db"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/metrics"
	"github.com/ian1hx/equiploan-backend/pkg/migrate"
	"github.com/ian1hx/equiploan-backend/pkg/outbox"
	"github.com/ian1hx/equiploan-backend/pkg/redis"
)

func main() {
	boot := logger.New(logger.Options{ServiceName: "api"})
	if err := godotenv.Load(); err != nil {
		boot.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(boot, "failed to load config", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap database", err)
	}
	defer closeQuietly(logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		fatal(logg, "failed to run dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		fatal(logg, "failed to bootstrap redis", err)
	}
	defer closeQuietly(logg, "redis", redisClient.Close)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fulfillmentMetrics := metrics.NewFulfillmentMetrics(promRegistry)

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	inventoryRepo := inventory.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		fatal(logg, "failed to create orders service", err)
	}
	fulfillmentService, err := fulfillment.NewService(
		fulfillment.NewRepository(dbClient.DB()),
		inventoryRepo,
		dbClient,
		outboxService,
		fulfillmentMetrics,
	)
	if err != nil {
		fatal(logg, "failed to create fulfillment service", err)
	}
	equipmentService, err := equipment.NewService(dbClient.DB(), inventoryRepo)
	if err != nil {
		fatal(logg, "failed to create equipment service", err)
	}

	// Cloud Run style: the platform-injected PORT wins over config.
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config: cfg,
			Logger: logg,
			Redis:  redisClient,
			HealthDeps: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			MetricsGatherer:    promRegistry,
			OrdersService:      ordersService,
			FulfillmentService: fulfillmentService,
			EquipmentService:   equipmentService,
		}),
	}

	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

func closeQuietly(logg *logger.Logger, name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(context.Background(), "error closing "+name, err)
	}
}

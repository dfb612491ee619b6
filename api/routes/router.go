package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ian1hx/equiploan-backend/api/controllers"
	"github.com/ian1hx/equiploan-backend/api/middleware"
	"github.com/ian1hx/equiploan-backend/internal/equipment"
	"github.com/ian1hx/equiploan-backend/internal/fulfillment"
	"github.com/ian1hx/equiploan-backend/internal/orders"
	"github.com/ian1hx/equiploan-backend/pkg/config"
	"github.com/ian1hx/equiploan-backend/pkg/enums"
	"github.com/ian1hx/equiploan-backend/pkg/logger"
	"github.com/ian1hx/equiploan-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config             *config.Config
	Logger             *logger.Logger
	Redis              *redis.Client
	HealthDeps         map[string]controllers.Pinger
	MetricsGatherer    prometheus.Gatherer
	OrdersService      orders.Service
	FulfillmentService fulfillment.Service
	EquipmentService   equipment.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.HealthDeps))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/orders", controllers.MakeOrder(deps.OrdersService, logg))
		r.Get("/orders", controllers.ListMyOrders(deps.OrdersService, logg))

		r.Get("/equipment/{equipmentId}/availability", controllers.EquipmentAvailability(deps.EquipmentService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/pending", controllers.AdminPendingOrders(deps.OrdersService, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(deps.OrdersService, logg))
				r.Post("/{orderId}/decision", controllers.DecideOrder(deps.FulfillmentService, logg))
				r.Post("/{orderId}/cancel", controllers.CancelOrder(deps.FulfillmentService, logg))
			})
		})
	})

	return r
}

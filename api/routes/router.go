package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/partnest/sparesync/api/controllers"
	"github.com/partnest/sparesync/api/middleware"
	"github.com/partnest/sparesync/internal/backend"
	"github.com/partnest/sparesync/pkg/config"
	"github.com/partnest/sparesync/pkg/enums"
	"github.com/partnest/sparesync/pkg/logger"
	"github.com/partnest/sparesync/pkg/metrics"
)

// Dependencies groups what the router needs beyond config and logging.
type Dependencies struct {
	DB       controllers.Pinger
	Redis    controllers.Pinger
	Service  backend.Service
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTPMetrics
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.Metrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["database"] = deps.DB
	}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, ready))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if !cfg.App.IsProd() {
		r.Post("/api/dev/token", controllers.DevToken(cfg.JWT, logg))
	}

	svc := deps.Service
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/products", controllers.ProductList(svc, logg))
		r.Get("/wallet", controllers.WalletFetch(svc, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(svc, logg))
			r.Post("/items", controllers.CartAddItem(svc, logg))
			r.Patch("/items", controllers.CartSetQuantity(svc, logg))
			r.Patch("/items/remove", controllers.CartRemoveItem(svc, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(svc, logg))
			r.Post("/", controllers.OrderPlace(svc, logg))
			r.Patch("/", controllers.OrderCancel(svc, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(enums.MemberRoleAdmin, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminOrderStatus(svc, logg))
			r.Post("/wallets/{userId}/credit", controllers.AdminWalletCredit(svc, logg))
		})
	})

	return r
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nmoreno/storefront-checkout/api/controllers"
	"github.com/nmoreno/storefront-checkout/api/middleware"
	checkoutsvc "github.com/nmoreno/storefront-checkout/internal/checkout"
	finalizesvc "github.com/nmoreno/storefront-checkout/internal/finalize"
	stocksvc "github.com/nmoreno/storefront-checkout/internal/stock"
	"github.com/nmoreno/storefront-checkout/pkg/config"
	"github.com/nmoreno/storefront-checkout/pkg/logger"
	pkgredis "github.com/nmoreno/storefront-checkout/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	Idempotency     pkgredis.IdempotencyStore
	CheckoutService checkoutsvc.Service
	FinalizeService finalizesvc.Service
	StockService    stocksvc.Service
	Metrics         prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.Origins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": deps.DBPinger,
			"redis":    deps.RedisPinger,
		}))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.CartSession(logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/checkout/complete", controllers.CheckoutComplete(deps.CheckoutService, logg))
		r.Post("/payment/finalize", controllers.PaymentFinalize(deps.FinalizeService, logg))

		r.Route("/stock", func(r chi.Router) {
			r.Get("/check/{productID}", controllers.StockCheck(deps.StockService, logg))
			r.Post("/reserve", controllers.StockReserve(deps.StockService, logg))
		})
	})

	return r
}

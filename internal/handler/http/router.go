package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mohammed-Altooq/WebEngineering-sub000/internal/service"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/health"
	"github.com/Mohammed-Altooq/WebEngineering-sub000/pkg/middleware"
)

const serviceName = "marketplace"

// Services bundles the application services exposed over HTTP.
type Services struct {
	Reviews *service.ReviewService
	Orders  *service.OrderService
	Carts   *service.CartService
}

// RouterConfig holds the HTTP-layer settings.
type RouterConfig struct {
	RequestTimeout time.Duration
	CORSOrigins    []string
	PprofCIDRs     []string

	// Per-client limit on /api routes. Zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all marketplace routes registered.
func NewRouter(
	svcs Services,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	reviews := NewReviewHandler(svcs.Reviews, logger)
	orders := NewOrderHandler(svcs.Orders, logger)
	carts := NewCartHandler(svcs.Carts, logger)

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		}
		r.Use(middleware.ContentTypeJSON)

		r.Get("/products/{id}/reviews", reviews.ListReviews)
		r.Post("/products/{id}/reviews", reviews.SubmitReview)

		r.Post("/users/{userId}/orders", orders.PlaceOrder)
		r.Get("/orders/user/{userId}", orders.ListOrdersByUser)

		r.Route("/cart/{userId}", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Delete("/", carts.ClearCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{productId}", carts.UpdateItem)
			r.Delete("/items/{productId}", carts.RemoveItem)
		})
	})

	return r
}

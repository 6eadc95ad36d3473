package http

import (
	"embed"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/invoiceagent/internal/adapter/http/handler"
	"github.com/iho/invoiceagent/internal/adapter/http/middleware"
	"github.com/iho/invoiceagent/internal/infrastructure/metrics"
)

//go:embed web/index.html
var webFS embed.FS

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	HealthHandler   *handler.HealthHandler
	OverviewHandler *handler.OverviewHandler
	RunHandler      *handler.RunHandler
	Metrics         *metrics.Metrics
	// MetricsHandler serves /metrics; defaults to promhttp.Handler().
	MetricsHandler http.Handler
	// RateLimiter guards run creation; nil disables it.
	RateLimiter *middleware.RateLimiter
	Logger      zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	// Dashboard page
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.ServeFileFS(w, req, webFS, "web/index.html")
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/overview", cfg.OverviewHandler.Overview)
		r.Get("/ledger", cfg.OverviewHandler.Ledger)
		r.Get("/pending/{name}", cfg.OverviewHandler.Preview)

		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Limit)
			}
			r.Post("/runs", cfg.RunHandler.Start)
		})
	})

	return r
}

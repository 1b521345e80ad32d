package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/api/handler"
	apimw "github.com/jobpulse/notify/internal/api/middleware"
	"github.com/jobpulse/notify/internal/config"
	"github.com/jobpulse/notify/internal/registry"
	"github.com/jobpulse/notify/internal/service"
	"github.com/jobpulse/notify/internal/ws"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	cfg *config.Config,
	svc *service.NotificationService,
	reg registry.Registry,
	wsHandler *ws.Handler,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)            // recover panics, return 500
	r.Use(chimw.RealIP)               // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1 << 20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)        // X-Correlation-ID inject / echo

	// --- handler instances ---
	nh := handler.NewNotificationHandler(svc, cfg.DefaultPageSize, cfg.MaxPageSize, logger)
	mh := handler.NewMetricsHandler(reg)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Push channel upgrade. Registered outside the request logger: the
	// wrapped ResponseWriter does not implement http.Hijacker.
	r.Handle(cfg.WSPath, wsHandler)

	r.Group(func(r chi.Router) {
		r.Use(apimw.RequestLogger(logger))

		r.Route("/api/v1", func(r chi.Router) {
			// Literal segments must be registered before /{id} so chi
			// does not treat "test" or "read-all" as an ID.
			r.Post("/notifications/test", nh.TriggerTest)
			r.Post("/notifications/read-all", nh.MarkAllRead)
			r.Post("/notifications", nh.Create)
			r.Get("/notifications", nh.List)
			r.Post("/notifications/{id}/read", nh.MarkRead)

			// JSON registry snapshot
			r.Get("/metrics", mh.GetMetrics)
		})
	})

	return r
}

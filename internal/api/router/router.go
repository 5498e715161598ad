package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/awstrack/awstrack/internal/api/handlers"
	"github.com/awstrack/awstrack/internal/api/middleware"
	"github.com/awstrack/awstrack/internal/config"
	"github.com/awstrack/awstrack/internal/pkg/logger"
	"github.com/awstrack/awstrack/internal/pkg/metrics"
)

type Handlers struct {
	Health    *handlers.HealthHandler
	Agent     *handlers.AgentHandler
	Activity  *handlers.ActivityHandler
	Anomaly   *handlers.AnomalyHandler
	Alert     *handlers.AlertHandler
	Analytics *handlers.AnalyticsHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200
	r.Use(metrics.Middleware)

	// Health checks
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)

	// Prometheus scrape endpoint
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Monitoring agents
		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.Agent.List)
			r.Get("/{name}", h.Agent.Get)
			r.Post("/{name}/start", h.Agent.Start)
			r.Post("/{name}/stop", h.Agent.Stop)
			r.Post("/{name}/run", h.Agent.RunOnce)
		})

		// Detector findings
		r.Get("/activity/flagged", h.Activity.RecentFlagged)
		r.Get("/anomalies", h.Anomaly.Recent)

		// Dispatched alert history
		r.Get("/alerts", h.Alert.List)

		// User analytics
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/summary", h.Analytics.Summary)
			r.Get("/users/top-usage", h.Analytics.TopByUsage)
			r.Get("/users/top-cost", h.Analytics.TopByCost)
			r.Get("/users/inactive", h.Analytics.Inactive)
			r.Get("/users/{id}", h.Analytics.User)
		})
	})

	return r
}

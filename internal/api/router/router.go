// Package router assembles the ops HTTP surface.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightmind-health/chartwatch/internal/http/handlers"
	httpmiddleware "github.com/brightmind-health/chartwatch/internal/http/middleware"
	"github.com/brightmind-health/chartwatch/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger          *logging.Logger
	Ops             *handlers.OpsHandler
	StatusFeed      *handlers.StatusFeed
	MetricsHandler  http.Handler
	AdminAuthSecret string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", cfg.Ops.HealthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.StatusFeed != nil {
		r.Get("/ws/status", cfg.StatusFeed.HandleWebSocket)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.AdminAuthSecret != "" {
			api.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
		}
		api.Get("/events/{id}", cfg.Ops.GetEvent)
		api.Get("/patients/{name}/events", cfg.Ops.ListPatientEvents)
		api.Get("/patients/{name}/active", cfg.Ops.GetActivePatientEvent)
		api.Get("/stats", cfg.Ops.GetStats)
		api.Get("/logs", cfg.Ops.GetRecentLogs)
	})

	return r
}

package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/good-yellow-bee/pricedesk/internal/api/middleware"
	"github.com/good-yellow-bee/pricedesk/internal/models"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.log, s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer(s.log))
	r.Use(middleware.PrometheusMiddleware)

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(s.ipLimiter))
		r.Use(middleware.JWTAuth(s.jwt, s.config.LoginURL, s.log))
		r.Use(middleware.RateLimitByUser(s.userLimiter))
		r.Use(chimw.Timeout(s.config.RequestTimeout))

		r.Get("/me", s.handleMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireCapability(models.CapViewDashboards))

			r.Get("/dashboards", s.handleListDashboards)
			r.Get("/overview", s.handleOverview)

			r.Route("/dashboards/{name}", func(r chi.Router) {
				r.Use(s.withPage)

				r.Get("/", s.handleGetDashboard)
				r.Get("/stats", s.handleStats)
				r.Get("/charts/{chart}", s.handleChart)
				r.Post("/refresh", s.handleRefresh)

				// Capability checked per dashboard in the handlers.
				r.Put("/records/{id}/status", s.handleSetStatus)
				r.Delete("/records/{id}", s.handleDeleteRecord)
			})

			r.Post("/import/{kind}", s.handleImport)
		})

		// Admin-only endpoints
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/audit", s.handleAudit)
		})
	})

	return r
}

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/good-yellow-bee/pulsewatch/internal/api/middleware"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	ipLimiter := middleware.NewRateLimiter(s.config.RateLimitPerMinute)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(ipLimiter))

		r.Route("/score", func(r chi.Router) {
			r.Post("/sewi", s.scores.SEWI)
			r.Post("/deterioration", s.scores.Deterioration)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Post("/evaluate", s.alerts.Evaluate)
			r.Get("/active", s.alerts.Active)
		})

		r.Post("/recommendations", s.recommendations.Recommend)

		r.Route("/escalations", func(r chi.Router) {
			r.Post("/check-triggers", s.escalations.CheckTriggers)
			r.Get("/active", s.escalations.ListActive)
			r.Get("/dashboard", s.escalations.Dashboard)
			r.Get("/report", s.escalations.Report)
			r.Get("/subject/{subjectID}", s.escalations.ListBySubject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.escalations.Get)
				r.Post("/acknowledge", s.escalations.Acknowledge)
				r.Post("/begin", s.escalations.Begin)
				r.Post("/resolve", s.escalations.Resolve)
			})
		})
	})

	// Health and metrics (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

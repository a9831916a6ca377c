/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboard frontends

ROUTE GROUPS:
  /api/representatives/*   Representative lifecycle, credits, access gate
  /api/decision-makers/*   Decision-maker lifecycle and milestones
  /api/companies/*         Company pool management
  /api/flags/*             Flag resolution
  /metrics                 Prometheus

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Representative routes
		r.Route("/representatives", func(r chi.Router) {
			r.Post("/", h.CreateRepresentative)
			r.Get("/{id}", h.GetRepresentative)
			r.Get("/{id}/credits", h.GetCreditHistory)
			r.Get("/{id}/can-act", h.CanAct)
			r.Post("/{id}/flags", h.RecordFlag)
			r.Get("/{id}/suspensions", h.GetSuspensions)
			r.Post("/{id}/suspension/lift", h.LiftSuspension)
		})

		// Decision maker routes
		r.Route("/decision-makers", func(r chi.Router) {
			r.Post("/", h.CreateDecisionMaker)
			r.Post("/{id}/milestones", h.ApplyMilestone)
		})

		// Company pool routes
		r.Route("/companies", func(r chi.Router) {
			r.Post("/", h.CreateCompany)
			r.Route("/{domain}", func(r chi.Router) {
				r.Get("/pool", h.GetPoolSummary)
				r.Post("/pool/consume", h.Consume)
				r.Post("/pool/reset", h.ResetPool)
				r.Post("/pool/allowance", h.AdjustAllowance)
			})
		})

		// Flag resolution routes
		r.Route("/flags", func(r chi.Router) {
			r.Post("/{id}/resolve", h.ResolveFlag)
		})
	})

	// Prometheus
	r.Handle("/metrics", promhttp.Handler())

	return r
}

/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /healthz, /metrics     Public probes
  /api/*                 Bearer-token authenticated
  /api/admin/*           Additionally require the ADMIN role

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Token middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured. jwtSecret
// empty enables header-based dev authentication (see auth.go).
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-User-Role"},
		AllowCredentials: true,
	}))

	// Public probes
	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(Authenticator(jwtSecret))

		r.Route("/me", func(r chi.Router) {
			r.Get("/balance", h.GetBalance)
			r.Get("/transactions", h.GetTransactions)
			r.Get("/aids", h.GetAids)
			r.Get("/notifications", h.ListNotifications)
			r.Post("/notifications/{id}/read", h.MarkNotificationRead)
			r.Post("/daily-login", h.ClaimDailyLogin)
		})

		r.Route("/shop", func(r chi.Router) {
			r.Get("/items", h.ListItems)
			r.Post("/purchase", h.Purchase)
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.ListEvents)
			r.Post("/{id}/register", h.RegisterForEvent)
		})

		r.Get("/challenges/today", h.TodayChallenge)

		r.Post("/tutor/ask", h.AskTutor)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(RoleAdmin))
			r.Post("/users", h.CreateUser)
			r.Post("/items", h.SaveItem)
			r.Post("/events", h.SaveEvent)
			r.Post("/events/{id}/rewards", h.DistributeRewards)
			r.Post("/challenges/generate", h.GenerateChallenge)
			r.Get("/audit/{userID}", h.AuditUser)
		})
	})

	return r
}

package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if g.metrics != nil {
		r.Use(g.metrics.middleware)
	}

	// Public, no auth required.
	r.Get("/health", g.handleHealth())
	if g.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler(g.gatherer))
	}

	// Admin endpoints require auth and are not mounted without it.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.logger, g.authLimiter, g.audit))
			r.Get("/status", g.handleStatus())
			r.Get("/ws/events", g.handleEvents())
			r.Route("/api", func(r chi.Router) {
				r.Get("/sessions", g.handleListSessions())
				r.Get("/sessions/{name}", g.handleGetSession())
				r.Get("/modules", g.handleGetAllModules())
				r.Post("/jobs/{name}/run", g.handleRunJob())
				r.Get("/config", g.handleGetConfig())
				r.Post("/config/reload", g.handleReloadConfig())
			})
		})
	}

	return r
}

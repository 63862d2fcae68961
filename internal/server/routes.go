package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/seowriter/zalo-bridge/internal/config"
)

// NewRouter assembles the HTTP surface for the configured role. Origin and
// relay routes are mounted independently so one binary can serve either half
// or, in development, both.
func NewRouter(cfg config.Config, origin *OriginHandlers, relay *RelayHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(NewRecoverMiddleware("http"))
	r.Use(NewLoggerMiddleware("http"))

	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", HealthHandler)

	var limit func(http.Handler) http.Handler
	if cfg.RateLimit != nil && cfg.RateLimit.RequestsPerSecond > 0 {
		limit = NewRateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	if cfg.Role == config.RoleOrigin || cfg.Role == config.RoleBoth {
		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Get("/api/auth/zalo", origin.LoginHandler)
		})
		r.Get("/api/auth/zalo/callback", origin.DirectCallbackHandler)
		r.Get("/api/auth/zalo/proxy-callback", origin.ProxyCallbackHandler)
		r.Get("/api/auth/zalo/staged", origin.StagedHandler)
		r.Get("/auth/error", origin.ErrorPageHandler)
	}

	if cfg.Role == config.RoleRelay || cfg.Role == config.RoleBoth {
		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Get("/api/zalo-proxy/auth", relay.AuthHandler)
		})
		// Legacy deployments used a separate relay route for the second hop.
		// Both land on the same handler and resolve the destination from
		// stored state.
		r.Get("/api/zalo-proxy/callback", relay.CallbackHandler)
		r.Get("/api/zalo-proxy/callback-relay", relay.CallbackHandler)
	}

	return r
}

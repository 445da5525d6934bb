// Package middleware holds the canonical HTTP ingress stack shared by
// all routes, so cross-cutting concerns cannot drift between endpoints.
package middleware

import (
	"github.com/go-chi/chi/v5"

	"github.com/hlsgate/hlsgate/internal/log"
)

// StackConfig configures the ingress middleware stack.
type StackConfig struct {
	AllowedOrigin string
	RateLimitRPM  int
}

// NewRouter constructs a chi router with the canonical stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()

	// Recoverer is the outermost safety net; RequestID follows so every
	// later stage logs with correlation.
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(CORS(cfg.AllowedOrigin))
	r.Use(SecurityHeaders)
	r.Use(Metrics())
	r.Use(log.Middleware())
	r.Use(RateLimit(cfg.RateLimitRPM))

	return r
}

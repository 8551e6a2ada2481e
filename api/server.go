// ABOUTME: Huma API server configuration and setup
// ABOUTME: Provides OpenAPI documentation, CORS, request logging and per-client rate limiting

package api

import (
	"context"
	"time"

	"cropguard-api/api/middleware"
	"cropguard-api/core/interfaces"
	"cropguard-api/pkg/featureflags"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Title and Version describe the generated OpenAPI document
const (
	Title   = "CropGuard API"
	Version = "1.0.0"
)

// APIConfig holds configuration for the API
type APIConfig struct {
	Logger     interfaces.Logger
	Flags      featureflags.Manager
	RateLimit  int           // requests per window
	RateWindow time.Duration // rate limit window
}

func corsOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Last-Event-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}
}

func humaConfig() huma.Config {
	config := huma.DefaultConfig(Title, Version)
	config.Info.Description = "Leaf scanning, disease encyclopedia, community alerts and read-aloud for crop growers"
	return config
}

// NewAPI creates and configures a new Huma API instance
func NewAPI() (huma.API, chi.Router) {
	router := chi.NewRouter()
	router.Use(cors.Handler(corsOptions()))

	// The OpenAPI spec is served at /openapi.json and the docs UI at /docs
	return humachi.New(router, humaConfig()), router
}

// NewAPIWithMiddleware creates a new API with middleware configured. The
// returned stop function releases the rate limiter.
func NewAPIWithMiddleware(cfg APIConfig) (huma.API, chi.Router, func()) {
	router := chi.NewRouter()

	// CORS first so preflight requests are never rate limited
	router.Use(cors.Handler(corsOptions()))

	if cfg.Logger != nil {
		router.Use(middleware.RequestLoggingMiddleware(cfg.Logger))
	}

	stop := func() {}
	if cfg.RateLimit > 0 && cfg.RateWindow > 0 && rateLimitOn(cfg.Flags) {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
		router.Use(middleware.RateLimitMiddleware(limiter))
		stop = limiter.Stop
	}

	return humachi.New(router, humaConfig()), router, stop
}

// A nil manager leaves rate limiting on
func rateLimitOn(flags featureflags.Manager) bool {
	return flags == nil || flags.IsEnabled(context.Background(), featureflags.RateLimitEnabled)
}

package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Dry1ceD7/AAELink-sub002/internal/api/middleware"
	"github.com/Dry1ceD7/AAELink-sub002/internal/config"
	"github.com/Dry1ceD7/AAELink-sub002/internal/handlers"
	"github.com/Dry1ceD7/AAELink-sub002/internal/hub"
	"github.com/Dry1ceD7/AAELink-sub002/internal/store"
	"github.com/Dry1ceD7/AAELink-sub002/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(
	logger zerolog.Logger,
	cfg *config.Config,
	ds store.DataStore,
	redisStore *store.RedisStore,
	wsServer *ws.Server,
	reg *hub.Registry,
	idx *hub.Membership,
) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (needs Redis; skipped without it)
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore.Client(), logger, middleware.RateLimiterConfig{
			Whitelist: cfg.RateLimitWhitelist,
		})
		r.Use(limiter.Middleware)
	}

	// CORS - the web client connects from its own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(ds, redisStore, reg, idx)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Realtime endpoint
	r.Get("/ws", wsServer.Handle)

	// Read-side HTTP surface
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Get("/channels", h.ListChannels)
	r.Post("/channels", h.CreateChannel)
	r.Get("/channels/{id}/members", h.ChannelMembers)
	r.Get("/channels/{id}/history", h.ChannelHistory)
	r.Get("/presence/{id}", h.Presence)

	return r
}

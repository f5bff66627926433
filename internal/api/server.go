// Package api wires the Chi router: middleware, device and prediction
// routes, health checks, and swagger docs.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/skyglow-app/skyglow-server/internal/api/handler"
	"github.com/skyglow-app/skyglow-server/internal/cache"
	"github.com/skyglow-app/skyglow-server/internal/config"
	"github.com/skyglow-app/skyglow-server/internal/db"
	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/prediction"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *db.Pool, devices *device.Store, source prediction.Source, appCache *cache.Cache, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool, devices, source, appCache, cfg)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	// The OpenAPI document comes from `swag init` over the handler
	// annotations; /docs/doc.json 404s until that has been run.
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Devices
		r.Post("/devices", h.RegisterDevice)
		r.Get("/devices/{token}", h.GetDevice)
		r.Put("/devices/{token}/location", h.UpdateLocation)
		r.Put("/devices/{token}/preferences", h.UpdatePreferences)

		// Prediction preview
		r.Get("/prediction", h.GetPrediction)
	})

	return r
}

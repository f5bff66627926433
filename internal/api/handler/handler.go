// Package handler implements the HTTP API handlers: device registration and
// preferences, prediction preview, and health checks.
package handler

import (
	"net/http"
	"time"

	"github.com/skyglow-app/skyglow-server/internal/api/respond"
	"github.com/skyglow-app/skyglow-server/internal/cache"
	"github.com/skyglow-app/skyglow-server/internal/config"
	"github.com/skyglow-app/skyglow-server/internal/db"
	"github.com/skyglow-app/skyglow-server/internal/device"
	"github.com/skyglow-app/skyglow-server/internal/prediction"
)

// Handler carries shared dependencies for all API handlers.
type Handler struct {
	pool    *db.Pool
	devices *device.Store
	source  prediction.Source
	cache   *cache.Cache
	cfg     *config.Config
}

// New creates the handler set.
func New(pool *db.Pool, devices *device.Store, source prediction.Source, appCache *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{pool: pool, devices: devices, source: source, cache: appCache, cfg: cfg}
}

// Root returns service identification.
// @Summary Service info
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"service":     "skyglow-server",
		"environment": h.cfg.Environment,
		"demo_mode":   h.cfg.DemoMode(),
	})
}

// HealthCheck reports process liveness.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} respond.ErrorResponse
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.HealthCheck(r.Context()); err != nil {
		respond.WriteErrorDetail(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE",
			"Database unreachable", err.Error())
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// HealthCheckCache reports cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, h.cache.Stats())
}

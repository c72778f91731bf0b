// Package handler provides HTTP handlers for all API endpoints. Handlers
// talk to the reminder stores through narrow interfaces so the router can
// be exercised in tests with in-memory fakes.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/wowfoxz/botiquin-data/internal/api/respond"
	"github.com/wowfoxz/botiquin-data/internal/cache"
	"github.com/wowfoxz/botiquin-data/internal/config"
	"github.com/wowfoxz/botiquin-data/internal/reminder"
)

// PassRunner runs one reminder scheduler pass.
type PassRunner interface {
	Run(ctx context.Context, now time.Time) reminder.PassResult
}

// SubscriptionStore is the subscribe/unsubscribe surface.
type SubscriptionStore interface {
	Create(ctx context.Context, userID, endpoint, p256dh, auth string) (reminder.Subscription, error)
	Delete(ctx context.Context, subscriptionID string) error
}

// PreferenceStore reads and writes user notification preferences.
type PreferenceStore interface {
	Get(ctx context.Context, userID string) (reminder.Preferences, error)
	Put(ctx context.Context, p reminder.Preferences) error
}

// IntakeRegistrar records administered doses.
type IntakeRegistrar interface {
	Register(ctx context.Context, medicationID, consumerID string, takenAt time.Time) (string, error)
}

// HealthChecker verifies the database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the shared dependencies for all endpoint handlers.
type Deps struct {
	Config         *config.Config
	Cache          *cache.Cache
	Health         HealthChecker
	Scheduler      PassRunner
	Subscriptions  SubscriptionStore
	Preferences    PreferenceStore
	Intakes        IntakeRegistrar
	VAPIDPublicKey string
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	deps Deps
}

// New creates a Handler.
func New(deps Deps) *Handler {
	return &Handler{deps: deps}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Botiquin Data API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies Postgres connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Health.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory cache statistics.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.deps.Cache.Stats(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

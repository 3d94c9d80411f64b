package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/utils"
	"go.uber.org/zap"
)

// Checker is anything that can report its own health, such as the session store
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CouncilHealth reports the state of the fallback orchestrator
type CouncilHealth interface {
	Health() fallback.Health
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status             string         `json:"status"`
	Timestamp          string         `json:"timestamp"`
	Version            string         `json:"version"`
	DatabaseConnected  bool           `json:"database_connected"`
	AIServiceAvailable bool           `json:"ai_service_available"`
	FallbackState      fallback.State `json:"fallback_state"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db      Checker
	council CouncilHealth
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Checker, council CouncilHealth, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		council: council,
		version: version,
		logger:  logger,
	}
}

// HandleHealth handles GET /health.
// Always 200 while the process serves; status is "degraded" when the store is
// unreachable or the council runs on fallbacks.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbOK := true
	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		dbOK = false
	}

	council := h.council.Health()

	status := "healthy"
	if !dbOK || !council.Healthy || council.State != fallback.StatePrimary {
		status = "degraded"
	}

	response := HealthResponse{
		Status:             status,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		Version:            h.version,
		DatabaseConnected:  dbOK,
		AIServiceAvailable: council.Healthy,
		FallbackState:      council.State,
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}

// HandleReadiness handles GET /readyz.
// Ready means the store answers and the council can serve requests.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string)
	ready := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		ready = false
	} else {
		checks["database"] = "healthy"
	}

	if health := h.council.Health(); health.Healthy {
		checks["council"] = string(health.State)
	} else {
		checks["council"] = "unavailable"
		ready = false
	}

	status := "ready"
	httpStatus := http.StatusOK
	if !ready {
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	}

	if err := utils.WriteJSON(w, httpStatus, map[string]interface{}{
		"status": status,
		"checks": checks,
	}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return errDatabaseNotInitialized
	}
	return h.db.HealthCheck(ctx)
}

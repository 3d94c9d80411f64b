package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/middleware"
	"github.com/upb/ai-product-council/utils"
)

// FallbackController is the operator view of the fallback orchestrator
type FallbackController interface {
	Status() fallback.Status
	Health() fallback.Health
	ListMethods() map[string]fallback.MethodInfo
	Reset() fallback.ResetAck
}

// ResetResponse is returned by POST /api/v1/fallback/reset
type ResetResponse struct {
	Message string         `json:"message"`
	State   fallback.State `json:"state"`
}

// FallbackHandler exposes the fallback orchestrator to operators
type FallbackHandler struct {
	council FallbackController
	logger  *zap.Logger
}

// NewFallbackHandler creates a new FallbackHandler
func NewFallbackHandler(council FallbackController, logger *zap.Logger) *FallbackHandler {
	return &FallbackHandler{
		council: council,
		logger:  logger,
	}
}

// HandleStatus handles GET /api/v1/fallback/status
func (h *FallbackHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.council.Status()); err != nil {
		h.logger.Error("failed to write fallback status response", zap.Error(err))
	}
}

// HandleHealth handles GET /api/v1/fallback/health.
// Unhealthy reports 503 with the same body.
func (h *FallbackHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := h.council.Health()
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	if err := utils.WriteJSON(w, status, health); err != nil {
		h.logger.Error("failed to write fallback health response", zap.Error(err))
	}
}

// HandleMethods handles GET /api/v1/fallback/methods
func (h *FallbackHandler) HandleMethods(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteOK(w, h.council.ListMethods()); err != nil {
		h.logger.Error("failed to write fallback methods response", zap.Error(err))
	}
}

// HandleReset handles POST /api/v1/fallback/reset
func (h *FallbackHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ack := h.council.Reset()

	h.logger.Info("fallback reset requested",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("previous_state", string(ack.PreviousState)))

	if err := utils.WriteOK(w, ResetResponse{
		Message: ack.Message,
		State:   ack.State,
	}); err != nil {
		h.logger.Error("failed to write fallback reset response", zap.Error(err))
	}
}

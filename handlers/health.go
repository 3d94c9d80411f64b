package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/ai-product-council/app"
	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/utils"
)

var errDatabaseNotInitialized = errors.New("database not initialized")

// StatusResponse is returned by GET /api/v1/status
type StatusResponse struct {
	Version       string         `json:"version"`
	Environment   string         `json:"environment"`
	Providers     []string       `json:"providers"`
	FallbackState fallback.State `json:"fallback_state"`
}

// HealthCheck returns a simple liveness handler
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// StatusHandler returns application status information
func StatusHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, StatusResponse{
			Version:       deps.Config.Version,
			Environment:   deps.Config.Environment,
			Providers:     deps.ProviderRegistry.List(),
			FallbackState: deps.Orchestrator.State(),
		})
	}
}

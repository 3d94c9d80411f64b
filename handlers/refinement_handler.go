package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-product-council/middleware"
	"github.com/upb/ai-product-council/models"
	"github.com/upb/ai-product-council/repositories"
	"github.com/upb/ai-product-council/services/refinement"
	"github.com/upb/ai-product-council/utils"
)

// RefineRequest is the body of POST /api/v1/refine and /api/v1/refine/sync
type RefineRequest struct {
	Idea          string `json:"idea" validate:"required,notblank,min=10,max=5000"`
	PriorityFocus string `json:"priority_focus,omitempty" validate:"omitempty,oneof=balanced technical market user"`
}

// SessionResponse represents a refinement session in API responses
type SessionResponse struct {
	ID                    uuid.UUID                  `json:"id"`
	OriginalIdea          string                     `json:"original_idea"`
	PriorityFocus         string                     `json:"priority_focus"`
	Status                models.SessionStatus       `json:"status"`
	RefinedResult         *models.RefinedRequirement `json:"refined_result"`
	CreatedAt             string                     `json:"created_at"`
	CompletedAt           *string                    `json:"completed_at"`
	ErrorMessage          *string                    `json:"error_message"`
	ProcessingTimeSeconds *float64                   `json:"processing_time_seconds"`
}

// SyncRefineResponse is returned by POST /api/v1/refine/sync
type SyncRefineResponse struct {
	SessionID             uuid.UUID                  `json:"session_id"`
	Result                *models.RefinedRequirement `json:"result"`
	ProcessingTimeSeconds float64                    `json:"processing_time_seconds"`
}

// RefinementService defines the session operations the handler needs
type RefinementService interface {
	// Submit stores a pending session and refines it in the background
	Submit(ctx context.Context, in refinement.Input) (*models.RefinementSession, error)

	// RefineSync refines the idea before returning
	RefineSync(ctx context.Context, in refinement.Input) (*models.RefinementSession, *models.RefinedRequirement, error)

	// Get retrieves a session by ID
	Get(ctx context.Context, id uuid.UUID) (*models.RefinementSession, error)

	// ListRecent lists the newest sessions
	ListRecent(ctx context.Context, limit int) ([]*models.RefinementSession, error)
}

// RefinementHandler handles refinement-related HTTP requests
type RefinementHandler struct {
	service RefinementService
	logger  *zap.Logger
}

// NewRefinementHandler creates a new RefinementHandler
func NewRefinementHandler(service RefinementService, logger *zap.Logger) *RefinementHandler {
	return &RefinementHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSubmit handles POST /api/v1/refine
func (h *RefinementHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, ok := h.decodeRefineRequest(w, r)
	if !ok {
		return
	}

	session, err := h.service.Submit(ctx, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("refinement session submitted",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("session_id", session.ID.String()),
		zap.String("priority_focus", session.PriorityFocus))

	resp, err := sessionToResponse(session)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteAccepted(w, resp)
}

// HandleSync handles POST /api/v1/refine/sync
func (h *RefinementHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	in, ok := h.decodeRefineRequest(w, r)
	if !ok {
		return
	}

	session, result, err := h.service.RefineSync(ctx, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	var seconds float64
	if session.ProcessingTimeSeconds != nil {
		seconds = *session.ProcessingTimeSeconds
	}

	h.logger.Info("refinement completed",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("session_id", session.ID.String()),
		zap.Bool("degraded", result.Degraded),
		zap.Float64("processing_time_seconds", seconds))

	_ = utils.WriteOK(w, SyncRefineResponse{
		SessionID:             session.ID,
		Result:                result,
		ProcessingTimeSeconds: seconds,
	})
}

// HandleGet handles GET /api/v1/refine/{sessionID}
func (h *RefinementHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "sessionID")
	id, err := uuid.Parse(raw)
	if err != nil {
		_ = utils.WriteBadRequest(w, "Invalid session ID format", map[string]interface{}{"session_id": raw})
		return
	}

	session, err := h.service.Get(r.Context(), id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	resp, err := sessionToResponse(session)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, resp)
}

// HandleList handles GET /api/v1/refine?limit=N
func (h *RefinementHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := repositories.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "limit must be an integer", map[string]interface{}{"limit": raw})
			return
		}
		limit = parsed
	}

	sessions, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	responses := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp, err := sessionToResponse(s)
		if err != nil {
			HandleServiceError(w, err, h.logger)
			return
		}
		responses = append(responses, resp)
	}
	_ = utils.WriteOK(w, responses)
}

func (h *RefinementHandler) decodeRefineRequest(w http.ResponseWriter, r *http.Request) (refinement.Input, bool) {
	var req RefineRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return refinement.Input{}, false
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return refinement.Input{}, false
	}
	return refinement.Input{Idea: req.Idea, PriorityFocus: req.PriorityFocus}, true
}

// sessionToResponse converts a session to its response format
func sessionToResponse(s *models.RefinementSession) (SessionResponse, error) {
	result, err := s.Result()
	if err != nil {
		return SessionResponse{}, err
	}

	resp := SessionResponse{
		ID:                    s.ID,
		OriginalIdea:          s.OriginalIdea,
		PriorityFocus:         s.PriorityFocus,
		Status:                s.Status,
		RefinedResult:         result,
		CreatedAt:             s.CreatedAt.UTC().Format(time.RFC3339),
		ErrorMessage:          s.ErrorMessage,
		ProcessingTimeSeconds: s.ProcessingTimeSeconds,
	}
	if s.CompletedAt != nil {
		completed := s.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &completed
	}
	return resp, nil
}

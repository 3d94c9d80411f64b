// Package refinement runs a product idea through the council and keeps track
// of the resulting sessions.
package refinement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/upb/ai-product-council/internal/fallback"
	"github.com/upb/ai-product-council/models"
	"github.com/upb/ai-product-council/repositories"
	"github.com/upb/ai-product-council/services"
)

const tracerName = "github.com/upb/ai-product-council/services/refinement"

// Idea length bounds, in characters.
const (
	MinIdeaLength = 10
	MaxIdeaLength = fallback.MaxIdeaLength
	MaxListLimit  = 100
)

const (
	DefaultAgentConcurrency = 6
	DefaultSessionTimeout   = 3 * time.Minute
)

// Council answers one agent request. *fallback.Orchestrator implements it.
type Council interface {
	Generate(ctx context.Context, req *fallback.Request) (*fallback.Result, error)
}

// Config controls fan-out and session processing.
type Config struct {
	AgentConcurrency int
	SessionTimeout   time.Duration
}

// Input is a refinement request.
type Input struct {
	Idea          string
	PriorityFocus string
}

// Service owns refinement sessions and their background processing.
type Service struct {
	council  Council
	sessions repositories.SessionRepository
	config   Config
	logger   *zap.Logger
	tracer   trace.Tracer

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	baseCtx  context.Context
	cancelBg context.CancelFunc
}

// NewService creates a refinement service
func NewService(council Council, sessions repositories.SessionRepository, config Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AgentConcurrency <= 0 {
		config.AgentConcurrency = DefaultAgentConcurrency
	}
	if config.SessionTimeout <= 0 {
		config.SessionTimeout = DefaultSessionTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		council:  council,
		sessions: sessions,
		config:   config,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		baseCtx:  ctx,
		cancelBg: cancel,
	}
}

// Submit stores a pending session and refines it in the background.
func (s *Service) Submit(ctx context.Context, in Input) (*models.RefinementSession, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, services.WrapUnavailable("service is shutting down", nil)
	}
	s.wg.Add(1)
	s.mu.Unlock()

	session := models.NewRefinementSession(in.Idea, in.PriorityFocus)
	if err := s.sessions.Create(ctx, session); err != nil {
		s.wg.Done()
		return nil, services.WrapInternal("failed to store session", err)
	}

	// the caller gets a snapshot; the worker owns the original
	snapshot := *session

	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(s.baseCtx, s.config.SessionTimeout)
		defer cancel()
		s.process(ctx, session)
	}()

	s.logger.Info("refinement session submitted",
		zap.String("session_id", session.ID.String()),
		zap.String("priority_focus", session.PriorityFocus))

	return &snapshot, nil
}

// RefineSync stores a session, refines it inline and returns both.
func (s *Service) RefineSync(ctx context.Context, in Input) (*models.RefinementSession, *models.RefinedRequirement, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, nil, err
	}

	session := models.NewRefinementSession(in.Idea, in.PriorityFocus)
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, services.WrapInternal("failed to store session", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.SessionTimeout)
	defer cancel()

	result, err := s.process(ctx, session)
	if err != nil {
		return session, nil, err
	}
	return session, result, nil
}

// Get returns a stored session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.RefinementSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.ErrorTypeNotFound, "refinement session not found", err).
				WithDetail("session_id", id.String())
		}
		return nil, services.WrapInternal("failed to load session", err)
	}
	return session, nil
}

// ListRecent returns up to limit sessions, newest first.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*models.RefinementSession, error) {
	if limit < 1 || limit > MaxListLimit {
		return nil, services.ErrInvalidLimit
	}
	sessions, err := s.sessions.ListRecent(ctx, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list sessions", err)
	}
	return sessions, nil
}

// Shutdown stops accepting submissions and waits for background sessions.
// If ctx ends first, the remaining sessions are canceled and ctx's error is
// returned.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancelBg()
		return nil
	case <-ctx.Done():
		s.cancelBg()
		<-done
		return ctx.Err()
	}
}

// process runs one session to a terminal state. Session writes use a context
// that survives the refinement deadline so failures are still recorded.
func (s *Service) process(ctx context.Context, session *models.RefinementSession) (*models.RefinedRequirement, error) {
	storeCtx := context.WithoutCancel(ctx)
	logger := s.logger.With(zap.String("session_id", session.ID.String()))
	start := time.Now()

	session.MarkAsProcessing()
	if err := s.sessions.Update(storeCtx, session); err != nil {
		logger.Error("failed to mark session processing", zap.Error(err))
	}

	result, err := s.Refine(ctx, session.OriginalIdea, session.PriorityFocus)
	elapsed := time.Since(start)

	if err != nil {
		session.MarkAsFailed(err.Error(), elapsed)
		logger.Warn("refinement failed", zap.Error(err), zap.Duration("elapsed", elapsed))
	} else if encErr := session.MarkAsCompleted(result, elapsed); encErr != nil {
		err = services.WrapInternal("failed to encode result", encErr)
		session.MarkAsFailed(err.Error(), elapsed)
	} else {
		logger.Info("refinement completed",
			zap.Duration("elapsed", elapsed),
			zap.Int("priority_score", result.PriorityScore),
			zap.Bool("degraded", result.Degraded))
	}

	if updErr := s.sessions.Update(storeCtx, session); updErr != nil {
		logger.Error("failed to store session outcome", zap.Error(updErr))
		if err == nil {
			err = services.WrapInternal("failed to store session", updErr)
		}
	}

	if err != nil {
		return nil, err
	}
	return result, nil
}

// Refine asks every council member about idea and synthesizes the answers.
// An agent that no fallback could serve is left out; the refinement fails
// only when nobody answered or a request-level error occurred.
func (s *Service) Refine(ctx context.Context, idea, focus string) (*models.RefinedRequirement, error) {
	if focus == "" {
		focus = models.FocusBalanced
	}

	ctx, span := s.tracer.Start(ctx, "refinement.refine",
		trace.WithAttributes(attribute.String("refinement.priority_focus", focus)))
	defer span.End()

	order := AgentOrder(focus)
	answers := make([]*AgentAnswer, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.AgentConcurrency)

	for i, agent := range order {
		g.Go(func() error {
			res, err := s.council.Generate(gctx, &fallback.Request{
				AgentType: agent,
				Idea:      idea,
				Context:   map[string]string{"priority_focus": focus},
			})
			if err != nil {
				if errors.Is(err, fallback.ErrInsufficientFallbacks) {
					s.logger.Warn("agent dropped from council",
						zap.String("agent_type", agent),
						zap.Error(err))
					return nil
				}
				return fmt.Errorf("agent %s: %w", agent, err)
			}
			answers[i] = &AgentAnswer{AgentType: agent, Result: res}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "refinement failed")
		return nil, classify(err)
	}

	collected := make([]AgentAnswer, 0, len(answers))
	for _, a := range answers {
		if a != nil {
			collected = append(collected, *a)
		}
	}
	span.SetAttributes(attribute.Int("refinement.agents_answered", len(collected)))

	if len(collected) == 0 {
		span.SetStatus(codes.Error, "no agent answered")
		return nil, services.ErrNoAgentAnswered
	}

	return Synthesize(idea, collected), nil
}

func classify(err error) error {
	switch {
	case fallback.IsCallerInputError(err):
		return services.WrapValidation("invalid refinement request", err)
	case errors.Is(err, fallback.ErrStateCorruption):
		return services.WrapUnavailable("AI council unavailable", err)
	case errors.Is(err, context.DeadlineExceeded):
		return services.WrapUnavailable("refinement timed out", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return services.WrapInternal("refinement failed", err)
	}
}

func normalize(in Input) (Input, error) {
	in.Idea = strings.TrimSpace(in.Idea)
	in.PriorityFocus = strings.ToLower(strings.TrimSpace(in.PriorityFocus))
	if in.PriorityFocus == "" {
		in.PriorityFocus = models.FocusBalanced
	}

	n := utf8.RuneCountInString(in.Idea)
	if n < MinIdeaLength || n > MaxIdeaLength {
		return in, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("idea must be between %d and %d characters", MinIdeaLength, MaxIdeaLength), nil).
			WithDetail("field", "idea")
	}
	if !ValidFocus(in.PriorityFocus) {
		return in, services.NewDomainError(services.ErrorTypeValidation, "invalid priority focus", nil).
			WithDetail("field", "priority_focus").
			WithDetail("allowed", []string{models.FocusBalanced, models.FocusTechnical, models.FocusMarket, models.FocusUser})
	}
	return in, nil
}

// Package fallback keeps agent calls answering when the primary model fails.
//
// The Orchestrator sends each request to the primary model under a deadline.
// Qualifying failures (timeout, rate limit, quota, connection) are counted by
// a Detector; once the threshold is reached inside the window, the
// orchestrator is degraded and every request goes straight to the best
// available Strategy, then to a Hybrid of all available strategies. Fallback
// confidences are multiplied by a degradation factor. Recovery is manual
// through Reset unless a cooldown is configured.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/upb/ai-product-council/services/providers"
)

const tracerName = "github.com/upb/ai-product-council/internal/fallback"

const (
	DefaultDegradationFactor = 0.8
	DefaultPrimaryTimeout    = 30 * time.Second
	DefaultFallbackTimeout   = 15 * time.Second
	DefaultHybridMinSources  = 2
)

// Config holds the orchestrator settings. It is read once at construction.
type Config struct {
	DegradationFactor float64
	PrimaryTimeout    time.Duration
	FallbackTimeout   time.Duration
	HybridMinSources  int
}

func DefaultConfig() Config {
	return Config{
		DegradationFactor: DefaultDegradationFactor,
		PrimaryTimeout:    DefaultPrimaryTimeout,
		FallbackTimeout:   DefaultFallbackTimeout,
		HybridMinSources:  DefaultHybridMinSources,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DegradationFactor <= 0 || c.DegradationFactor > 1 {
		c.DegradationFactor = d.DegradationFactor
	}
	if c.PrimaryTimeout <= 0 {
		c.PrimaryTimeout = d.PrimaryTimeout
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = d.FallbackTimeout
	}
	if c.HybridMinSources < 2 {
		c.HybridMinSources = d.HybridMinSources
	}
	return c
}

// Status is the operator view of the orchestrator.
type Status struct {
	State              State                  `json:"state"`
	ErrorCount         int                    `json:"error_count"`
	LastErrorTime      *time.Time             `json:"last_error_time"`
	AvailableFallbacks int                    `json:"available_fallbacks"`
	MethodStats        map[string]MethodStats `json:"method_stats"`
	Halted             bool                   `json:"halted,omitempty"`
}

// Health adds a healthy verdict and the fallback inventory to Status.
type Health struct {
	Healthy            bool                   `json:"healthy"`
	State              State                  `json:"state"`
	AvailableFallbacks int                    `json:"available_fallbacks"`
	TotalFallbacks     int                    `json:"total_fallbacks"`
	ErrorCount         int                    `json:"error_count"`
	FallbackMethods    []string               `json:"fallback_methods"`
	LastErrorTime      *time.Time             `json:"last_error_time"`
	MethodStats        map[string]MethodStats `json:"method_stats"`
	Halted             bool                   `json:"halted,omitempty"`
}

// MethodInfo is the static view of one strategy.
type MethodInfo struct {
	Available       bool    `json:"available"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ResetAck acknowledges a reset.
type ResetAck struct {
	Message       string `json:"message"`
	PreviousState State  `json:"previous_state"`
	State         State  `json:"state"`
}

// Orchestrator routes requests between the primary model and the fallbacks.
type Orchestrator struct {
	primary  Generator
	registry *Registry
	detector *Detector
	stats    *Stats
	config   Config
	logger   *zap.Logger
	tracer   trace.Tracer
	halted   atomic.Bool
}

func NewOrchestrator(primary Generator, registry *Registry, detector *Detector, config Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = NewDetector(DetectorConfig{})
	}
	return &Orchestrator{
		primary:  primary,
		registry: registry,
		detector: detector,
		stats:    NewStats(),
		config:   config.withDefaults(),
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
	}
}

// Generate answers req from the primary model or, failing that, a fallback.
// Errors are a *CallerInputError, ErrInsufficientFallbacks,
// ErrStateCorruption or the caller's context error.
func (o *Orchestrator) Generate(ctx context.Context, req *Request) (*Result, error) {
	if o.halted.Load() {
		return nil, fmt.Errorf("%w: orchestrator halted", ErrStateCorruption)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "fallback.generate",
		trace.WithAttributes(attribute.String("agent.type", req.AgentType)))
	defer span.End()

	start := time.Now()
	state := o.detector.State()
	span.SetAttributes(attribute.String("fallback.state", string(state)))

	if state == StatePrimary && o.primary != nil {
		result, useFallback, err := o.tryPrimary(ctx, req, start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if !useFallback {
			span.SetAttributes(attribute.String("fallback.source", result.Source))
			return result, nil
		}
	}

	result, err := o.runFallbacks(ctx, req, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("fallback.source", result.Source),
		attribute.Float64("fallback.confidence", result.Confidence),
	)
	return result, nil
}

// tryPrimary returns a result, or useFallback=true when the request should be
// served by a fallback.
func (o *Orchestrator) tryPrimary(ctx context.Context, req *Request, start time.Time) (*Result, bool, error) {
	pctx, cancel := context.WithTimeout(ctx, o.config.PrimaryTimeout)
	defer cancel()

	pctx, span := o.tracer.Start(pctx, "fallback.primary")
	defer span.End()

	answer, err := o.primary.Generate(pctx, req)
	if err == nil && answer != nil {
		o.record(SourcePrimary, true)
		o.detector.RecordSuccess()
		return &Result{
			Answer:     answer,
			Confidence: primaryConfidence(answer),
			Source:     SourcePrimary,
			Duration:   time.Since(start),
		}, false, nil
	}
	if err == nil {
		err = errors.New("primary returned no answer")
	}

	// the caller gave up; nothing to learn about the primary
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, false, ctxErr
	}

	kind := providers.KindOf(err)
	span.RecordError(err)
	span.SetAttributes(attribute.String("failure.kind", string(kind)))

	if kind == providers.KindInvalidRequest {
		return nil, false, &CallerInputError{Reason: "rejected by primary model", Err: err}
	}

	o.record(SourcePrimary, false)

	if kind.Qualifies() {
		if o.detector.RecordFailure(kind) {
			snap := o.detector.Snapshot()
			o.logger.Warn("primary model degraded, routing to fallbacks",
				zap.String("failure_kind", string(kind)),
				zap.Int("error_count", snap.ErrorCount),
				zap.Error(err))
			o.verifyDetector(snap)
		} else {
			o.logger.Info("primary model failure recorded",
				zap.String("agent_type", req.AgentType),
				zap.String("failure_kind", string(kind)),
				zap.Error(err))
		}
	} else {
		o.logger.Warn("primary model failed, serving fallback without counting it",
			zap.String("agent_type", req.AgentType),
			zap.String("failure_kind", string(kind)),
			zap.Error(err))
	}

	return nil, true, nil
}

func (o *Orchestrator) runFallbacks(ctx context.Context, req *Request, start time.Time) (*Result, error) {
	var excluded []string
	for {
		entry, ok := o.registry.SelectBest(excluded...)
		if !ok {
			break
		}

		answer, err := o.runStrategy(ctx, entry.Name, entry.Strategy, req)
		if err == nil {
			o.record(entry.Name, true)
			return &Result{
				Answer:     answer,
				Confidence: o.penalize(entry.Strategy.BaseConfidence()),
				Source:     entry.Name,
				Duration:   time.Since(start),
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ErrFallbackUnavailable) {
			o.logger.Info("fallback became unavailable, reselecting",
				zap.String("strategy", entry.Name))
			excluded = append(excluded, entry.Name)
			continue
		}

		o.record(entry.Name, false)
		o.logger.Warn("fallback failed, trying hybrid",
			zap.String("strategy", entry.Name),
			zap.String("agent_type", req.AgentType),
			zap.Error(err))
		break
	}

	hybrid, err := o.registry.BuildHybrid(o.config.HybridMinSources)
	if err != nil {
		o.logger.Error("no fallback can serve the request",
			zap.String("agent_type", req.AgentType),
			zap.Error(err))
		return nil, err
	}

	answer, err := o.runStrategy(ctx, SourceHybrid, hybrid, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		o.record(SourceHybrid, false)
		o.logger.Error("hybrid fallback failed",
			zap.String("agent_type", req.AgentType),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrInsufficientFallbacks, err)
	}

	o.record(SourceHybrid, true)
	return &Result{
		Answer:     answer,
		Confidence: answer.Confidence,
		Source:     SourceHybrid,
		Duration:   time.Since(start),
	}, nil
}

func (o *Orchestrator) runStrategy(ctx context.Context, name string, s Strategy, req *Request) (*Answer, error) {
	fctx, cancel := context.WithTimeout(ctx, o.config.FallbackTimeout)
	defer cancel()

	fctx, span := o.tracer.Start(fctx, "fallback.strategy",
		trace.WithAttributes(attribute.String("fallback.strategy", name)))
	defer span.End()

	if !s.IsAvailable() {
		return nil, ErrFallbackUnavailable
	}

	answer, err := s.Generate(fctx, req)
	if err == nil && answer == nil {
		err = fmt.Errorf("%s returned no answer", name)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return answer, nil
}

func (o *Orchestrator) penalize(base float64) float64 {
	return base * o.config.DegradationFactor
}

// record updates usage stats. A failure here halts the instance but never
// fails the request being served.
func (o *Orchestrator) record(name string, success bool) {
	if err := o.stats.Record(name, success); err != nil {
		o.halt(err)
	}
}

func (o *Orchestrator) verifyDetector(snap DetectorSnapshot) {
	if err := snap.Validate(); err != nil {
		o.halt(err)
	}
}

func (o *Orchestrator) halt(err error) {
	if o.halted.CompareAndSwap(false, true) {
		o.logger.Error("fallback orchestrator halted", zap.Error(err))
	}
}

// Halted reports whether an invariant violation stopped the orchestrator.
func (o *Orchestrator) Halted() bool {
	return o.halted.Load()
}

// State returns the current operating state.
func (o *Orchestrator) State() State {
	return o.detector.State()
}

// availableMethods lists available strategy names, plus hybrid when it could be built.
func (o *Orchestrator) availableMethods() []string {
	avail := o.registry.Available()
	names := make([]string, 0, len(avail)+1)
	for _, e := range avail {
		names = append(names, e.Name)
	}
	if len(avail) >= o.config.HybridMinSources {
		names = append(names, SourceHybrid)
	}
	return names
}

func (o *Orchestrator) Status() Status {
	snap := o.detector.Snapshot()
	return Status{
		State:              snap.State,
		ErrorCount:         snap.ErrorCount,
		LastErrorTime:      snap.LastErrorTime,
		AvailableFallbacks: len(o.availableMethods()),
		MethodStats:        o.stats.Snapshot(),
		Halted:             o.halted.Load(),
	}
}

// Health is healthy when the primary is in use or any fallback is available.
func (o *Orchestrator) Health() Health {
	status := o.Status()
	methods := o.availableMethods()
	return Health{
		Healthy:            !status.Halted && (status.State == StatePrimary || len(methods) > 0),
		State:              status.State,
		AvailableFallbacks: len(methods),
		TotalFallbacks:     len(o.registry.Entries()) + 1,
		ErrorCount:         status.ErrorCount,
		FallbackMethods:    methods,
		LastErrorTime:      status.LastErrorTime,
		MethodStats:        status.MethodStats,
		Halted:             status.Halted,
	}
}

// ListMethods reports availability and base confidence per strategy.
func (o *Orchestrator) ListMethods() map[string]MethodInfo {
	described := o.registry.Describe()
	out := make(map[string]MethodInfo, len(described)+1)
	for _, d := range described {
		out[d.Name] = MethodInfo{
			Available:       d.Available,
			ConfidenceScore: d.BaseConfidence,
		}
	}

	hybrid := newHybrid(o.registry.Available(), o.config.DegradationFactor, 0)
	out[SourceHybrid] = MethodInfo{
		Available:       len(hybrid.components) >= o.config.HybridMinSources,
		ConfidenceScore: hybrid.BaseConfidence(),
	}
	return out
}

// Reset returns the orchestrator to primary and clears the failure window.
func (o *Orchestrator) Reset() ResetAck {
	prev := o.detector.Reset()
	o.logger.Info("fallback orchestrator reset", zap.String("previous_state", string(prev)))
	return ResetAck{
		Message:       "Fallback system reset to primary mode",
		PreviousState: prev,
		State:         StatePrimary,
	}
}

func primaryConfidence(a *Answer) float64 {
	if a.Confidence <= 0 || a.Confidence > 1 {
		return DefaultPrimaryConfidence
	}
	return a.Confidence
}

package fallback

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubStrategy is a configurable Strategy for tests.
type stubStrategy struct {
	available atomic.Bool
	base      float64
	answer    *Answer
	err       error
	calls     atomic.Int32
}

func newStub(base float64, answer *Answer, err error) *stubStrategy {
	s := &stubStrategy{base: base, answer: answer, err: err}
	s.available.Store(true)
	return s
}

func (s *stubStrategy) IsAvailable() bool       { return s.available.Load() }
func (s *stubStrategy) BaseConfidence() float64 { return s.base }

func (s *stubStrategy) Generate(ctx context.Context, req *Request) (*Answer, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.answer, nil
}

// mockGenerator mocks the primary model.
type mockGenerator struct {
	mock.Mock
}

func (m *mockGenerator) Generate(ctx context.Context, req *Request) (*Answer, error) {
	args := m.Called(ctx, req)
	if a := args.Get(0); a != nil {
		return a.(*Answer), args.Error(1)
	}
	return nil, args.Error(1)
}

func testRequest(agent string) *Request {
	return &Request{AgentType: agent, Idea: "A mobile app that helps dog walkers plan routes"}
}

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	require.NoError(t, err)
	return c
}

func testConfig() Config {
	return Config{
		DegradationFactor: 0.8,
		PrimaryTimeout:    50 * time.Millisecond,
		FallbackTimeout:   time.Second,
		HybridMinSources:  2,
	}
}

func newTestOrchestrator(t *testing.T, primary Generator, entries ...Entry) *Orchestrator {
	t.Helper()
	registry := NewRegistry(0.8, 3)
	for _, e := range entries {
		require.NoError(t, registry.Register(e.Name, e.Strategy))
	}
	detector := NewDetector(DetectorConfig{Window: time.Minute, Threshold: 3})
	return NewOrchestrator(primary, registry, detector, testConfig(), zap.NewNop())
}

// hangingPrimary blocks until its deadline and counts calls.
func hangingPrimary(calls *atomic.Int32) Generator {
	return GeneratorFunc(func(ctx context.Context, req *Request) (*Answer, error) {
		calls.Add(1)
		<-ctx.Done()
		return nil, ctx.Err()
	})
}

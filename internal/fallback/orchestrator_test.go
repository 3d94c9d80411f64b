package fallback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/upb/ai-product-council/services/providers"
)

var (
	externalAnswer = &Answer{Analysis: "External analysis", Recommendations: []string{"Interview walkers"}, Concerns: []string{"Seasonality"}}
	templateAnswer = &Answer{Analysis: "Template analysis", Recommendations: []string{"Build MVP"}, Concerns: []string{"Competition"}}
	cachedAnswer   = &Answer{Analysis: "Cached analysis", Recommendations: []string{"Niche down"}, Concerns: []string{"Retention"}}
)

func connectionFailure() error {
	return providers.NewProviderError("gemini", providers.KindConnection, 503, "service unavailable", nil)
}

func TestOrchestrator_PrimarySuccess(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(&Answer{Analysis: "primary", Confidence: 0.9}, nil).Once()
	primary.On("Generate", mock.Anything, mock.Anything).Return(&Answer{Analysis: "primary"}, nil).Once()
	template := newStub(0.5, templateAnswer, nil)
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, template})

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.Equal(t, SourcePrimary, result.Source)
	assert.False(t, result.Degraded())
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)

	result, err = o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.InDelta(t, DefaultPrimaryConfidence, result.Confidence, 1e-9)

	assert.Equal(t, int32(0), template.calls.Load())
	stats := o.Status().MethodStats
	assert.Equal(t, int64(2), stats[SourcePrimary].SuccessfulAttempts)
	primary.AssertExpectations(t)
}

func TestOrchestrator_TimeoutsDegradeToExternal(t *testing.T) {
	var primaryCalls atomic.Int32
	external := newStub(0.8, externalAnswer, nil)
	o := newTestOrchestrator(t, hangingPrimary(&primaryCalls),
		Entry{NameExternal, external},
		Entry{NameTemplate, newStub(0.5, templateAnswer, nil)},
		Entry{NameCached, newStub(0.4, cachedAnswer, nil)},
	)

	for i := 0; i < 3; i++ {
		result, err := o.Generate(context.Background(), testRequest("market_researcher"))
		require.NoError(t, err)
		assert.Equal(t, NameExternal, result.Source)
	}
	assert.Equal(t, StateDegraded, o.State())

	result, err := o.Generate(context.Background(), testRequest("market_researcher"))
	require.NoError(t, err)

	assert.Equal(t, NameExternal, result.Source)
	assert.True(t, result.Degraded())
	assert.InDelta(t, 0.64, result.Confidence, 1e-9)
	assert.Equal(t, "External analysis", result.Answer.Analysis)
	assert.Equal(t, int32(3), primaryCalls.Load())

	status := o.Status()
	assert.Equal(t, 3, status.ErrorCount)
	assert.NotNil(t, status.LastErrorTime)
	assert.Equal(t, int64(3), status.MethodStats[SourcePrimary].TotalAttempts)
	assert.Equal(t, int64(4), status.MethodStats[NameExternal].SuccessfulAttempts)
}

func TestOrchestrator_NoCredentialUsesTemplate(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())

	cred := providers.NewCredential("")
	external := NewExternalStrategy(GeneratorFunc(func(ctx context.Context, req *Request) (*Answer, error) {
		return externalAnswer, nil
	}), cred.Present)

	o := newTestOrchestrator(t, primary,
		Entry{NameExternal, external},
		Entry{NameTemplate, newStub(0.5, templateAnswer, nil)},
		Entry{NameCached, newStub(0.4, cachedAnswer, nil)},
	)

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.Equal(t, NameTemplate, result.Source)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)

	// credential added at runtime is picked up on the next selection
	cred.Set("sk-live")
	result, err = o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.Equal(t, NameExternal, result.Source)
}

func TestOrchestrator_FailedStrategyFallsToHybrid(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())

	external := newStub(0.8, externalAnswer, nil)
	external.available.Store(false)
	template := newStub(0.5, nil, errors.New("template rendering failed"))
	cached := newStub(0.4, cachedAnswer, nil)

	o := newTestOrchestrator(t, primary,
		Entry{NameExternal, external},
		Entry{NameTemplate, template},
		Entry{NameCached, cached},
	)

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)

	assert.Equal(t, SourceHybrid, result.Source)
	assert.InDelta(t, 0.32, result.Confidence, 1e-9)
	assert.Equal(t, "Cached analysis.", result.Answer.Analysis)
	assert.Equal(t, int32(2), template.calls.Load())
	assert.Equal(t, int32(0), external.calls.Load())

	stats := o.Status().MethodStats
	assert.Equal(t, int64(1), stats[NameTemplate].TotalAttempts)
	assert.Equal(t, int64(0), stats[NameTemplate].SuccessfulAttempts)
	assert.Equal(t, int64(1), stats[SourceHybrid].SuccessfulAttempts)
}

func TestOrchestrator_InsufficientFallbacks(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())

	external := newStub(0.8, externalAnswer, nil)
	external.available.Store(false)
	template := newStub(0.5, templateAnswer, nil)
	template.available.Store(false)

	o := newTestOrchestrator(t, primary,
		Entry{NameExternal, external},
		Entry{NameTemplate, template},
	)

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInsufficientFallbacks)

	stats := o.Status().MethodStats
	assert.Len(t, stats, 1)
	assert.Contains(t, stats, SourcePrimary)
}

func TestOrchestrator_HybridFailureIsInsufficient(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())

	o := newTestOrchestrator(t, primary,
		Entry{NameTemplate, newStub(0.5, nil, errors.New("template down"))},
		Entry{NameCached, newStub(0.4, nil, ErrNotApplicable)},
	)

	_, err := o.Generate(context.Background(), testRequest("engineer"))
	assert.ErrorIs(t, err, ErrInsufficientFallbacks)

	stats := o.Status().MethodStats
	assert.Equal(t, int64(0), stats[SourceHybrid].SuccessfulAttempts)
	assert.Equal(t, int64(1), stats[SourceHybrid].TotalAttempts)
}

func TestOrchestrator_ReselectsWhenStrategyBecomesUnavailable(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())

	external := newStub(0.8, nil, ErrFallbackUnavailable)
	o := newTestOrchestrator(t, primary,
		Entry{NameExternal, external},
		Entry{NameTemplate, newStub(0.5, templateAnswer, nil)},
	)

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.Equal(t, NameTemplate, result.Source)
	assert.InDelta(t, 0.4, result.Confidence, 1e-9)
	assert.Equal(t, int32(1), external.calls.Load())
	assert.NotContains(t, o.Status().MethodStats, NameExternal)
}

func TestOrchestrator_ConcurrentFailuresConverge(t *testing.T) {
	var primaryCalls atomic.Int32
	registry := NewRegistry(0.8, 3)
	require.NoError(t, registry.Register(NameTemplate, newStub(0.5, templateAnswer, nil)))
	require.NoError(t, registry.Register(NameCached, newStub(0.4, cachedAnswer, nil)))
	detector := NewDetector(DetectorConfig{Threshold: 3})
	o := NewOrchestrator(hangingPrimary(&primaryCalls), registry, detector, testConfig(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := o.Generate(context.Background(), testRequest("designer"))
			if assert.NoError(t, err) {
				assert.Equal(t, NameTemplate, result.Source)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, StateDegraded, o.State())
	assert.Equal(t, int64(1), detector.Snapshot().Transitions)
	assert.False(t, o.Halted())
}

func TestOrchestrator_CallerInputNeverCallsPrimary(t *testing.T) {
	primary := new(mockGenerator)
	template := newStub(0.5, templateAnswer, nil)
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, template})

	tests := []struct {
		name string
		req  *Request
	}{
		{"nil request", nil},
		{"missing agent", &Request{Idea: "an idea"}},
		{"blank idea", &Request{AgentType: "engineer", Idea: "   "}},
		{"idea too long", &Request{AgentType: "engineer", Idea: string(make([]rune, MaxIdeaLength+1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := o.Generate(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, IsCallerInputError(err))
		})
	}

	primary.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	assert.Equal(t, int32(0), template.calls.Load())
	assert.Empty(t, o.Status().MethodStats)
}

func TestOrchestrator_PrimaryRejectsInput(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).
		Return(nil, providers.NewProviderError("gemini", providers.KindInvalidRequest, 400, "prompt blocked", nil))
	template := newStub(0.5, templateAnswer, nil)
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, template})

	_, err := o.Generate(context.Background(), testRequest("engineer"))
	require.Error(t, err)

	var inputErr *CallerInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, providers.KindInvalidRequest, providers.KindOf(err))
	assert.Equal(t, int32(0), template.calls.Load())
	assert.Equal(t, 0, o.Status().ErrorCount)
}

func TestOrchestrator_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := GeneratorFunc(func(ctx context.Context, req *Request) (*Answer, error) {
		cancel()
		return nil, context.Canceled
	})
	template := newStub(0.5, templateAnswer, nil)
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, template})

	_, err := o.Generate(ctx, testRequest("engineer"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), template.calls.Load())
	assert.Equal(t, 0, o.Status().ErrorCount)
}

func TestOrchestrator_UnknownFailureServedButNotCounted(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, errors.New("unexpected payload"))
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, newStub(0.5, templateAnswer, nil)})

	for i := 0; i < 5; i++ {
		result, err := o.Generate(context.Background(), testRequest("engineer"))
		require.NoError(t, err)
		assert.Equal(t, NameTemplate, result.Source)
	}

	status := o.Status()
	assert.Equal(t, StatePrimary, status.State)
	assert.Equal(t, 0, status.ErrorCount)
	assert.Equal(t, int64(5), status.MethodStats[SourcePrimary].TotalAttempts)
	primary.AssertNumberOfCalls(t, "Generate", 5)
}

func TestOrchestrator_StatsCorruptionHalts(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, newStub(0.5, templateAnswer, nil)})
	o.stats.entry(SourcePrimary).successes = 10

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.Equal(t, NameTemplate, result.Source)
	assert.True(t, o.Halted())

	_, err = o.Generate(context.Background(), testRequest("engineer"))
	assert.ErrorIs(t, err, ErrStateCorruption)

	health := o.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Halted)
}

func TestOrchestrator_StatusHealthAndMethods(t *testing.T) {
	primary := new(mockGenerator)
	external := newStub(0.8, externalAnswer, nil)
	external.available.Store(false)
	o := newTestOrchestrator(t, primary,
		Entry{NameExternal, external},
		Entry{NameTemplate, newStub(0.5, templateAnswer, nil)},
		Entry{NameCached, newStub(0.4, cachedAnswer, nil)},
	)

	status := o.Status()
	assert.Equal(t, StatePrimary, status.State)
	assert.Equal(t, 0, status.ErrorCount)
	assert.Nil(t, status.LastErrorTime)
	assert.Equal(t, 3, status.AvailableFallbacks)

	health := o.Health()
	assert.True(t, health.Healthy)
	assert.Equal(t, 4, health.TotalFallbacks)
	assert.Equal(t, []string{NameTemplate, NameCached, SourceHybrid}, health.FallbackMethods)

	methods := o.ListMethods()
	require.Len(t, methods, 4)
	assert.Equal(t, MethodInfo{Available: false, ConfidenceScore: 0.8}, methods[NameExternal])
	assert.Equal(t, MethodInfo{Available: true, ConfidenceScore: 0.5}, methods[NameTemplate])
	assert.True(t, methods[SourceHybrid].Available)
	assert.InDelta(t, 0.45, methods[SourceHybrid].ConfidenceScore, 1e-9)
}

func TestOrchestrator_HealthDegradedWithoutFallbacks(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure())
	template := newStub(0.5, templateAnswer, nil)
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, template})

	for i := 0; i < 3; i++ {
		_, err := o.Generate(context.Background(), testRequest("engineer"))
		require.NoError(t, err)
	}
	require.Equal(t, StateDegraded, o.State())
	assert.True(t, o.Health().Healthy)

	template.available.Store(false)
	health := o.Health()
	assert.False(t, health.Healthy)
	assert.Equal(t, 0, health.AvailableFallbacks)
	assert.Empty(t, health.FallbackMethods)
}

func TestOrchestrator_Reset(t *testing.T) {
	primary := new(mockGenerator)
	primary.On("Generate", mock.Anything, mock.Anything).Return(nil, connectionFailure()).Times(3)
	primary.On("Generate", mock.Anything, mock.Anything).Return(&Answer{Analysis: "back"}, nil)
	o := newTestOrchestrator(t, primary, Entry{NameTemplate, newStub(0.5, templateAnswer, nil)})

	for i := 0; i < 3; i++ {
		_, err := o.Generate(context.Background(), testRequest("engineer"))
		require.NoError(t, err)
	}
	require.Equal(t, StateDegraded, o.State())

	ack := o.Reset()
	assert.Equal(t, StateDegraded, ack.PreviousState)
	assert.Equal(t, StatePrimary, ack.State)
	assert.Equal(t, "Fallback system reset to primary mode", ack.Message)
	assert.Equal(t, 0, o.Status().ErrorCount)

	result, err := o.Generate(context.Background(), testRequest("engineer"))
	require.NoError(t, err)
	assert.Equal(t, SourcePrimary, result.Source)

	ack = o.Reset()
	assert.Equal(t, StatePrimary, ack.PreviousState)
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{DegradationFactor: 1.5, HybridMinSources: 1}.withDefaults()

	assert.Equal(t, DefaultConfig(), c)
}

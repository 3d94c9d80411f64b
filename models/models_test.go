package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefinementSession(t *testing.T) {
	idea := "A mobile app that helps dog walkers plan routes"

	session := NewRefinementSession(idea, "")

	assert.NotEqual(t, uuid.Nil, session.ID)
	assert.Equal(t, idea, session.OriginalIdea)
	assert.Equal(t, FocusBalanced, session.PriorityFocus)
	assert.Equal(t, SessionStatusPending, session.Status)
	assert.False(t, session.CreatedAt.IsZero())
	assert.Nil(t, session.CompletedAt)
	assert.Nil(t, session.ProcessingTimeSeconds)

	assert.Equal(t, FocusMarket, NewRefinementSession(idea, FocusMarket).PriorityFocus)
}

func TestRefinementSession_TableName(t *testing.T) {
	assert.Equal(t, "refinement_sessions", RefinementSession{}.TableName())
}

func TestRefinementSession_MarkAsCompleted(t *testing.T) {
	session := NewRefinementSession("A tool for tracking houseplant watering", FocusUser)
	session.MarkAsProcessing()
	assert.Equal(t, SessionStatusProcessing, session.Status)

	result := &RefinedRequirement{
		RefinedRequirement: "AI-Refined: A tool for tracking houseplant watering",
		KeyChangesSummary:  []string{"Add reminders"},
		AgentDebate: []AgentFeedback{
			{AgentName: "designer", Feedback: "Keep it simple", ConfidenceScore: 0.8, Source: "primary"},
		},
		PriorityScore:   8,
		EstimatedEffort: EffortMedium,
	}

	require.NoError(t, session.MarkAsCompleted(result, 1500*time.Millisecond))

	assert.Equal(t, SessionStatusCompleted, session.Status)
	require.NotNil(t, session.CompletedAt)
	require.NotNil(t, session.ProcessingTimeSeconds)
	assert.Equal(t, 1.5, *session.ProcessingTimeSeconds)
	assert.Nil(t, session.ErrorMessage)

	decoded, err := session.Result()
	require.NoError(t, err)
	assert.Equal(t, result, decoded)
}

func TestRefinementSession_MarkAsFailed(t *testing.T) {
	session := NewRefinementSession("An idea that will not refine", FocusBalanced)

	session.MarkAsFailed("no agent produced an answer", 2*time.Second)

	assert.Equal(t, SessionStatusFailed, session.Status)
	require.NotNil(t, session.ErrorMessage)
	assert.Equal(t, "no agent produced an answer", *session.ErrorMessage)
	assert.Equal(t, 2.0, *session.ProcessingTimeSeconds)
	assert.NotNil(t, session.CompletedAt)

	result, err := session.Result()
	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestRefinementSession_ResultDecodeError(t *testing.T) {
	session := &RefinementSession{RefinedResult: []byte(`{"priority_score":"high"}`)}

	_, err := session.Result()
	assert.Error(t, err)
}

func TestSessionStatus(t *testing.T) {
	tests := []struct {
		status   SessionStatus
		valid    bool
		terminal bool
	}{
		{SessionStatusPending, true, false},
		{SessionStatusProcessing, true, false},
		{SessionStatusCompleted, true, true},
		{SessionStatusFailed, true, true},
		{SessionStatus("archived"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.IsValid())
			assert.Equal(t, tt.terminal, tt.status.IsTerminal())
		})
	}
}

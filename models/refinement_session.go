package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the lifecycle state of a refinement session
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
)

// IsValid checks if the status is one of the known states
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusPending, SessionStatusProcessing, SessionStatusCompleted, SessionStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is expected
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}

// Priority focus values accepted on a refinement request
const (
	FocusBalanced  = "balanced"
	FocusTechnical = "technical"
	FocusMarket    = "market"
	FocusUser      = "user"
)

// RefinementSession tracks one idea through the council
type RefinementSession struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	OriginalIdea  string        `json:"original_idea" db:"original_idea"`
	PriorityFocus string        `json:"priority_focus" db:"priority_focus"`
	Status        SessionStatus `json:"status" db:"status"`

	// RefinedResult holds the serialized RefinedRequirement once completed
	RefinedResult json.RawMessage `json:"refined_result,omitempty" db:"refined_result"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`

	ErrorMessage          *string  `json:"error_message,omitempty" db:"error_message"`
	ProcessingTimeSeconds *float64 `json:"processing_time_seconds,omitempty" db:"processing_time_seconds"`
}

// TableName returns the table name for the RefinementSession model
func (RefinementSession) TableName() string {
	return "refinement_sessions"
}

// NewRefinementSession creates a pending session for idea
func NewRefinementSession(idea, focus string) *RefinementSession {
	if focus == "" {
		focus = FocusBalanced
	}
	return &RefinementSession{
		ID:            uuid.New(),
		OriginalIdea:  idea,
		PriorityFocus: focus,
		Status:        SessionStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// MarkAsProcessing marks the session as picked up
func (s *RefinementSession) MarkAsProcessing() {
	s.Status = SessionStatusProcessing
}

// MarkAsCompleted stores the result and the elapsed time
func (s *RefinementSession) MarkAsCompleted(result *RefinedRequirement, elapsed time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode refined result: %w", err)
	}
	s.Status = SessionStatusCompleted
	s.RefinedResult = data
	s.ErrorMessage = nil
	s.finish(elapsed)
	return nil
}

// MarkAsFailed records the failure reason and the elapsed time
func (s *RefinementSession) MarkAsFailed(message string, elapsed time.Duration) {
	s.Status = SessionStatusFailed
	s.ErrorMessage = &message
	s.finish(elapsed)
}

func (s *RefinementSession) finish(elapsed time.Duration) {
	now := time.Now().UTC()
	secs := elapsed.Seconds()
	s.CompletedAt = &now
	s.ProcessingTimeSeconds = &secs
}

// Result decodes the stored refined result; nil until the session completes
func (s *RefinementSession) Result() (*RefinedRequirement, error) {
	if len(s.RefinedResult) == 0 {
		return nil, nil
	}
	var result RefinedRequirement
	if err := json.Unmarshal(s.RefinedResult, &result); err != nil {
		return nil, fmt.Errorf("failed to decode refined result: %w", err)
	}
	return &result, nil
}

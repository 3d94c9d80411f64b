package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/upb/ai-product-council/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// DefaultListLimit is used by ListRecent when no positive limit is given
const DefaultListLimit = 10

// SessionRepository handles refinement session persistence
type SessionRepository interface {
	// Create inserts a new session
	Create(ctx context.Context, session *models.RefinementSession) error

	// GetByID retrieves a session by ID, or ErrNotFound
	GetByID(ctx context.Context, id uuid.UUID) (*models.RefinementSession, error)

	// Update writes the mutable fields (status, result, completion) of a session
	Update(ctx context.Context, session *models.RefinementSession) error

	// ListRecent returns up to limit sessions, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.RefinementSession, error)
}

// Database is the connection a store runs on
type Database interface {
	// HealthCheck pings the database and runs a trivial query
	HealthCheck(ctx context.Context) error

	// InitSchema creates the tables if they do not exist
	InitSchema(ctx context.Context) error

	Close() error
}

// Repositories holds all repository instances
type Repositories struct {
	Sessions SessionRepository
}

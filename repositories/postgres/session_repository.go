package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-product-council/models"
	"github.com/upb/ai-product-council/repositories"
)

const sessionColumns = `id, original_idea, priority_focus, refined_result, status,
		       created_at, completed_at, error_message, processing_time_seconds`

// SessionRepository implements the repositories.SessionRepository interface
type SessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB, logger *zap.Logger) repositories.SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new refinement session
func (r *SessionRepository) Create(ctx context.Context, s *models.RefinementSession) error {
	query := `
		INSERT INTO refinement_sessions (
			id, original_idea, priority_focus, refined_result, status,
			created_at, completed_at, error_message, processing_time_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.OriginalIdea,
		s.PriorityFocus,
		nullJSON(s.RefinedResult),
		s.Status,
		s.CreatedAt,
		s.CompletedAt,
		s.ErrorMessage,
		s.ProcessingTimeSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to create refinement session: %w", err)
	}

	r.logger.Debug("refinement session created", zap.String("id", s.ID.String()))
	return nil
}

// GetByID retrieves a refinement session by ID
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RefinementSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM refinement_sessions
		WHERE id = $1
	`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("refinement session %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get refinement session: %w", err)
	}

	return s, nil
}

// Update updates the status, result and completion fields of a session
func (r *SessionRepository) Update(ctx context.Context, s *models.RefinementSession) error {
	query := `
		UPDATE refinement_sessions
		SET status = $2, refined_result = $3, completed_at = $4,
		    error_message = $5, processing_time_seconds = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Status,
		nullJSON(s.RefinedResult),
		s.CompletedAt,
		s.ErrorMessage,
		s.ProcessingTimeSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to update refinement session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("refinement session %s: %w", s.ID, repositories.ErrNotFound)
	}

	r.logger.Debug("refinement session updated",
		zap.String("id", s.ID.String()),
		zap.String("status", string(s.Status)))
	return nil
}

// ListRecent lists the most recent sessions, newest first
func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]*models.RefinementSession, error) {
	if limit <= 0 {
		limit = repositories.DefaultListLimit
	}

	query := `
		SELECT ` + sessionColumns + `
		FROM refinement_sessions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refinement sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.RefinementSession, 0, limit)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refinement session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refinement sessions: %w", err)
	}

	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.RefinementSession, error) {
	s := &models.RefinementSession{}
	var result []byte
	err := row.Scan(
		&s.ID,
		&s.OriginalIdea,
		&s.PriorityFocus,
		&result,
		&s.Status,
		&s.CreatedAt,
		&s.CompletedAt,
		&s.ErrorMessage,
		&s.ProcessingTimeSeconds,
	)
	if err != nil {
		return nil, err
	}
	if len(result) > 0 {
		s.RefinedResult = result
	}
	return s, nil
}

// nullJSON stores an absent result as NULL rather than an empty document
func nullJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

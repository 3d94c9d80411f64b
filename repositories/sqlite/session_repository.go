package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/ai-product-council/models"
	"github.com/upb/ai-product-council/repositories"
)

const sessionColumns = `id, original_idea, priority_focus, refined_result, status,
	created_at, completed_at, error_message, processing_time_seconds`

// SessionRepository stores refinement sessions in SQLite
type SessionRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *DB, logger *zap.Logger) repositories.SessionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionRepository{db: db, logger: logger}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.RefinementSession) error {
	query := `INSERT INTO refinement_sessions (` + sessionColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.ID.String(),
		s.OriginalIdea,
		s.PriorityFocus,
		nullText(s.RefinedResult),
		string(s.Status),
		s.CreatedAt.UTC(),
		utcPtr(s.CompletedAt),
		s.ErrorMessage,
		s.ProcessingTimeSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to create refinement session: %w", err)
	}

	r.logger.Debug("refinement session created", zap.String("id", s.ID.String()))
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.RefinementSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM refinement_sessions WHERE id = ?`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("refinement session %s: %w", id, repositories.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refinement session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) Update(ctx context.Context, s *models.RefinementSession) error {
	query := `UPDATE refinement_sessions
	          SET status = ?, refined_result = ?, completed_at = ?, error_message = ?, processing_time_seconds = ?
	          WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query,
		string(s.Status),
		nullText(s.RefinedResult),
		utcPtr(s.CompletedAt),
		s.ErrorMessage,
		s.ProcessingTimeSeconds,
		s.ID.String(),
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

func (r *SessionRepository) ListRecent(ctx context.Context, limit int) ([]*models.RefinementSession, error) {
	if limit <= 0 {
		limit = repositories.DefaultListLimit
	}

	query := `SELECT ` + sessionColumns + ` FROM refinement_sessions
	          ORDER BY created_at DESC
	          LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list refinement sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.RefinementSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refinement session: %w", err)
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.RefinementSession, error) {
	var (
		s         models.RefinementSession
		id        string
		status    string
		result    sql.NullString
		completed sql.NullTime
		errMsg    sql.NullString
		elapsed   sql.NullFloat64
	)

	if err := row.Scan(&id, &s.OriginalIdea, &s.PriorityFocus, &result, &status,
		&s.CreatedAt, &completed, &errMsg, &elapsed); err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", id, err)
	}
	s.ID = parsed
	s.CreatedAt = s.CreatedAt.UTC()
	s.Status = models.SessionStatus(status)

	if result.Valid && result.String != "" {
		s.RefinedResult = []byte(result.String)
	}
	if completed.Valid {
		t := completed.Time.UTC()
		s.CompletedAt = &t
	}
	if errMsg.Valid {
		msg := errMsg.String
		s.ErrorMessage = &msg
	}
	if elapsed.Valid {
		secs := elapsed.Float64
		s.ProcessingTimeSeconds = &secs
	}
	return &s, nil
}

func nullText(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func utcPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

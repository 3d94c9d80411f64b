// Package sqlite is the embedded session store used when no postgres
// database is configured.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/upb/ai-product-council/repositories"
)

var _ repositories.Database = (*DB)(nil)

// DB is a SQLite database opened with WAL journaling
type DB struct {
	*sql.DB
	path   string
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path. ":memory:" keeps
// everything on a single connection so the data outlives each query.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("database connection established",
		zap.String("driver", "sqlite"),
		zap.String("path", path))

	return &DB{DB: db, path: path, logger: logger}, nil
}

// Close closes the database
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// InitSchema creates the session table if needed
func (db *DB) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS refinement_sessions (
			id TEXT PRIMARY KEY,
			original_idea TEXT NOT NULL,
			priority_focus TEXT NOT NULL DEFAULT 'balanced',
			refined_result TEXT,
			status TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			error_message TEXT,
			processing_time_seconds REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refinement_sessions_created_at ON refinement_sessions(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_refinement_sessions_status ON refinement_sessions(status)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	db.logger.Info("database schema initialized successfully", zap.String("path", db.path))
	return nil
}

// NewRepositories creates all repository instances
func (db *DB) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Sessions: NewSessionRepository(db, db.logger),
	}
}

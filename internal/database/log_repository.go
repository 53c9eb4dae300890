package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// LogRepository handles the append-only per-job audit log.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository creates a new log repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Add appends one log entry.
func (r *LogRepository) Add(ctx context.Context, jobID, level, message string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO research_logs (job_id, level, message) VALUES ($1, $2, $3)`,
		jobID, level, message)
	if err != nil {
		return fmt.Errorf("failed to add log entry: %w", err)
	}

	return nil
}

// ListSince returns entries with id greater than sinceID, oldest first. UIs
// poll with their last seen id as the offset.
func (r *LogRepository) ListSince(ctx context.Context, jobID string, sinceID int64, limit int) ([]domain.LogEntry, error) {
	var entries []domain.LogEntry
	query := `
		SELECT id, job_id, ts, level, message
		FROM research_logs
		WHERE job_id = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`

	if err := r.db.SelectContext(ctx, &entries, query, jobID, sinceID, limit); err != nil {
		return nil, fmt.Errorf("failed to list log entries: %w", err)
	}

	return entries, nil
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// ErrReportNotFound is returned when a report ID does not exist.
var ErrReportNotFound = errors.New("report not found")

// ReportRepository persists finalized reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository creates a new report repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a report.
func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) error {
	query := `
		INSERT INTO research (id, query, content, server_name, model_name, generation_secs)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		report.ID,
		report.Query,
		report.Content,
		report.ServerName,
		report.ModelName,
		report.GenerationSecs,
	).Scan(&report.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

// Get retrieves a report by ID.
func (r *ReportRepository) Get(ctx context.Context, id string) (*domain.Report, error) {
	var report domain.Report
	query := `
		SELECT id, query, content, server_name, model_name, generation_secs, created_at
		FROM research
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &report, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

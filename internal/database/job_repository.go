package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// ErrJobNotFound is returned when a job ID does not exist.
var ErrJobNotFound = errors.New("job not found")

const jobColumns = `id, query, server_type, server_name, model_name, target_count, status,
	       accepted_count, drafts_count, errors_count, report_id, config,
	       created_at, updated_at, started_at, finished_at`

// JobRepository handles database operations for research jobs.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a new job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job.
func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO research_jobs (id, query, server_type, server_name, model_name, target_count, status, config)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		job.ID,
		job.Query,
		job.ServerType,
		job.ServerName,
		job.ModelName,
		job.TargetCount,
		job.Status,
		job.Config,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM research_jobs WHERE id = $1`

	err := r.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// List retrieves jobs, newest first, optionally filtered by status.
func (r *JobRepository) List(ctx context.Context, status string, limit, offset int) ([]*domain.Job, error) {
	var jobs []*domain.Job
	var query string
	var args []any

	if status != "" {
		query = `SELECT ` + jobColumns + ` FROM research_jobs WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = []any{status, limit, offset}
	} else {
		query = `SELECT ` + jobColumns + ` FROM research_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = []any{limit, offset}
	}

	err := r.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	if jobs == nil {
		jobs = []*domain.Job{}
	}

	return jobs, nil
}

// JobUpdate is a typed partial update: only non-nil fields are written.
type JobUpdate struct {
	Status        *string
	AcceptedCount *int
	DraftsCount   *int
	ErrorsCount   *int
	ReportID      *string
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// Update applies a partial update to a job.
func (r *JobRepository) Update(ctx context.Context, id string, update JobUpdate) error {
	sets := []string{"updated_at = NOW()"}
	args := []any{}
	next := 1

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, next))
		args = append(args, value)
		next++
	}

	if update.Status != nil {
		add("status", *update.Status)
	}
	if update.AcceptedCount != nil {
		add("accepted_count", *update.AcceptedCount)
	}
	if update.DraftsCount != nil {
		add("drafts_count", *update.DraftsCount)
	}
	if update.ErrorsCount != nil {
		add("errors_count", *update.ErrorsCount)
	}
	if update.ReportID != nil {
		add("report_id", *update.ReportID)
	}
	if update.StartedAt != nil {
		add("started_at", *update.StartedAt)
	}
	if update.FinishedAt != nil {
		add("finished_at", *update.FinishedAt)
	}

	query := fmt.Sprintf("UPDATE research_jobs SET %s WHERE id = $%d", strings.Join(sets, ", "), next)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return requireOneRow(result, id)
}

// UpdateStatus transitions a job to a new status.
func (r *JobRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE research_jobs SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	return requireOneRow(result, id)
}

// IncrementCounts adds deltas to the job's progress counters.
func (r *JobRepository) IncrementCounts(ctx context.Context, id string, draftsDelta, errorsDelta int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE research_jobs
		SET drafts_count = drafts_count + $1,
		    errors_count = errors_count + $2,
		    updated_at = NOW()
		WHERE id = $3
	`, draftsDelta, errorsDelta, id)
	if err != nil {
		return fmt.Errorf("failed to increment job counts: %w", err)
	}

	return requireOneRow(result, id)
}

// TryAccept atomically claims one acceptance slot. It returns false when the
// target is already reached, which resolves workers racing to the last slot:
// the conditional update either claims a slot or does nothing.
func (r *JobRepository) TryAccept(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE research_jobs
		SET accepted_count = accepted_count + 1, updated_at = NOW()
		WHERE id = $1 AND status = $2 AND accepted_count < target_count
	`, id, domain.JobStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to accept draft: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read accept result: %w", err)
	}

	return rows == 1, nil
}

// Delete removes a job; drafts and logs cascade.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM research_jobs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return requireOneRow(result, id)
}

func requireOneRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	return nil
}

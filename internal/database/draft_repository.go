package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// DraftRepository handles database operations for drafts. Drafts are
// append-only: there is no update path.
type DraftRepository struct {
	db *sqlx.DB
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(db *sqlx.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Add inserts a draft.
func (r *DraftRepository) Add(ctx context.Context, draft *domain.Draft) error {
	query := `
		INSERT INTO research_drafts (
			id, job_id, title, summary, incident_date, targets, method,
			exploit_used, relevance, source_url, canonical_url, title_key,
			content_hash, snippet, qa_status, qa_message, link_ok, is_duplicate
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		draft.ID,
		draft.JobID,
		draft.Title,
		draft.Summary,
		draft.IncidentDate,
		draft.Targets,
		draft.Method,
		draft.ExploitUsed,
		draft.Relevance,
		draft.SourceURL,
		draft.CanonicalURL,
		draft.TitleKey,
		draft.ContentHash,
		draft.Snippet,
		draft.QAStatus,
		draft.QAMessage,
		draft.LinkOK,
		draft.IsDuplicate,
	).Scan(&draft.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to add draft: %w", err)
	}

	return nil
}

// ListByJob returns all drafts of a job in insertion order.
func (r *DraftRepository) ListByJob(ctx context.Context, jobID string) ([]domain.Draft, error) {
	var drafts []domain.Draft
	query := `
		SELECT id, job_id, title, summary, incident_date, targets, method,
		       exploit_used, relevance, source_url, canonical_url, title_key,
		       content_hash, snippet, qa_status, qa_message, link_ok, is_duplicate,
		       created_at
		FROM research_drafts
		WHERE job_id = $1
		ORDER BY created_at ASC, id ASC
	`

	if err := r.db.SelectContext(ctx, &drafts, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	return drafts, nil
}

// ListAcceptedByJob returns the drafts that passed acceptance, in acceptance
// order. This order determines report numbering.
func (r *DraftRepository) ListAcceptedByJob(ctx context.Context, jobID string) ([]domain.Draft, error) {
	var drafts []domain.Draft
	query := `
		SELECT id, job_id, title, summary, incident_date, targets, method,
		       exploit_used, relevance, source_url, canonical_url, title_key,
		       content_hash, snippet, qa_status, qa_message, link_ok, is_duplicate,
		       created_at
		FROM research_drafts
		WHERE job_id = $1 AND qa_status = $2
		ORDER BY created_at ASC, id ASC
	`

	if err := r.db.SelectContext(ctx, &drafts, query, jobID, domain.QAStatusOK); err != nil {
		return nil, fmt.Errorf("failed to list accepted drafts: %w", err)
	}

	return drafts, nil
}

// CountByJob returns the number of drafts a job has produced.
func (r *DraftRepository) CountByJob(ctx context.Context, jobID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM research_drafts WHERE job_id = $1`, jobID)
	if err != nil {
		return 0, fmt.Errorf("failed to count drafts: %w", err)
	}

	return count, nil
}

package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements create the tables this module owns. Statements are
// idempotent so startup can always run them.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS research_jobs (
		id             UUID PRIMARY KEY,
		query          TEXT NOT NULL,
		server_type    TEXT NOT NULL DEFAULT '',
		server_name    TEXT NOT NULL DEFAULT '',
		model_name     TEXT NOT NULL DEFAULT '',
		target_count   INTEGER NOT NULL DEFAULT 10,
		status         TEXT NOT NULL DEFAULT 'pending',
		accepted_count INTEGER NOT NULL DEFAULT 0,
		drafts_count   INTEGER NOT NULL DEFAULT 0,
		errors_count   INTEGER NOT NULL DEFAULT 0,
		report_id      UUID,
		config         JSONB,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		started_at     TIMESTAMPTZ,
		finished_at    TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS research_drafts (
		id            UUID PRIMARY KEY,
		job_id        UUID NOT NULL REFERENCES research_jobs(id) ON DELETE CASCADE,
		title         TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL DEFAULT '',
		incident_date TEXT NOT NULL DEFAULT '',
		targets       TEXT NOT NULL DEFAULT '',
		method        TEXT NOT NULL DEFAULT '',
		exploit_used  TEXT NOT NULL DEFAULT '',
		relevance     TEXT NOT NULL DEFAULT '',
		source_url    TEXT NOT NULL DEFAULT '',
		canonical_url TEXT NOT NULL DEFAULT '',
		title_key     TEXT NOT NULL DEFAULT '',
		content_hash  TEXT NOT NULL DEFAULT '',
		snippet       TEXT NOT NULL DEFAULT '',
		qa_status     TEXT NOT NULL DEFAULT 'failed',
		qa_message    TEXT NOT NULL DEFAULT '',
		link_ok       BOOLEAN NOT NULL DEFAULT TRUE,
		is_duplicate  BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_research_drafts_job_id ON research_drafts(job_id)`,

	`CREATE TABLE IF NOT EXISTS research_logs (
		id      BIGSERIAL PRIMARY KEY,
		job_id  UUID NOT NULL REFERENCES research_jobs(id) ON DELETE CASCADE,
		ts      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		level   TEXT NOT NULL DEFAULT 'info',
		message TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_research_logs_job_id ON research_logs(job_id, id)`,

	`CREATE TABLE IF NOT EXISTS research (
		id              UUID PRIMARY KEY,
		query           TEXT NOT NULL DEFAULT '',
		content         TEXT NOT NULL DEFAULT '',
		server_name     TEXT NOT NULL DEFAULT '',
		model_name      TEXT NOT NULL DEFAULT '',
		generation_secs DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS page_cache (
		canonical_url TEXT PRIMARY KEY,
		host          TEXT NOT NULL DEFAULT '',
		text          TEXT NOT NULL DEFAULT '',
		status_code   INTEGER NOT NULL DEFAULT 0,
		etag          TEXT,
		last_modified TEXT,
		size_bytes    INTEGER NOT NULL DEFAULT 0,
		valid_until   TIMESTAMPTZ NOT NULL,
		fetched_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_page_cache_valid_until ON page_cache(valid_until)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return nil
}

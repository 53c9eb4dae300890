package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// PageCacheRepository is the persistent page cache, shared by all jobs. It
// satisfies the fetch layer's PageStore interface.
type PageCacheRepository struct {
	db *sqlx.DB
}

// NewPageCacheRepository creates a new page cache repository.
func NewPageCacheRepository(db *sqlx.DB) *PageCacheRepository {
	return &PageCacheRepository{db: db}
}

// Get returns the cached page for a canonical URL, or (nil, nil) when no
// entry exists.
func (r *PageCacheRepository) Get(ctx context.Context, canonicalURL string) (*domain.CachedPage, error) {
	var page domain.CachedPage
	query := `
		SELECT canonical_url, host, text, status_code, etag, last_modified,
		       size_bytes, valid_until, fetched_at
		FROM page_cache
		WHERE canonical_url = $1
	`

	err := r.db.GetContext(ctx, &page, query, canonicalURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached page: %w", err)
	}

	return &page, nil
}

// Put inserts or replaces a cache entry.
func (r *PageCacheRepository) Put(ctx context.Context, page *domain.CachedPage) error {
	query := `
		INSERT INTO page_cache (canonical_url, host, text, status_code, etag,
		                        last_modified, size_bytes, valid_until, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (canonical_url) DO UPDATE SET
			host = EXCLUDED.host,
			text = EXCLUDED.text,
			status_code = EXCLUDED.status_code,
			etag = EXCLUDED.etag,
			last_modified = EXCLUDED.last_modified,
			size_bytes = EXCLUDED.size_bytes,
			valid_until = EXCLUDED.valid_until,
			fetched_at = EXCLUDED.fetched_at
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		page.CanonicalURL,
		page.Host,
		page.Text,
		page.StatusCode,
		page.ETag,
		page.LastModified,
		page.SizeBytes,
		page.ValidUntil,
		page.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cached page: %w", err)
	}

	return nil
}

// Touch extends an entry's expiry after a cache hit or 304 revalidation.
// Missing entries are ignored.
func (r *PageCacheRepository) Touch(ctx context.Context, canonicalURL string, validUntil time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE page_cache SET valid_until = $1 WHERE canonical_url = $2`,
		validUntil, canonicalURL)
	if err != nil {
		return fmt.Errorf("failed to touch cached page: %w", err)
	}

	return nil
}

// PurgeExpired removes entries whose TTL lapsed before the cutoff.
func (r *PageCacheRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM page_cache WHERE valid_until < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge page cache: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}

	return rows, nil
}

package domain

import "time"

// CachedPage is one entry in the process-wide page cache, keyed by canonical
// URL. Pages are shared between jobs and live on their own TTL independent of
// any job's lifetime.
type CachedPage struct {
	CanonicalURL string    `db:"canonical_url" json:"canonical_url"`
	Host         string    `db:"host"          json:"host"`
	Text         string    `db:"text"          json:"text"`
	StatusCode   int       `db:"status_code"   json:"status_code"`
	ETag         *string   `db:"etag"          json:"etag,omitempty"`
	LastModified *string   `db:"last_modified" json:"last_modified,omitempty"`
	SizeBytes    int       `db:"size_bytes"    json:"size_bytes"`
	ValidUntil   time.Time `db:"valid_until"   json:"valid_until"`
	FetchedAt    time.Time `db:"fetched_at"    json:"fetched_at"`
}

// Fresh reports whether the cache entry may be reused without a network call.
func (p *CachedPage) Fresh(now time.Time) bool {
	return now.Before(p.ValidUntil)
}

package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/domain"
)

// PageStore persists cached pages keyed by canonical URL. Get returns
// (nil, nil) when no entry exists.
type PageStore interface {
	Get(ctx context.Context, canonicalURL string) (*domain.CachedPage, error)
	Put(ctx context.Context, page *domain.CachedPage) error
	Touch(ctx context.Context, canonicalURL string, validUntil time.Time) error
}

// MemoryPageStore is an in-process PageStore. It backs cache-bypass runs,
// where the persistent cache is skipped but redundant fetches within one job
// should still be avoided.
type MemoryPageStore struct {
	mu    sync.RWMutex
	pages map[string]domain.CachedPage
}

// NewMemoryPageStore creates an empty in-memory page store.
func NewMemoryPageStore() *MemoryPageStore {
	return &MemoryPageStore{pages: make(map[string]domain.CachedPage)}
}

// Get returns the cached page for the canonical URL, or (nil, nil).
func (s *MemoryPageStore) Get(_ context.Context, canonicalURL string) (*domain.CachedPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page, ok := s.pages[canonicalURL]
	if !ok {
		return nil, nil
	}

	return &page, nil
}

// Put stores or replaces the cached page.
func (s *MemoryPageStore) Put(_ context.Context, page *domain.CachedPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pages[page.CanonicalURL] = *page

	return nil
}

// Touch extends the expiry of an existing entry. Missing entries are ignored.
func (s *MemoryPageStore) Touch(_ context.Context, canonicalURL string, validUntil time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, ok := s.pages[canonicalURL]
	if !ok {
		return nil
	}

	page.ValidUntil = validUntil
	s.pages[canonicalURL] = page

	return nil
}

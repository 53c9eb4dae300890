package discovery

import (
	"context"
	"sync"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// Composite runs an ordered list of providers and merges their output. It
// backs source-free discovery, where feeds, sitemaps, and shallow crawls
// compose instead of search backends.
type Composite struct {
	providers []Provider
	log       logger.Interface
}

// NewComposite creates a composed provider over an ordered list.
func NewComposite(log logger.Interface, providers ...Provider) *Composite {
	return &Composite{providers: providers, log: log}
}

// Name implements Provider.
func (c *Composite) Name() string { return "composite" }

// Discover runs every provider concurrently and merges their output in
// provider order. A provider failure is logged and skipped; the merged result
// keeps the first occurrence per canonical URL, so earlier providers win ties.
func (c *Composite) Discover(ctx context.Context, params Params) ([]domain.Candidate, error) {
	results := make([][]domain.Candidate, len(c.providers))

	var wg sync.WaitGroup
	for i, p := range c.providers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			candidates, err := p.Discover(ctx, params)
			if err != nil {
				c.log.Warn("discovery provider failed", "provider", p.Name(), "error", err.Error())
				return
			}
			results[i] = candidates
		}()
	}
	wg.Wait()

	var merged []domain.Candidate
	for _, candidates := range results {
		merged = append(merged, candidates...)
	}

	return dedupeCandidates(merged), nil
}

// ScopedProvider pins a provider to a fixed feed and domain list. Providers
// under one Composite share a single Params value, so each one is scoped to
// its own slice of the source catalog at construction.
type ScopedProvider struct {
	inner   Provider
	feeds   []string
	domains []string
}

// Scoped wraps a provider with fixed source lists.
func Scoped(inner Provider, feeds, domains []string) *ScopedProvider {
	return &ScopedProvider{inner: inner, feeds: feeds, domains: domains}
}

// Name implements Provider.
func (s *ScopedProvider) Name() string { return s.inner.Name() }

// Discover overrides the source lists and delegates.
func (s *ScopedProvider) Discover(ctx context.Context, params Params) ([]domain.Candidate, error) {
	params.Feeds = s.feeds
	params.Domains = s.domains

	return s.inner.Discover(ctx, params)
}

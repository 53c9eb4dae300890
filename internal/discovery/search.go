package discovery

import (
	"context"
	"strings"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// SearchOptions carries the backend-neutral knobs for one search call.
type SearchOptions struct {
	Page      int
	PageSize  int
	Region    string
	Language  string
	DateRange *DateRange
}

// SearchBackend is one keyword search engine. Backends return results in a
// uniform shape so the provider can chain them.
type SearchBackend interface {
	Name() string
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.Candidate, error)
}

// SearchProvider queries a primary backend and falls back to a secondary one
// when the primary errors or comes back empty.
type SearchProvider struct {
	primary  SearchBackend
	fallback SearchBackend
	log      logger.Interface
}

// NewSearchProvider composes a primary/fallback backend pair. fallback may be
// nil, in which case primary failures simply yield no candidates.
func NewSearchProvider(primary, fallback SearchBackend, log logger.Interface) *SearchProvider {
	return &SearchProvider{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Name implements Provider.
func (p *SearchProvider) Name() string { return "search" }

// Discover runs one page of keyword search. The incident-focus tail is
// appended to the query, and an embedded date range becomes the backend's
// native date filter.
func (p *SearchProvider) Discover(ctx context.Context, params Params) ([]domain.Candidate, error) {
	query := params.Query
	if !strings.Contains(query, "ransomware OR") {
		query += FocusTail
	}

	dateRange := params.DateRange
	if dateRange == nil {
		dateRange = DateRangeFromQuery(params.Query)
	}

	opts := SearchOptions{
		Page:      params.Page,
		PageSize:  params.PageSize,
		Region:    params.Region,
		Language:  params.Language,
		DateRange: dateRange,
	}

	results, err := p.primary.Search(ctx, query, opts)
	if err != nil {
		p.log.Warn("primary search backend failed",
			"backend", p.primary.Name(),
			"page", params.Page,
			"error", err.Error())
	}

	if len(results) == 0 && p.fallback != nil {
		fallbackResults, fbErr := p.fallback.Search(ctx, query, opts)
		if fbErr != nil {
			p.log.Warn("fallback search backend failed",
				"backend", p.fallback.Name(),
				"page", params.Page,
				"error", fbErr.Error())
		}
		results = fallbackResults
	}

	candidates := dedupeCandidates(results)
	record(p.Name(), candidates)

	return candidates, nil
}

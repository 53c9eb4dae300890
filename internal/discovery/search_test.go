package discovery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// stubBackend is a scripted SearchBackend for provider tests.
type stubBackend struct {
	name    string
	results []domain.Candidate
	err     error
	calls   int
	lastQ   string
	lastOpt discovery.SearchOptions
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Search(
	_ context.Context,
	query string,
	opts discovery.SearchOptions,
) ([]domain.Candidate, error) {
	s.calls++
	s.lastQ = query
	s.lastOpt = opts

	return s.results, s.err
}

func TestSearchProviderUsesPrimary(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "primary", results: []domain.Candidate{
		{URL: "https://example.com/breach", Title: "Breach at Example"},
	}}
	fallback := &stubBackend{name: "fallback"}

	provider := discovery.NewSearchProvider(primary, fallback, logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Query: "incidents", PageSize: 30})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/breach", got[0].URL)
	assert.Zero(t, fallback.calls, "fallback must not run when primary succeeds")
}

func TestSearchProviderFallsBackOnError(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "primary", err: errors.New("quota exceeded")}
	fallback := &stubBackend{name: "fallback", results: []domain.Candidate{
		{URL: "https://example.org/attack", Title: "Attack"},
	}}

	provider := discovery.NewSearchProvider(primary, fallback, logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Query: "incidents"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1, fallback.calls)
}

func TestSearchProviderFallsBackOnEmpty(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "primary"}
	fallback := &stubBackend{name: "fallback", results: []domain.Candidate{
		{URL: "https://example.org/attack", Title: "Attack"},
	}}

	provider := discovery.NewSearchProvider(primary, fallback, logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Query: "incidents"})
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestSearchProviderAppendsFocusTail(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "primary"}
	provider := discovery.NewSearchProvider(primary, nil, logger.Noop())

	_, err := provider.Discover(context.Background(), discovery.Params{Query: "incidents in Australia"})
	require.NoError(t, err)
	assert.Contains(t, primary.lastQ, `ransomware OR "data breach"`)
}

func TestSearchProviderForwardsDateRangeFromQuery(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "primary"}
	provider := discovery.NewSearchProvider(primary, nil, logger.Noop())

	_, err := provider.Discover(context.Background(), discovery.Params{
		Query: "cybersecurity incidents in Australia from 2025-04-01 to 2025-04-14",
	})
	require.NoError(t, err)
	require.NotNil(t, primary.lastOpt.DateRange)
	assert.Equal(t, "2025-04-01", primary.lastOpt.DateRange.From)
	assert.Equal(t, "2025-04-14", primary.lastOpt.DateRange.To)
}

func TestSearchProviderDeduplicatesByCanonicalURL(t *testing.T) {
	t.Parallel()

	primary := &stubBackend{name: "primary", results: []domain.Candidate{
		{URL: "https://example.com/a?utm=1", Title: "First"},
		{URL: "HTTPS://Example.com/a/", Title: "Same page"},
		{URL: "https://example.com/b", Title: "Second"},
	}}

	provider := discovery.NewSearchProvider(primary, nil, logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Query: "incidents"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://example.com/a", got[0].URL)
	assert.Equal(t, "First", got[0].Title)
}

func TestDateRangeFromQuery(t *testing.T) {
	t.Parallel()

	dr := discovery.DateRangeFromQuery("incidents from 2025-04-01 to 2025-04-14")
	require.NotNil(t, dr)
	assert.Equal(t, "2025-04-01", dr.From)
	assert.Equal(t, "2025-04-14", dr.To)

	assert.Nil(t, discovery.DateRangeFromQuery("incidents last week"))
}

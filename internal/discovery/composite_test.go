package discovery_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// scriptedProvider returns fixed candidates or a fixed error.
type scriptedProvider struct {
	name       string
	candidates []domain.Candidate
	err        error
}

func (p scriptedProvider) Name() string { return p.name }

func (p scriptedProvider) Discover(_ context.Context, _ discovery.Params) ([]domain.Candidate, error) {
	return p.candidates, p.err
}

func TestCompositeMergesInOrder(t *testing.T) {
	t.Parallel()

	composite := discovery.NewComposite(logger.Noop(),
		scriptedProvider{name: "rss", candidates: []domain.Candidate{
			{URL: "https://example.com/a", Title: "From RSS"},
		}},
		scriptedProvider{name: "sitemap", candidates: []domain.Candidate{
			{URL: "https://example.com/a", Title: "From sitemap"},
			{URL: "https://example.com/b", Title: "B"},
		}},
	)

	got, err := composite.Discover(context.Background(), discovery.Params{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "From RSS", got[0].Title, "earlier providers win canonical-URL ties")
}

func TestCompositeIsolatesProviderFailure(t *testing.T) {
	t.Parallel()

	composite := discovery.NewComposite(logger.Noop(),
		scriptedProvider{name: "broken", err: errors.New("upstream down")},
		scriptedProvider{name: "crawl", candidates: []domain.Candidate{
			{URL: "https://example.com/c", Title: "C"},
		}},
	)

	got, err := composite.Discover(context.Background(), discovery.Params{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// barrierProvider blocks its Discover until every sibling has entered, so
// the test only completes when the providers actually run in parallel.
type barrierProvider struct {
	name       string
	candidates []domain.Candidate
	ready      *sync.WaitGroup
	release    chan struct{}
}

func (p barrierProvider) Name() string { return p.name }

func (p barrierProvider) Discover(_ context.Context, _ discovery.Params) ([]domain.Candidate, error) {
	p.ready.Done()
	<-p.release

	return p.candidates, nil
}

func TestCompositeRunsProvidersConcurrently(t *testing.T) {
	t.Parallel()

	var ready sync.WaitGroup
	ready.Add(3)
	release := make(chan struct{})

	go func() {
		ready.Wait()
		close(release)
	}()

	composite := discovery.NewComposite(logger.Noop(),
		barrierProvider{name: "rss", ready: &ready, release: release, candidates: []domain.Candidate{
			{URL: "https://example.com/a", Title: "From RSS"},
		}},
		barrierProvider{name: "sitemap", ready: &ready, release: release, candidates: []domain.Candidate{
			{URL: "https://example.com/b", Title: "B"},
		}},
		barrierProvider{name: "crawl", ready: &ready, release: release, candidates: []domain.Candidate{
			{URL: "https://example.com/a", Title: "From crawl"},
		}},
	)

	got, err := composite.Discover(context.Background(), discovery.Params{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "From RSS", got[0].Title, "merge order still follows provider order")
	assert.Equal(t, "B", got[1].Title)
}

// paramsRecorder captures the Params it was called with.
type paramsRecorder struct {
	last discovery.Params
}

func (p *paramsRecorder) Name() string { return "recorder" }

func (p *paramsRecorder) Discover(_ context.Context, params discovery.Params) ([]domain.Candidate, error) {
	p.last = params
	return nil, nil
}

func TestScopedOverridesSourceLists(t *testing.T) {
	t.Parallel()

	recorder := &paramsRecorder{}
	scoped := discovery.Scoped(recorder,
		[]string{"https://example.com/feed.xml"},
		[]string{"news.example.com"},
	)

	_, err := scoped.Discover(context.Background(), discovery.Params{
		Query:   "breach",
		Feeds:   []string{"https://other.org/rss"},
		Domains: []string{"other.org"},
	})
	require.NoError(t, err)

	assert.Equal(t, "recorder", scoped.Name())
	assert.Equal(t, "breach", recorder.last.Query, "non-source params pass through")
	assert.Equal(t, []string{"https://example.com/feed.xml"}, recorder.last.Feeds)
	assert.Equal(t, []string{"news.example.com"}, recorder.last.Domains)
}

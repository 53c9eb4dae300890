package discovery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// stubRobots blocks URLs containing any deny substring.
type stubRobots struct {
	deny []string
}

func (s stubRobots) IsAllowed(_ context.Context, rawURL string) (bool, error) {
	for _, d := range s.deny {
		if strings.Contains(rawURL, d) {
			return false, nil
		}
	}

	return true, nil
}

func TestCrawlProviderKeepsArticleShapedSameDomainLinks(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(`<html><body>
<a href="/news/breach-at-hospital">Breach at hospital</a>
<a href="/tag/security">Security tag</a>
<a href="/assets/logo.png">Logo</a>
<a href="https://other.example.net/story">External story</a>
<a href="/news/private-incident">Private incident</a>
</body></html>`))
	}))
	defer srv.Close()

	provider := discovery.NewCrawlProvider(stubRobots{deny: []string{"/news/private"}}, "incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{
		Domains:           []string{srv.URL},
		MaxPagesPerDomain: 10,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Contains(t, got[0].URL, "/news/breach-at-hospital")
	assert.Equal(t, "Breach at hospital", got[0].Title)
}

func TestCrawlProviderRespectsPerDomainCap(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<a href="/news/a">A</a>
<a href="/news/b">B</a>
<a href="/news/c">C</a>
</body></html>`))
	}))
	defer srv.Close()

	provider := discovery.NewCrawlProvider(stubRobots{}, "incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{
		Domains:           []string{srv.URL},
		MaxPagesPerDomain: 2,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCrawlProviderUnreachableDomainYieldsNothing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	provider := discovery.NewCrawlProvider(stubRobots{}, "incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Domains: []string{srv.URL}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

package discovery_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

func urlsetXML(entries ...string) string {
	body := ""
	for _, e := range entries {
		body += e
	}

	return `<?xml version="1.0"?><urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">` + body + `</urlset>`
}

func urlEntry(loc string, lastMod string) string {
	if lastMod == "" {
		return fmt.Sprintf("<url><loc>%s</loc></url>", loc)
	}

	return fmt.Sprintf("<url><loc>%s</loc><lastmod>%s</lastmod></url>", loc, lastMod)
}

func TestSitemapProviderFiltersByLastMod(t *testing.T) {
	t.Parallel()

	now := time.Now()
	recent := now.AddDate(0, 0, -2).Format("2006-01-02")
	stale := now.AddDate(0, 0, -90).Format("2006-01-02")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(urlsetXML(
			urlEntry("https://example.com/news/ransomware-attack", recent),
			urlEntry("https://example.com/news/ancient-story", stale),
			urlEntry("https://example.com/news/undated-story", ""),
		)))
	}))
	defer srv.Close()

	provider := discovery.NewSitemapProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{
		Domains:     []string{srv.URL},
		RecencyDays: 14,
	})
	require.NoError(t, err)
	require.Len(t, got, 2, "stale entry filtered, undated entry treated as recent")

	gotURLs := []string{got[0].URL, got[1].URL}
	assert.Contains(t, gotURLs, "https://example.com/news/ransomware-attack")
	assert.Contains(t, gotURLs, "https://example.com/news/undated-story")
}

func TestSitemapProviderProbesAlternatePaths(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap_index.xml" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(urlsetXML(urlEntry("https://example.com/post", ""))))
	}))
	defer srv.Close()

	provider := discovery.NewSitemapProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Domains: []string{srv.URL}})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSitemapProviderListsIndexChildren(t *testing.T) {
	t.Parallel()

	index := `<?xml version="1.0"?><sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
<sitemap><loc>https://example.com/sitemap-news.xml</loc></sitemap>
<sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
</sitemapindex>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sitemap.xml" {
			http.NotFound(w, r)
			return
		}

		_, _ = w.Write([]byte(index))
	}))
	defer srv.Close()

	provider := discovery.NewSitemapProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Domains: []string{srv.URL}})
	require.NoError(t, err)
	require.Len(t, got, 2, "index children are listed, not recursed")
	assert.Equal(t, "https://example.com/sitemap-news.xml", got[0].URL)
}

func TestSitemapProviderNoSitemapYieldsNothing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	provider := discovery.NewSitemapProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{Domains: []string{srv.URL}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

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

func rssFeed(items ...string) string {
	body := ""
	for _, it := range items {
		body += it
	}

	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Security News</title>` + body + `</channel></rss>`
}

func rssItem(title, link string, published time.Time) string {
	return fmt.Sprintf(
		`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate></item>`,
		title, link, published.Format(time.RFC1123Z),
	)
}

func TestRSSProviderFiltersByRecencyAndKeywords(t *testing.T) {
	t.Parallel()

	now := time.Now()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssFeed(
			rssItem("Hospital hit by ransomware", "https://example.com/hospital", now.Add(-24*time.Hour)),
			rssItem("Old breach writeup", "https://example.com/old", now.AddDate(0, 0, -60)),
			rssItem("Webinar: compliance roundup", "https://example.com/webinar", now.Add(-2*time.Hour)),
		)))
	}))
	defer srv.Close()

	provider := discovery.NewRSSProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{
		Feeds:           []string{srv.URL + "/feed.xml"},
		RecencyDays:     14,
		ExcludeKeywords: []string{"webinar"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "https://example.com/hospital", got[0].URL)
	assert.Equal(t, "Hospital hit by ransomware", got[0].Title)
}

func TestRSSProviderIsolatesFeedFailures(t *testing.T) {
	t.Parallel()

	now := time.Now()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssFeed(
			rssItem("Data breach at vendor", "https://example.com/vendor", now.Add(-time.Hour)),
		)))
	}))
	defer good.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer broken.Close()

	provider := discovery.NewRSSProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{
		Feeds: []string{broken.URL + "/feed.xml", good.URL + "/feed.xml"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1, "failing feed must not suppress the working one")
}

func TestRSSProviderDeduplicatesAcrossFeeds(t *testing.T) {
	t.Parallel()

	now := time.Now()
	feed := rssFeed(rssItem("Same story", "https://example.com/story?src=rss", now.Add(-time.Hour)))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	provider := discovery.NewRSSProvider("incidentwatch/1.0", logger.Noop())

	got, err := provider.Discover(context.Background(), discovery.Params{
		Feeds: []string{srv.URL + "/a.xml", srv.URL + "/b.xml"},
	})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

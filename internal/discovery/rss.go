package discovery

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

const feedFetchTimeout = 10 * time.Second

// RSSProvider polls configured RSS/Atom feeds concurrently and keeps entries
// inside the recency window that pass the include/exclude keyword filter.
type RSSProvider struct {
	parser *gofeed.Parser
	log    logger.Interface
	now    func() time.Time
}

// NewRSSProvider creates an RSS/Atom provider with the given user agent.
func NewRSSProvider(userAgent string, log logger.Interface) *RSSProvider {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	parser.Client = &http.Client{Timeout: feedFetchTimeout}

	return &RSSProvider{
		parser: parser,
		log:    log,
		now:    time.Now,
	}
}

// Name implements Provider.
func (p *RSSProvider) Name() string { return "rss" }

// Discover fetches every configured feed in parallel. A feed that fails to
// fetch or parse contributes nothing; the others still count.
func (p *RSSProvider) Discover(ctx context.Context, params Params) ([]domain.Candidate, error) {
	var (
		mu      sync.Mutex
		merged  []domain.Candidate
		pending sync.WaitGroup
	)

	for _, feedURL := range params.Feeds {
		pending.Add(1)

		go func(feedURL string) {
			defer pending.Done()

			items, err := p.fetchFeed(ctx, feedURL, params)
			if err != nil {
				p.log.Warn("feed fetch failed", "feed", feedURL, "error", err.Error())
				return
			}

			mu.Lock()
			merged = append(merged, items...)
			mu.Unlock()
		}(feedURL)
	}

	pending.Wait()

	candidates := dedupeCandidates(merged)
	record(p.Name(), candidates)

	return candidates, nil
}

// fetchFeed parses one feed and applies the recency and keyword filters.
func (p *RSSProvider) fetchFeed(ctx context.Context, feedURL string, params Params) ([]domain.Candidate, error) {
	feed, err := p.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	now := p.now()
	items := make([]domain.Candidate, 0, len(feed.Items))

	for _, item := range feed.Items {
		link := item.Link
		if link == "" {
			link = item.GUID
		}
		if link == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			published = item.UpdatedParsed
		}

		if !withinRecency(published, params.RecencyDays, now) {
			continue
		}

		if !matchesKeywords(item.Title+" "+link, params.IncludeKeywords, params.ExcludeKeywords) {
			continue
		}

		items = append(items, domain.Candidate{URL: link, Title: item.Title})
	}

	return items, nil
}

package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
	"github.com/jonesrussell/incidentwatch/internal/urls"
)

const (
	defaultMaxPagesPerDomain = 30
	maxCrawlPageBytes        = 4 * 1024 * 1024 // 4 MB
)

// RobotsPolicy answers whether a URL may be fetched for the configured user
// agent.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// CrawlProvider fetches each configured domain's front page and keeps
// same-domain, article-shaped, robots-allowed links, capped per domain.
type CrawlProvider struct {
	httpClient *http.Client
	robots     RobotsPolicy
	log        logger.Interface
	userAgent  string
}

// NewCrawlProvider creates a shallow domain crawler.
func NewCrawlProvider(robots RobotsPolicy, userAgent string, log logger.Interface) *CrawlProvider {
	return &CrawlProvider{
		httpClient: &http.Client{Timeout: feedFetchTimeout},
		robots:     robots,
		log:        log,
		userAgent:  userAgent,
	}
}

// Name implements Provider.
func (p *CrawlProvider) Name() string { return "crawl" }

// Discover crawls every configured domain's root in parallel.
func (p *CrawlProvider) Discover(ctx context.Context, params Params) ([]domain.Candidate, error) {
	maxPages := params.MaxPagesPerDomain
	if maxPages <= 0 {
		maxPages = defaultMaxPagesPerDomain
	}

	var (
		mu      sync.Mutex
		merged  []domain.Candidate
		pending sync.WaitGroup
	)

	for _, d := range params.Domains {
		pending.Add(1)

		go func(d string) {
			defer pending.Done()

			items, err := p.crawlDomain(ctx, d, maxPages)
			if err != nil {
				p.log.Warn("domain crawl failed", "domain", d, "error", err.Error())
				return
			}

			mu.Lock()
			merged = append(merged, items...)
			mu.Unlock()
		}(d)
	}

	pending.Wait()

	candidates := dedupeCandidates(merged)
	record(p.Name(), candidates)

	return candidates, nil
}

// crawlDomain fetches the domain root and filters its outbound links.
func (p *CrawlProvider) crawlDomain(ctx context.Context, d string, maxPages int) ([]domain.Candidate, error) {
	base := domainBaseURL(d) + "/"
	host := urls.Host(base)

	html, err := p.fetchRoot(ctx, base)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := make([]domain.Candidate, 0, maxPages)

	for _, link := range urls.ExtractLinks(html, base) {
		canonical := urls.Canonical(link.URL)
		if canonical == "" {
			continue
		}

		key := canonical
		if _, ok := seen[key]; ok {
			continue
		}

		if !urls.SameDomain(canonical, host) || !urls.LooksLikeArticle(canonical) {
			continue
		}

		allowed, robotsErr := p.robots.IsAllowed(ctx, canonical)
		if robotsErr != nil || !allowed {
			continue
		}

		seen[key] = struct{}{}

		title := link.Text
		if title == "" {
			title = canonical
		}

		out = append(out, domain.Candidate{URL: canonical, Title: title})
		if len(out) >= maxPages {
			break
		}
	}

	return out, nil
}

func (p *CrawlProvider) fetchRoot(ctx context.Context, rootURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rootURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("crawl create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("crawl fetch %s: %w", rootURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("crawl fetch %s: status %d", rootURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlPageBytes))
	if err != nil {
		return "", fmt.Errorf("crawl read %s: %w", rootURL, err)
	}

	return string(body), nil
}

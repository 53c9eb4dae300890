package discovery

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// sitemapPaths are the conventional locations probed per domain, in order.
var sitemapPaths = []string{"/sitemap.xml", "/sitemap_index.xml", "/sitemap-index.xml"}

const maxSitemapBytes = 8 * 1024 * 1024 // 8 MB

// SitemapProvider probes each configured domain for an XML sitemap and keeps
// recent, keyword-matching entries. Sitemap indexes list their child sitemap
// URLs as candidates; they are not recursed into.
type SitemapProvider struct {
	httpClient *http.Client
	log        logger.Interface
	userAgent  string
	now        func() time.Time
}

// NewSitemapProvider creates a sitemap provider with the given user agent.
func NewSitemapProvider(userAgent string, log logger.Interface) *SitemapProvider {
	return &SitemapProvider{
		httpClient: &http.Client{Timeout: feedFetchTimeout},
		log:        log,
		userAgent:  userAgent,
		now:        time.Now,
	}
}

// Name implements Provider.
func (p *SitemapProvider) Name() string { return "sitemap" }

// Discover probes all configured domains in parallel.
func (p *SitemapProvider) Discover(ctx context.Context, params Params) ([]domain.Candidate, error) {
	var (
		mu      sync.Mutex
		merged  []domain.Candidate
		pending sync.WaitGroup
	)

	for _, d := range params.Domains {
		pending.Add(1)

		go func(d string) {
			defer pending.Done()

			items, err := p.probeDomain(ctx, d, params)
			if err != nil {
				p.log.Warn("sitemap probe failed", "domain", d, "error", err.Error())
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

// probeDomain tries the conventional sitemap paths until one parses.
func (p *SitemapProvider) probeDomain(ctx context.Context, d string, params Params) ([]domain.Candidate, error) {
	base := domainBaseURL(d)

	for _, path := range sitemapPaths {
		body, err := p.fetchSitemap(ctx, base+path)
		if err != nil || len(body) == 0 {
			continue
		}

		entries := parseSitemap(body)
		if len(entries) == 0 {
			continue
		}

		return p.filterEntries(entries, params), nil
	}

	return nil, fmt.Errorf("no sitemap found for %s", d)
}

// fetchSitemap retrieves one sitemap URL; non-200 responses yield no body.
func (p *SitemapProvider) fetchSitemap(ctx context.Context, sitemapURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxSitemapBytes))
}

// filterEntries applies recency and keyword gating. An entry without lastmod
// is treated as recent.
func (p *SitemapProvider) filterEntries(entries []sitemapEntry, params Params) []domain.Candidate {
	now := p.now()
	out := make([]domain.Candidate, 0, len(entries))

	for _, e := range entries {
		if !withinRecency(e.lastMod, params.RecencyDays, now) {
			continue
		}

		if !matchesKeywords(e.loc, params.IncludeKeywords, params.ExcludeKeywords) {
			continue
		}

		out = append(out, domain.Candidate{URL: e.loc, Title: e.loc})
	}

	return out
}

// sitemapEntry is one parsed <url> or <sitemap> element.
type sitemapEntry struct {
	loc     string
	lastMod *time.Time
}

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc     string `xml:"loc"`
		LastMod string `xml:"lastmod"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// parseSitemap handles both urlset and sitemapindex documents.
func parseSitemap(body []byte) []sitemapEntry {
	var urlSet sitemapURLSet
	if err := xml.Unmarshal(body, &urlSet); err == nil && len(urlSet.URLs) > 0 {
		entries := make([]sitemapEntry, 0, len(urlSet.URLs))
		for _, u := range urlSet.URLs {
			loc := strings.TrimSpace(u.Loc)
			if loc == "" {
				continue
			}
			entries = append(entries, sitemapEntry{loc: loc, lastMod: parseLastMod(u.LastMod)})
		}

		return entries
	}

	var index sitemapIndex
	if err := xml.Unmarshal(body, &index); err == nil && len(index.Sitemaps) > 0 {
		entries := make([]sitemapEntry, 0, len(index.Sitemaps))
		for _, s := range index.Sitemaps {
			loc := strings.TrimSpace(s.Loc)
			if loc == "" {
				continue
			}
			entries = append(entries, sitemapEntry{loc: loc})
		}

		return entries
	}

	return nil
}

// lastModLayouts are the timestamp shapes seen in real sitemaps.
var lastModLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseLastMod(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range lastModLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}

	return nil
}

// domainBaseURL builds the probe base for a configured domain. Domains with
// an explicit scheme are used as-is.
func domainBaseURL(d string) string {
	if strings.Contains(d, "://") {
		return strings.TrimRight(d, "/")
	}

	return "https://" + strings.TrimRight(d, "/")
}

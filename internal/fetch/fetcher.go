package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/logger"
	"github.com/jonesrussell/incidentwatch/internal/metrics"
	"github.com/jonesrussell/incidentwatch/internal/urls"
)

// defaultRequestTimeout bounds a single page fetch.
const defaultRequestTimeout = 10 * time.Second

// defaultCacheTTL is how long a fetched page stays fresh without revalidation.
const defaultCacheTTL = 6 * time.Hour

// maxResponseBodyBytes limits the size of fetched page responses.
const maxResponseBodyBytes = 10 * 1024 * 1024 // 10 MB

// Limiter throttles fetches per domain.
type Limiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config configures a Fetcher.
type Config struct {
	UserAgent      string
	CacheTTL       time.Duration
	RequestTimeout time.Duration
}

// Result is the outcome of fetching one page.
type Result struct {
	CanonicalURL string
	Text         string
	HTML         string
	StatusCode   int
	FromCache    bool
}

// Fetcher retrieves readable page text. Every fetch goes through per-domain
// rate limiting and the page cache; unchanged pages are revalidated with
// conditional requests instead of re-downloaded.
type Fetcher struct {
	httpClient *http.Client
	limiter    Limiter
	store      PageStore
	log        logger.Interface
	userAgent  string
	cacheTTL   time.Duration
}

// New creates a Fetcher backed by the given store and limiter.
func New(store PageStore, limiter Limiter, log logger.Interface, cfg Config) *Fetcher {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = defaultCacheTTL
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		limiter:    limiter,
		store:      store,
		log:        log,
		userAgent:  cfg.UserAgent,
		cacheTTL:   cfg.CacheTTL,
	}
}

// Fetch returns the readable text for a URL. Cache lookups and conditional
// revalidation happen against the canonical URL; any network failure or
// non-2xx/304 status is returned as an error the caller counts and moves past.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	canonical := urls.Canonical(rawURL)
	if canonical == "" {
		return nil, fmt.Errorf("fetch: empty url")
	}

	cached, cacheErr := f.store.Get(ctx, canonical)
	if cacheErr != nil {
		f.log.Warn("page cache read failed", "url", canonical, "error", cacheErr.Error())
		cached = nil
	}

	if cached != nil && cached.Fresh(time.Now()) {
		f.touch(ctx, canonical)
		metrics.PageCacheHits.Inc()

		return &Result{
			CanonicalURL: canonical,
			Text:         cached.Text,
			StatusCode:   cached.StatusCode,
			FromCache:    true,
		}, nil
	}

	if waitErr := f.limiter.Wait(ctx, canonical); waitErr != nil {
		return nil, fmt.Errorf("fetch rate limit: %w", waitErr)
	}

	metrics.PageFetches.Inc()

	body, headers, statusCode, fetchErr := f.doFetch(ctx, canonical, cached)
	if fetchErr != nil {
		metrics.PageFetchErrors.Inc()
		return nil, fetchErr
	}

	switch {
	case statusCode == http.StatusNotModified && cached != nil:
		f.touch(ctx, canonical)
		metrics.PageCacheHits.Inc()

		return &Result{
			CanonicalURL: canonical,
			Text:         cached.Text,
			StatusCode:   cached.StatusCode,
			FromCache:    true,
		}, nil

	case statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices:
		return f.storeAndBuild(ctx, canonical, body, headers, statusCode), nil

	default:
		metrics.PageFetchErrors.Inc()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", canonical, statusCode)
	}
}

// cacheHeaders carries the response caching headers we persist.
type cacheHeaders struct {
	etag         *string
	lastModified *string
}

// doFetch performs the conditional GET.
func (f *Fetcher) doFetch(
	ctx context.Context,
	canonical string,
	cached *domain.CachedPage,
) (body string, headers cacheHeaders, statusCode int, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, canonical, http.NoBody)
	if reqErr != nil {
		return "", cacheHeaders{}, 0, fmt.Errorf("fetch create request: %w", reqErr)
	}

	req.Header.Set("User-Agent", f.userAgent)
	setConditionalHeaders(req, cached)

	resp, doErr := f.httpClient.Do(req)
	if doErr != nil {
		return "", cacheHeaders{}, 0, fmt.Errorf("fetch %s: %w", canonical, doErr)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if readErr != nil {
		return "", cacheHeaders{}, resp.StatusCode, fmt.Errorf("fetch read body: %w", readErr)
	}

	if v := resp.Header.Get("ETag"); v != "" {
		headers.etag = &v
	}
	if v := resp.Header.Get("Last-Modified"); v != "" {
		headers.lastModified = &v
	}

	return string(raw), headers, resp.StatusCode, nil
}

// storeAndBuild extracts readable text, replaces the cache entry, and builds
// the fetch result. Cache write failures are logged, not fatal.
func (f *Fetcher) storeAndBuild(
	ctx context.Context,
	canonical, html string,
	headers cacheHeaders,
	statusCode int,
) *Result {
	text := ExtractText(html, canonical)

	page := &domain.CachedPage{
		CanonicalURL: canonical,
		Host:         urls.Host(canonical),
		Text:         text,
		StatusCode:   statusCode,
		ETag:         headers.etag,
		LastModified: headers.lastModified,
		SizeBytes:    len(html),
		ValidUntil:   time.Now().Add(f.cacheTTL),
		FetchedAt:    time.Now(),
	}

	if putErr := f.store.Put(ctx, page); putErr != nil {
		f.log.Warn("page cache write failed", "url", canonical, "error", putErr.Error())
	}

	return &Result{
		CanonicalURL: canonical,
		Text:         text,
		HTML:         html,
		StatusCode:   statusCode,
	}
}

// touch extends a cache entry's expiry; failures are logged only.
func (f *Fetcher) touch(ctx context.Context, canonical string) {
	if err := f.store.Touch(ctx, canonical, time.Now().Add(f.cacheTTL)); err != nil {
		f.log.Warn("page cache touch failed", "url", canonical, "error", err.Error())
	}
}

// setConditionalHeaders adds If-None-Match and If-Modified-Since headers
// when the cached page has ETag or Last-Modified values.
func setConditionalHeaders(req *http.Request, cached *domain.CachedPage) {
	if cached == nil {
		return
	}

	if cached.ETag != nil {
		req.Header.Set("If-None-Match", *cached.ETag)
	}

	if cached.LastModified != nil {
		req.Header.Set("If-Modified-Since", *cached.LastModified)
	}
}

package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/domain"
)

const (
	defaultSerpAPIBaseURL = "https://serpapi.com/search.json"
	searchRequestTimeout  = 15 * time.Second
	maxSearchResponseLen  = 4 * 1024 * 1024 // 4 MB
)

// SerpAPIBackend queries the SerpAPI Google News endpoint.
type SerpAPIBackend struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewSerpAPIBackend creates a SerpAPI search backend. baseURL may be empty to
// use the production endpoint.
func NewSerpAPIBackend(apiKey, baseURL string) *SerpAPIBackend {
	if baseURL == "" {
		baseURL = defaultSerpAPIBaseURL
	}

	return &SerpAPIBackend{
		httpClient: &http.Client{Timeout: searchRequestTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// Name implements SearchBackend.
func (b *SerpAPIBackend) Name() string { return "serpapi" }

// serpAPIResult is one entry from either result list.
type serpAPIResult struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

// serpAPIResponse covers the organic and news result shapes.
type serpAPIResponse struct {
	OrganicResults []serpAPIResult `json:"organic_results"`
	NewsResults    []serpAPIResult `json:"news_results"`
	Error          string          `json:"error"`
}

// Search issues one paginated news query. The date range is passed through
// SerpAPI's custom date range filter (tbs=cdr:1,cd_min:...,cd_max:...).
func (b *SerpAPIBackend) Search(
	ctx context.Context,
	query string,
	opts SearchOptions,
) ([]domain.Candidate, error) {
	values := url.Values{}
	values.Set("engine", "google")
	values.Set("q", query)
	values.Set("tbm", "nws")
	values.Set("num", strconv.Itoa(opts.PageSize))
	values.Set("start", strconv.Itoa(opts.Page*opts.PageSize))
	values.Set("api_key", b.apiKey)

	if opts.Region != "" {
		values.Set("gl", opts.Region)
	}
	if opts.Language != "" {
		values.Set("hl", opts.Language)
	}
	if opts.DateRange != nil {
		values.Set("tbs", fmt.Sprintf("cdr:1,cd_min:%s,cd_max:%s", opts.DateRange.From, opts.DateRange.To))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+values.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("serpapi create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchResponseLen))
	if err != nil {
		return nil, fmt.Errorf("serpapi read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serpapi status %d", resp.StatusCode)
	}

	var parsed serpAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("serpapi decode response: %w", err)
	}

	if parsed.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", parsed.Error)
	}

	results := make([]domain.Candidate, 0, len(parsed.NewsResults)+len(parsed.OrganicResults))
	for _, r := range append(parsed.NewsResults, parsed.OrganicResults...) {
		if r.Link == "" {
			continue
		}
		results = append(results, domain.Candidate{URL: r.Link, Title: r.Title})
	}

	return results, nil
}

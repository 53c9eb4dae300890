package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/domain"
)

const defaultTavilyBaseURL = "https://api.tavily.com/search"

// TavilyBackend queries the Tavily search API. Tavily does not paginate, so
// it serves best as the fallback half of a backend pair.
type TavilyBackend struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	includeDomains []string
}

// NewTavilyBackend creates a Tavily search backend. baseURL may be empty to
// use the production endpoint; includeDomains optionally restricts results.
func NewTavilyBackend(apiKey, baseURL string, includeDomains []string) *TavilyBackend {
	if baseURL == "" {
		baseURL = defaultTavilyBaseURL
	}

	return &TavilyBackend{
		httpClient:     &http.Client{Timeout: searchRequestTimeout},
		baseURL:        baseURL,
		apiKey:         apiKey,
		includeDomains: includeDomains,
	}
}

// Name implements SearchBackend.
func (b *TavilyBackend) Name() string { return "tavily" }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	MaxResults     int      `json:"max_results"`
	Topic          string   `json:"topic,omitempty"`
	Days           int      `json:"days,omitempty"`
	IncludeDomains []string `json:"include_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
}

// Search issues one query. Page is ignored: Tavily returns its best
// max_results in a single response.
func (b *TavilyBackend) Search(
	ctx context.Context,
	query string,
	opts SearchOptions,
) ([]domain.Candidate, error) {
	reqBody := tavilyRequest{
		APIKey:         b.apiKey,
		Query:          query,
		MaxResults:     opts.PageSize,
		Topic:          "news",
		IncludeDomains: b.includeDomains,
	}

	if opts.DateRange != nil {
		reqBody.Days = daysInRange(opts.DateRange)
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("tavily encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("tavily create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSearchResponseLen))
	if err != nil {
		return nil, fmt.Errorf("tavily read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily status %d", resp.StatusCode)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("tavily decode response: %w", err)
	}

	results := make([]domain.Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL == "" {
			continue
		}
		results = append(results, domain.Candidate{URL: r.URL, Title: r.Title})
	}

	return results, nil
}

// daysInRange converts an explicit date range into Tavily's lookback window.
func daysInRange(dr *DateRange) int {
	from, errFrom := time.Parse("2006-01-02", dr.From)
	to, errTo := time.Parse("2006-01-02", dr.To)
	if errFrom != nil || errTo != nil || to.Before(from) {
		return 0
	}

	return int(to.Sub(from).Hours()/24) + 1
}

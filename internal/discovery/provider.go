// Package discovery turns configured sources into candidate URLs. Each
// provider queries its sources concurrently, isolates per-source failures,
// and returns a finite, internally deduplicated list of {url, title} pairs.
package discovery

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/metrics"
	"github.com/jonesrussell/incidentwatch/internal/urls"
)

// FocusTail is appended to search queries to keep backends oriented toward
// incident coverage rather than general news.
const FocusTail = ` (ransomware OR "data breach" OR breach OR cyberattack OR exploit OR vulnerability OR malware OR "zero-day" OR CVE)`

// DateRange bounds discovery to pages published inside [From, To], both
// formatted as YYYY-MM-DD.
type DateRange struct {
	From string
	To   string
}

// Params carries everything a provider may need for one discovery round.
// Providers read the fields relevant to them and ignore the rest.
type Params struct {
	Query             string
	Page              int
	PageSize          int
	RecencyDays       int
	IncludeKeywords   []string
	ExcludeKeywords   []string
	Region            string
	Language          string
	DateRange         *DateRange
	Feeds             []string
	Domains           []string
	MaxPagesPerDomain int
}

// Provider produces candidate URLs from one class of source.
type Provider interface {
	Name() string
	Discover(ctx context.Context, params Params) ([]domain.Candidate, error)
}

var dateRangeRe = regexp.MustCompile(`from (\d{4}-\d{2}-\d{2}) to (\d{4}-\d{2}-\d{2})`)

// DateRangeFromQuery extracts an embedded "from YYYY-MM-DD to YYYY-MM-DD"
// range out of a query string. Scheduled jobs encode their lookback window
// this way; the range drives both search date filters and the report header.
func DateRangeFromQuery(query string) *DateRange {
	m := dateRangeRe.FindStringSubmatch(strings.ToLower(query))
	if m == nil {
		return nil
	}

	return &DateRange{From: m[1], To: m[2]}
}

// matchesKeywords applies the include/exclude filter to a candidate's
// title+URL text. An empty include list matches everything.
func matchesKeywords(text string, include, exclude []string) bool {
	lowered := strings.ToLower(text)

	if len(include) > 0 {
		hit := false
		for _, k := range include {
			if strings.Contains(lowered, strings.ToLower(k)) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}

	for _, k := range exclude {
		if strings.Contains(lowered, strings.ToLower(k)) {
			return false
		}
	}

	return true
}

// withinRecency reports whether a publication time falls inside the recency
// window. Unknown times pass: a missing date is not evidence of staleness.
func withinRecency(published *time.Time, recencyDays int, now time.Time) bool {
	if published == nil || recencyDays <= 0 {
		return true
	}

	return !published.Before(now.AddDate(0, 0, -recencyDays))
}

// dedupeCandidates keeps the first occurrence per lowercased canonical URL
// and drops entries whose URL cannot be canonicalized.
func dedupeCandidates(in []domain.Candidate) []domain.Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Candidate, 0, len(in))

	for _, c := range in {
		canonical := urls.Canonical(c.URL)
		if canonical == "" {
			continue
		}

		key := strings.ToLower(canonical)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}

		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = canonical
		}

		out = append(out, domain.Candidate{URL: canonical, Title: title})
	}

	return out
}

// record counts a provider's contribution.
func record(provider string, candidates []domain.Candidate) {
	metrics.CandidatesDiscovered.WithLabelValues(provider).Add(float64(len(candidates)))
}

// Package metrics defines the Prometheus instrumentation shared by the
// discovery, fetch, and job packages. Counters register on the default
// registry; the process does not expose a scrape endpoint, but the same
// counters feed job progress summaries and tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all incidentwatch metrics.
	Namespace = "incidentwatch"
)

var (
	// PageFetches counts network fetches that completed with a 2xx status.
	PageFetches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "page_fetches_total",
		Help:      "Total number of successful page fetches over the network",
	})

	// PageFetchErrors counts fetches that failed at the transport layer or
	// returned a non-success status.
	PageFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "page_fetch_errors_total",
		Help:      "Total number of failed page fetches",
	})

	// PageCacheHits counts fetches served from the page cache, including
	// 304 revalidations.
	PageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "page_cache_hits_total",
		Help:      "Total number of page fetches served from cache",
	})

	// CandidatesDiscovered counts candidate URLs produced by discovery
	// providers, before deduplication and scoring.
	CandidatesDiscovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "candidates_discovered_total",
		Help:      "Total number of candidate URLs returned by discovery providers",
	}, []string{"provider"})

	// DraftsCreated counts drafts persisted by jobs, accepted or not.
	DraftsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "drafts_created_total",
		Help:      "Total number of drafts persisted by research jobs",
	})

	// DraftsAccepted counts drafts that passed scoring and deduplication.
	DraftsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "drafts_accepted_total",
		Help:      "Total number of drafts accepted toward job targets",
	})

	// LLMRequests counts model invocations by outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "llm_requests_total",
		Help:      "Total number of LLM invocations by outcome",
	}, []string{"outcome"})
)

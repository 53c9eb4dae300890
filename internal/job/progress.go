package job

import (
	"sort"
	"sync"

	"github.com/jonesrussell/incidentwatch/internal/urls"
)

// topDomainCount caps how many active domains a progress snapshot reports.
const topDomainCount = 5

// tracker accumulates per-run counters shared by the worker goroutines.
type tracker struct {
	mu         sync.Mutex
	discovered int
	fetched    int
	parsed     int
	drafts     int
	duplicates int
	errors     int
	domains    map[string]int
}

func newTracker() *tracker {
	return &tracker{domains: make(map[string]int)}
}

func (t *tracker) addDiscovered(n int) {
	t.mu.Lock()
	t.discovered += n
	t.mu.Unlock()
}

func (t *tracker) addFetched(rawURL string) {
	t.mu.Lock()
	t.fetched++
	if host := urls.Host(rawURL); host != "" {
		t.domains[host]++
	}
	t.mu.Unlock()
}

func (t *tracker) addParsed()    { t.mu.Lock(); t.parsed++; t.mu.Unlock() }
func (t *tracker) addDraft()     { t.mu.Lock(); t.drafts++; t.mu.Unlock() }
func (t *tracker) addDuplicate() { t.mu.Lock(); t.duplicates++; t.mu.Unlock() }
func (t *tracker) addError()     { t.mu.Lock(); t.errors++; t.mu.Unlock() }

// snapshot returns the current counters with the busiest domains first.
func (t *tracker) snapshot() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()

	hosts := make([]string, 0, len(t.domains))
	for host := range t.domains {
		hosts = append(hosts, host)
	}
	sort.Slice(hosts, func(i, j int) bool {
		if t.domains[hosts[i]] != t.domains[hosts[j]] {
			return t.domains[hosts[i]] > t.domains[hosts[j]]
		}
		return hosts[i] < hosts[j]
	})
	if len(hosts) > topDomainCount {
		hosts = hosts[:topDomainCount]
	}

	return Progress{
		Discovered: t.discovered,
		Fetched:    t.fetched,
		Parsed:     t.parsed,
		Drafts:     t.drafts,
		Duplicates: t.duplicates,
		Errors:     t.errors,
		TopDomains: hosts,
	}
}

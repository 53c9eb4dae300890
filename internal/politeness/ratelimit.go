package politeness

import (
	"context"
	"sync"
	"time"

	"github.com/jonesrussell/incidentwatch/internal/urls"
)

// DomainLimiter serializes and throttles fetches per domain: each domain's
// requests are spaced by at least the minimum interval while different
// domains proceed in parallel. The limiter is process-wide and shared by all
// jobs.
type DomainLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	domains  map[string]*domainSlot
	// now and sleep are injectable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// domainSlot holds the per-domain lock and last-request timestamp.
type domainSlot struct {
	mu       sync.Mutex
	lastDone time.Time
}

// NewDomainLimiter builds a limiter allowing requestsPerSecond to each domain.
// A non-positive rate disables throttling.
func NewDomainLimiter(requestsPerSecond float64) *DomainLimiter {
	var interval time.Duration
	if requestsPerSecond > 0 {
		interval = time.Duration(float64(time.Second) / requestsPerSecond)
	}

	return &DomainLimiter{
		interval: interval,
		domains:  make(map[string]*domainSlot),
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Wait blocks until the URL's domain is free and the minimum interval since
// that domain's previous request has elapsed. It returns early with the
// context's error if the context is canceled while waiting.
func (l *DomainLimiter) Wait(ctx context.Context, rawURL string) error {
	if l.interval <= 0 {
		return ctx.Err()
	}

	host := urls.Host(rawURL)
	if host == "" {
		return ctx.Err()
	}

	slot := l.slot(host)

	// Holding the slot lock serializes same-domain fetches; other domains
	// are untouched.
	slot.mu.Lock()
	defer slot.mu.Unlock()

	elapsed := l.now().Sub(slot.lastDone)
	if wait := l.interval - elapsed; wait > 0 {
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}

	slot.lastDone = l.now()

	return nil
}

// slot returns the tracking slot for a host, creating it on first use.
func (l *DomainLimiter) slot(host string) *domainSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.domains[host]
	if !ok {
		s = &domainSlot{}
		l.domains[host] = s
	}

	return s
}

// sleepCtx sleeps for d or until the context is canceled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

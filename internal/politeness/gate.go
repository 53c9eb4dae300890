package politeness

import (
	"context"
	"fmt"
)

// RobotsPolicy answers whether a URL may be fetched.
type RobotsPolicy interface {
	IsAllowed(ctx context.Context, rawURL string) (bool, error)
}

// Gate combines robots enforcement with per-domain rate limiting into the
// single wait point the fetch path goes through.
type Gate struct {
	robots  RobotsPolicy
	limiter *DomainLimiter
}

// NewGate creates a Gate. A nil robots policy disables robots enforcement.
func NewGate(robots RobotsPolicy, limiter *DomainLimiter) *Gate {
	return &Gate{robots: robots, limiter: limiter}
}

// Wait blocks until the URL may be fetched. A robots disallow is returned as
// an error; a robots lookup failure is treated as allowed.
func (g *Gate) Wait(ctx context.Context, rawURL string) error {
	if g.robots != nil {
		allowed, err := g.robots.IsAllowed(ctx, rawURL)
		if err == nil && !allowed {
			return fmt.Errorf("blocked by robots.txt: %s", rawURL)
		}
	}

	return g.limiter.Wait(ctx, rawURL)
}

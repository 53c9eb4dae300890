package politeness_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/politeness"
)

func TestWait_SpacesSameDomainRequests(t *testing.T) {
	t.Parallel()

	limiter := politeness.NewDomainLimiter(50) // 20ms interval
	ctx := context.Background()

	start := time.Now()
	for range 4 {
		require.NoError(t, limiter.Wait(ctx, "https://example.com/a"))
	}
	elapsed := time.Since(start)

	// Three gaps of >= 20ms after the first immediate request.
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestWait_DifferentDomainsNotMutuallyDelayed(t *testing.T) {
	t.Parallel()

	limiter := politeness.NewDomainLimiter(2) // 500ms interval
	ctx := context.Background()

	require.NoError(t, limiter.Wait(ctx, "https://one.example/a"))

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://two.example/b"))
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWait_ConcurrentSameDomainSerialized(t *testing.T) {
	t.Parallel()

	limiter := politeness.NewDomainLimiter(100) // 10ms interval
	ctx := context.Background()

	const calls = 5

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		times []time.Time
	)

	for range calls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Wait(ctx, "https://example.com/x"))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, times, calls)
}

func TestWait_ZeroRateDisablesThrottle(t *testing.T) {
	t.Parallel()

	limiter := politeness.NewDomainLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for range 10 {
		require.NoError(t, limiter.Wait(ctx, "https://example.com/a"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestWait_CanceledContext(t *testing.T) {
	t.Parallel()

	limiter := politeness.NewDomainLimiter(0.5) // 2s interval

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, limiter.Wait(ctx, "https://example.com/a"))
	cancel()

	err := limiter.Wait(ctx, "https://example.com/a")
	assert.ErrorIs(t, err, context.Canceled)
}

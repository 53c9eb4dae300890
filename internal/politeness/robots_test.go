package politeness_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/politeness"
)

// testCacheTTL is the cache duration used in tests.
const testCacheTTL = time.Hour

// newTestChecker creates a RobotsChecker for testing.
func newTestChecker(t *testing.T) *politeness.RobotsChecker {
	t.Helper()

	return politeness.NewRobotsChecker(
		&http.Client{Timeout: 5 * time.Second},
		"TestBot/1.0",
		testCacheTTL,
	)
}

func TestIsAllowed_URLAllowed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/public/page")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowed_URLDisallowed(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	}))
	defer server.Close()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/private/secret")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestIsAllowed_Missing404AllowsAll(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), server.URL+"/any/path")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowed_UnreachableHostAllowsAll(t *testing.T) {
	t.Parallel()

	checker := newTestChecker(t)

	allowed, err := checker.IsAllowed(context.Background(), "http://127.0.0.1:1/path")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIsAllowed_CachesPerHost(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow:\n"))
	}))
	defer server.Close()

	checker := newTestChecker(t)

	for range 5 {
		_, err := checker.IsAllowed(context.Background(), server.URL+"/page")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be fetched once per host within the TTL")
}

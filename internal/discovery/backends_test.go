package discovery_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/discovery"
)

func TestSerpAPIBackendBuildsQuery(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"news_results": []map[string]string{
				{"link": "https://example.com/incident", "title": "Incident"},
			},
		})
	}))
	defer srv.Close()

	backend := discovery.NewSerpAPIBackend("test-key", srv.URL)

	results, err := backend.Search(context.Background(), "breaches", discovery.SearchOptions{
		Page:      2,
		PageSize:  30,
		Region:    "au",
		Language:  "en",
		DateRange: &discovery.DateRange{From: "2025-04-01", To: "2025-04-14"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/incident", results[0].URL)

	assert.Equal(t, "breaches", gotQuery["q"])
	assert.Equal(t, "nws", gotQuery["tbm"])
	assert.Equal(t, "60", gotQuery["start"])
	assert.Equal(t, "au", gotQuery["gl"])
	assert.Equal(t, "en", gotQuery["hl"])
	assert.Equal(t, "cdr:1,cd_min:2025-04-01,cd_max:2025-04-14", gotQuery["tbs"])
	assert.Equal(t, "test-key", gotQuery["api_key"])
}

func TestSerpAPIBackendErrorField(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid API key"})
	}))
	defer srv.Close()

	backend := discovery.NewSerpAPIBackend("bad", srv.URL)

	_, err := backend.Search(context.Background(), "breaches", discovery.SearchOptions{PageSize: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid API key")
}

func TestTavilyBackendParsesResults(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"url": "https://example.com/a", "title": "A"},
				{"url": "https://example.com/b", "title": "B"},
			},
		})
	}))
	defer srv.Close()

	backend := discovery.NewTavilyBackend("tv-key", srv.URL, []string{"example.com"})

	results, err := backend.Search(context.Background(), "attacks", discovery.SearchOptions{
		PageSize:  30,
		DateRange: &discovery.DateRange{From: "2025-04-01", To: "2025-04-14"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "tv-key", gotBody["api_key"])
	assert.Equal(t, "attacks", gotBody["query"])
	assert.InDelta(t, 30, gotBody["max_results"], 0)
	assert.InDelta(t, 14, gotBody["days"], 0)
}

func TestTavilyBackendNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	backend := discovery.NewTavilyBackend("tv-key", srv.URL, nil)

	_, err := backend.Search(context.Background(), "attacks", discovery.SearchOptions{PageSize: 10})
	require.Error(t, err)
}

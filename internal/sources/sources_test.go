package sources_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/sources"
)

func writeCatalog(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sources.yml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoadValidCatalog(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, `
feeds:
  - https://www.cyberdaily.au/rss
  - https://feeds.feedburner.com/TheHackersNews
sitemap_domains:
  - cyberdaily.au
crawl_domains:
  - itnews.com.au
trusted_domains:
  - domain: cyberdaily.au
    weight: 2.5
  - domain: itnews.com.au
`)

	catalog, err := sources.Load(path)
	require.NoError(t, err)
	assert.Len(t, catalog.Feeds, 2)
	assert.Equal(t, []string{"cyberdaily.au"}, catalog.SitemapDomains)

	weights := catalog.TrustedWeights()
	assert.InDelta(t, 2.5, weights["cyberdaily.au"], 0.001)
	assert.Zero(t, weights["itnews.com.au"], "missing weight means default bonus")
}

func TestLoadEmptyCatalog(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, `trusted_domains: []`)

	_, err := sources.Load(path)
	assert.ErrorIs(t, err, sources.ErrNoSources)
}

func TestLoadRelativeFeedURL(t *testing.T) {
	t.Parallel()

	path := writeCatalog(t, `
feeds:
  - /rss/feed.xml
`)

	_, err := sources.Load(path)
	assert.ErrorIs(t, err, sources.ErrInvalidSource)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := sources.Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

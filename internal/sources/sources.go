// Package sources loads the discovery source catalog: RSS feeds, crawl and
// sitemap domains, and trusted domains with optional score weights.
package sources

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoSources indicates the catalog file defines no usable sources.
	ErrNoSources = errors.New("no sources found in catalog")
	// ErrInvalidSource indicates a malformed catalog entry.
	ErrInvalidSource = errors.New("invalid source entry")
)

// TrustedDomain is an allow-listed domain with an optional score weight.
// Weight zero means "use the default trusted-domain bonus".
type TrustedDomain struct {
	Domain string  `yaml:"domain"`
	Weight float64 `yaml:"weight"`
}

// Catalog is the source configuration for source-free discovery.
type Catalog struct {
	Feeds          []string        `yaml:"feeds"`
	SitemapDomains []string        `yaml:"sitemap_domains"`
	CrawlDomains   []string        `yaml:"crawl_domains"`
	TrustedDomains []TrustedDomain `yaml:"trusted_domains"`
}

// Load reads and validates a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	if err := catalog.Validate(); err != nil {
		return nil, err
	}

	return &catalog, nil
}

// Validate checks every entry is usable.
func (c *Catalog) Validate() error {
	if len(c.Feeds) == 0 && len(c.SitemapDomains) == 0 && len(c.CrawlDomains) == 0 {
		return ErrNoSources
	}

	for _, feed := range c.Feeds {
		parsed, err := url.Parse(feed)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%w: feed %q is not an absolute URL", ErrInvalidSource, feed)
		}
	}

	for _, d := range append(append([]string{}, c.SitemapDomains...), c.CrawlDomains...) {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("%w: empty domain", ErrInvalidSource)
		}
	}

	for _, td := range c.TrustedDomains {
		if strings.TrimSpace(td.Domain) == "" {
			return fmt.Errorf("%w: trusted domain without a domain", ErrInvalidSource)
		}
		if td.Weight < 0 {
			return fmt.Errorf("%w: trusted domain %q has negative weight", ErrInvalidSource, td.Domain)
		}
	}

	return nil
}

// TrustedWeights returns the trusted domains as a score-layer weight map.
func (c *Catalog) TrustedWeights() map[string]float64 {
	if len(c.TrustedDomains) == 0 {
		return nil
	}

	weights := make(map[string]float64, len(c.TrustedDomains))
	for _, td := range c.TrustedDomains {
		weights[strings.ToLower(td.Domain)] = td.Weight
	}

	return weights
}

// Package common wires the shared dependencies the CLI commands build on.
package common

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/incidentwatch/internal/config"
	"github.com/jonesrussell/incidentwatch/internal/database"
	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/fetch"
	"github.com/jonesrussell/incidentwatch/internal/job"
	"github.com/jonesrussell/incidentwatch/internal/logger"
	"github.com/jonesrussell/incidentwatch/internal/politeness"
	"github.com/jonesrussell/incidentwatch/internal/sources"
)

// politeHTTPTimeout bounds robots.txt lookups.
const politeHTTPTimeout = 10 * time.Second

// Deps bundles the application's shared dependencies.
type Deps struct {
	Config  *config.AppConfig
	Logger  logger.Interface
	DB      *sqlx.DB
	Jobs    *database.JobRepository
	Drafts  *database.DraftRepository
	Reports *database.ReportRepository
	Logs    *database.LogRepository
	Cache   *database.PageCacheRepository
	Streams *job.StreamRegistry
}

// Build loads configuration, connects the database, and constructs the
// repositories every command shares.
func Build(cfgPath string) (*Deps, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.New(cfg.Logging)

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Deps{
		Config:  cfg,
		Logger:  log,
		DB:      db,
		Jobs:    database.NewJobRepository(db),
		Drafts:  database.NewDraftRepository(db),
		Reports: database.NewReportRepository(db),
		Logs:    database.NewLogRepository(db),
		Cache:   database.NewPageCacheRepository(db),
		Streams: job.NewStreamRegistry(0),
	}, nil
}

// Close releases the database connection.
func (d *Deps) Close() error {
	return d.DB.Close()
}

// fetcherFactory builds one politeness-gated, cached fetcher per run from
// the job's merged configuration, so per-job cache and rate overrides apply.
type fetcherFactory struct {
	cache       *database.PageCacheRepository
	robots      *politeness.RobotsChecker
	userAgent   string
	fallbackRPS float64
	log         logger.Interface
}

// New implements job.FetcherFactory.
func (f *fetcherFactory) New(cfg config.JobConfig) job.PageFetcher {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = f.fallbackRPS
	}
	gate := politeness.NewGate(f.robots, politeness.NewDomainLimiter(rps))

	// Cache-bypass runs skip the persistent cache but still avoid redundant
	// fetches within the run.
	var store fetch.PageStore = f.cache
	if cfg.CacheBypass {
		store = fetch.NewMemoryPageStore()
	}

	return fetch.New(store, gate, f.log, fetch.Config{
		UserAgent: f.userAgent,
		CacheTTL:  cfg.CacheTTL,
	})
}

// BuildRunner assembles the full discovery pipeline: politeness gate, cached
// fetcher, search and source-free providers, and the model-backed extractor.
func (d *Deps) BuildRunner() *job.Runner {
	cfg := d.Config
	defaults := cfg.Defaults

	robots := politeness.NewRobotsChecker(
		&http.Client{Timeout: politeHTTPTimeout},
		cfg.Politeness.UserAgent,
		0,
	)

	fetchers := &fetcherFactory{
		cache:       d.Cache,
		robots:      robots,
		userAgent:   cfg.Politeness.UserAgent,
		fallbackRPS: cfg.Politeness.RequestsPerSecond,
		log:         d.Logger,
	}

	catalog := d.loadCatalog()
	if catalog != nil && len(defaults.Scoring.TrustedDomains) == 0 {
		defaults.Scoring.TrustedDomains = catalog.TrustedWeights()
	}

	providers := job.Providers{
		Search:     d.searchProvider(),
		SourceFree: d.sourceFreeProvider(robots, catalog),
	}

	return job.NewRunner(
		d.Jobs,
		d.Drafts,
		d.Reports,
		d.Logs,
		providers,
		fetchers,
		job.NewLLMExtractorFactory(cfg.LLM, d.Logger),
		d.Streams,
		d.Logger,
		job.Options{
			Defaults: defaults,
			Region:   cfg.Search.Region,
			Language: cfg.Search.Language,
		},
	)
}

// searchProvider builds the primary/fallback search chain from the
// configured API keys. Returns nil when no backend is configured.
func (d *Deps) searchProvider() discovery.Provider {
	search := d.Config.Search

	var primary, fallback discovery.SearchBackend
	if search.SerpAPIKey != "" {
		primary = discovery.NewSerpAPIBackend(search.SerpAPIKey, "")
	}
	if search.TavilyAPIKey != "" {
		fallback = discovery.NewTavilyBackend(search.TavilyAPIKey, "", search.IncludeDomains)
	}

	if primary == nil && fallback == nil {
		return nil
	}
	if primary == nil {
		primary = fallback
		fallback = nil
	}

	return discovery.NewSearchProvider(primary, fallback, d.Logger)
}

// sourceFreeProvider composes the catalog's feeds, sitemap domains, and
// crawl domains into one ordered provider. Returns nil without a catalog.
func (d *Deps) sourceFreeProvider(robots discovery.RobotsPolicy, catalog *sources.Catalog) discovery.Provider {
	if catalog == nil {
		return nil
	}

	userAgent := d.Config.Politeness.UserAgent

	return discovery.NewComposite(d.Logger,
		discovery.Scoped(discovery.NewRSSProvider(userAgent, d.Logger), catalog.Feeds, nil),
		discovery.Scoped(discovery.NewSitemapProvider(userAgent, d.Logger), nil, catalog.SitemapDomains),
		discovery.Scoped(discovery.NewCrawlProvider(robots, userAgent, d.Logger), nil, catalog.CrawlDomains),
	)
}

func (d *Deps) loadCatalog() *sources.Catalog {
	catalog, err := sources.Load(d.Config.SourcesFile)
	if err != nil {
		d.Logger.Warn("source catalog unavailable", "path", d.Config.SourcesFile, "error", err.Error())
		return nil
	}

	return catalog
}

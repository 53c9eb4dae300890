package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/incidentwatch/internal/config"
	"github.com/jonesrussell/incidentwatch/internal/database"
	"github.com/jonesrussell/incidentwatch/internal/discovery"
	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/extract"
	"github.com/jonesrussell/incidentwatch/internal/fetch"
	"github.com/jonesrussell/incidentwatch/internal/logger"
	"github.com/jonesrussell/incidentwatch/internal/metrics"
	"github.com/jonesrussell/incidentwatch/internal/report"
	"github.com/jonesrussell/incidentwatch/internal/score"
	"github.com/jonesrussell/incidentwatch/internal/urls"
)

// defaultConcurrency bounds the worker pool when the job configures none.
const defaultConcurrency = 6

// JobStore is the job persistence surface the runner depends on.
type JobStore interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, id string, update database.JobUpdate) error
	UpdateStatus(ctx context.Context, id, status string) error
	IncrementCounts(ctx context.Context, id string, draftsDelta, errorsDelta int) error
	TryAccept(ctx context.Context, id string) (bool, error)
}

// DraftStore persists and lists job drafts.
type DraftStore interface {
	Add(ctx context.Context, draft *domain.Draft) error
	ListByJob(ctx context.Context, jobID string) ([]domain.Draft, error)
	ListAcceptedByJob(ctx context.Context, jobID string) ([]domain.Draft, error)
}

// ReportStore persists finalized reports.
type ReportStore interface {
	Create(ctx context.Context, rep *domain.Report) error
}

// PageFetcher retrieves readable page text for one URL.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*fetch.Result, error)
}

// Extractor turns page text into structured incident fields.
type Extractor interface {
	Extract(ctx context.Context, pageText string) extract.Fields
}

// ExtractorFactory builds the extractor for one job. Construction talks to
// the model server, so it can fail; a failure fails the job before any
// discovery happens.
type ExtractorFactory interface {
	New(job *domain.Job, promptTemplate string) (Extractor, error)
}

// FetcherFactory builds the page fetcher for one run from the job's merged
// configuration, so per-job cache and rate-limit overrides take effect.
type FetcherFactory interface {
	New(cfg config.JobConfig) PageFetcher
}

// Providers holds the discovery providers per mode.
type Providers struct {
	// Search pages through search backends; used in search mode.
	Search discovery.Provider
	// SourceFree composes feeds, sitemaps, and crawls; used in source-free
	// mode, where one Discover call yields the full candidate list and the
	// runner pages through slices of it.
	SourceFree discovery.Provider
}

// Options configures a Runner beyond its stores.
type Options struct {
	Defaults config.JobConfig
	Region   string
	Language string
}

// Runner executes discovery jobs end to end: it pages candidates out of the
// configured providers, pushes them through fetch, extraction, and scoring
// with a bounded worker pool, persists every examined candidate as a draft,
// and assembles the final report from the accepted ones.
type Runner struct {
	jobs       JobStore
	drafts     DraftStore
	reports    ReportStore
	logs       LogStore
	providers  Providers
	fetchers   FetcherFactory
	extractors ExtractorFactory
	streams    *StreamRegistry
	log        logger.Interface
	opts       Options
}

// NewRunner creates a Runner.
func NewRunner(
	jobs JobStore,
	drafts DraftStore,
	reports ReportStore,
	logs LogStore,
	providers Providers,
	fetchers FetcherFactory,
	extractors ExtractorFactory,
	streams *StreamRegistry,
	log logger.Interface,
	opts Options,
) *Runner {
	return &Runner{
		jobs:       jobs,
		drafts:     drafts,
		reports:    reports,
		logs:       logs,
		providers:  providers,
		fetchers:   fetchers,
		extractors: extractors,
		streams:    streams,
		log:        log,
		opts:       opts,
	}
}

// runState carries one run's working set between the runner's phases.
type runState struct {
	job      *domain.Job
	cfg      config.JobConfig
	jl       *JobLogger
	scorer   *score.Scorer
	extract  Extractor
	fetch    PageFetcher
	track    *tracker
	sem      chan struct{}
	seen     map[string]struct{}
	minScore float64
	budget   int
	// processed counts candidates dispatched to workers, against the budget.
	processed int
	// sourceList is the pre-computed candidate list in source-free mode.
	sourceList   []domain.Candidate
	sourceLoaded bool
	startedAt    time.Time

	// Commit-side dedup keys. The scorer checks duplicates against persisted
	// drafts, but concurrent workers can both list before either commits;
	// claiming the keys here makes the commit-time check atomic.
	dedupMu       sync.Mutex
	titleKeys     map[string]struct{}
	contentHashes map[string]struct{}
}

// claimDedupKeys reserves a draft's title key and content hash for this run.
// Returns false when another worker already committed a draft carrying either
// key; the caller records that draft as a duplicate instead.
func (st *runState) claimDedupKeys(titleKey, contentHash string) bool {
	st.dedupMu.Lock()
	defer st.dedupMu.Unlock()

	if titleKey != "" {
		if _, taken := st.titleKeys[titleKey]; taken {
			return false
		}
	}
	if contentHash != "" {
		if _, taken := st.contentHashes[contentHash]; taken {
			return false
		}
	}

	if titleKey != "" {
		st.titleKeys[titleKey] = struct{}{}
	}
	if contentHash != "" {
		st.contentHashes[contentHash] = struct{}{}
	}

	return true
}

// Run executes one job to a terminal status. Seed URLs, when given, are
// processed as a first round before paginated discovery. The job record is
// the source of truth throughout: cancellation and target checks always read
// it fresh, so external cancellation stops the run between candidates.
func (r *Runner) Run(ctx context.Context, jobID string, seedURLs []string) error {
	j, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job: %w", err)
	}

	if IsTerminal(j.Status) {
		return fmt.Errorf("job %s is already %s", jobID, j.Status)
	}

	cfg, err := config.MergeJobConfig(r.opts.Defaults, j.Config)
	if err != nil {
		return fmt.Errorf("failed to resolve job config: %w", err)
	}

	r.streams.Register(jobID)
	defer r.deregisterIfTerminal(ctx, jobID)

	jl := NewJobLogger(jobID, r.log, r.logs, r.streams)

	st := &runState{
		job:           j,
		cfg:           cfg,
		jl:            jl,
		scorer:        score.New(cfg.Scoring),
		fetch:         r.fetchers.New(cfg),
		track:         newTracker(),
		sem:           make(chan struct{}, concurrency(cfg)),
		seen:          make(map[string]struct{}),
		titleKeys:     make(map[string]struct{}),
		contentHashes: make(map[string]struct{}),
		minScore:      cfg.MinScore,
		budget:        cfg.CandidateBudgetFor(j.TargetCount),
		startedAt:     time.Now(),
	}

	extractor, err := r.extractors.New(j, cfg.PromptTemplate)
	if err != nil {
		jl.Error(ctx, "model init failed", "server", j.ServerName, "model", j.ModelName, "error", err.Error())
		r.markFailed(ctx, st)

		return fmt.Errorf("failed to init extractor: %w", err)
	}
	st.extract = extractor

	if err := r.start(ctx, st); err != nil {
		return err
	}

	jl.Info(ctx, "job started",
		"query", j.Query,
		"mode", cfg.Mode,
		"target", j.TargetCount,
		"budget", st.budget,
	)

	if len(seedURLs) > 0 {
		r.runSeeds(ctx, st, seedURLs)
	}

	r.runPages(ctx, st)

	return r.finalize(ctx, st)
}

// start transitions the job to running and resets its run counters.
func (r *Runner) start(ctx context.Context, st *runState) error {
	if err := ValidateTransition(st.job.Status, domain.JobStatusRunning); err != nil {
		return err
	}

	running := domain.JobStatusRunning
	zero := 0
	now := time.Now()

	err := r.jobs.Update(ctx, st.job.ID, database.JobUpdate{
		Status:        &running,
		AcceptedCount: &zero,
		DraftsCount:   &zero,
		ErrorsCount:   &zero,
		StartedAt:     &now,
	})
	if err != nil {
		return fmt.Errorf("failed to start job: %w", err)
	}

	return nil
}

// runSeeds processes the caller-provided URLs as a round of their own.
func (r *Runner) runSeeds(ctx context.Context, st *runState, seedURLs []string) {
	candidates := make([]domain.Candidate, 0, len(seedURLs))
	for _, raw := range seedURLs {
		candidates = append(candidates, domain.Candidate{URL: raw})
	}

	st.jl.Info(ctx, "processing seed urls", "count", len(candidates))
	r.processPage(ctx, st, candidates)
}

// runPages pulls candidate pages until the job reaches a stop condition.
func (r *Runner) runPages(ctx context.Context, st *runState) {
	for page := 0; ; page++ {
		fresh, err := r.jobs.GetByID(ctx, st.job.ID)
		if err != nil {
			st.jl.Warn(ctx, "failed to re-read job", "error", err.Error())
			return
		}

		switch {
		case IsTerminal(fresh.Status):
			st.jl.Info(ctx, "stopping: job reached terminal status", "status", fresh.Status)
			return
		case fresh.TargetReached():
			st.jl.Info(ctx, "stopping: target reached", "accepted", fresh.AcceptedCount)
			return
		case st.processed >= st.budget:
			st.jl.Info(ctx, "stopping: candidate budget exhausted", "processed", st.processed)
			return
		}

		candidates, err := r.nextPage(ctx, st, page)
		if err != nil {
			st.jl.Warn(ctx, "discovery failed", "page", page, "error", err.Error())
			return
		}
		if len(candidates) == 0 {
			st.jl.Info(ctx, "stopping: no more candidates", "page", page)
			return
		}

		accepted := r.processPage(ctx, st, candidates)

		// A page with zero acceptances relaxes the score threshold one step
		// toward the floor. The threshold never moves back up.
		if accepted == 0 && st.minScore > st.cfg.MinScoreFloor {
			relaxed := st.minScore - st.cfg.RelaxStep
			if relaxed < st.cfg.MinScoreFloor {
				relaxed = st.cfg.MinScoreFloor
			}
			st.jl.Info(ctx, "relaxing score threshold", "from", st.minScore, "to", relaxed)
			st.minScore = relaxed
		}
	}
}

// nextPage returns the next candidate page for the job's discovery mode.
func (r *Runner) nextPage(ctx context.Context, st *runState, page int) ([]domain.Candidate, error) {
	params := discovery.Params{
		Query:             st.job.Query,
		Page:              page,
		PageSize:          st.cfg.PageSize,
		RecencyDays:       st.cfg.RecencyDays,
		IncludeKeywords:   st.cfg.IncludeKeywords,
		ExcludeKeywords:   st.cfg.ExcludeKeywords,
		Region:            r.opts.Region,
		Language:          r.opts.Language,
		MaxPagesPerDomain: st.cfg.MaxPagesPerDomain,
	}

	if st.cfg.Mode == config.ModeSourceFree {
		return r.sourceFreePage(ctx, st, params, page)
	}

	if r.providers.Search == nil {
		return nil, fmt.Errorf("no search provider configured")
	}

	return r.providers.Search.Discover(ctx, params)
}

// sourceFreePage resolves the composed candidate list once, then serves it
// in page-size slices.
func (r *Runner) sourceFreePage(
	ctx context.Context,
	st *runState,
	params discovery.Params,
	page int,
) ([]domain.Candidate, error) {
	if r.providers.SourceFree == nil {
		return nil, fmt.Errorf("no source-free provider configured")
	}

	if !st.sourceLoaded {
		list, err := r.providers.SourceFree.Discover(ctx, params)
		if err != nil {
			return nil, err
		}
		st.sourceList = list
		st.sourceLoaded = true
	}

	from := page * st.cfg.PageSize
	if from >= len(st.sourceList) {
		return nil, nil
	}

	to := from + st.cfg.PageSize
	if to > len(st.sourceList) {
		to = len(st.sourceList)
	}

	return st.sourceList[from:to], nil
}

// processPage dispatches one candidate page to the worker pool and waits for
// it to drain. Returns how many candidates were accepted.
func (r *Runner) processPage(ctx context.Context, st *runState, candidates []domain.Candidate) int {
	var wg sync.WaitGroup
	var accepted atomic.Int64

	for _, cand := range candidates {
		canonical := urls.Canonical(cand.URL)
		if canonical == "" || !urls.LooksLikeArticle(cand.URL) {
			continue
		}
		if _, dup := st.seen[canonical]; dup {
			continue
		}
		st.seen[canonical] = struct{}{}

		if st.processed >= st.budget {
			break
		}
		st.processed++
		st.track.addDiscovered(1)

		wg.Add(1)
		st.sem <- struct{}{}

		go func(c domain.Candidate) {
			defer wg.Done()
			defer func() { <-st.sem }()

			if r.processCandidate(ctx, st, c) {
				accepted.Add(1)
			}
		}(cand)
	}

	wg.Wait()
	st.jl.Progress(st.track.snapshot())

	return int(accepted.Load())
}

// processCandidate walks one candidate through fetch, extraction, scoring,
// and draft persistence. Returns whether the candidate was accepted.
func (r *Runner) processCandidate(ctx context.Context, st *runState, cand domain.Candidate) bool {
	jobID := st.job.ID

	fresh, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		st.jl.Warn(ctx, "failed to re-read job", "error", err.Error())
		return false
	}
	if IsTerminal(fresh.Status) || fresh.TargetReached() {
		return false
	}

	res, err := st.fetch.Fetch(ctx, cand.URL)
	if err != nil {
		st.track.addError()
		st.jl.Warn(ctx, "fetch failed", "url", cand.URL, "error", err.Error())

		if incErr := r.jobs.IncrementCounts(ctx, jobID, 0, 1); incErr != nil {
			st.jl.Warn(ctx, "failed to record fetch error", "error", incErr.Error())
		}

		return false
	}
	st.track.addFetched(res.CanonicalURL)

	fields := st.extract.Extract(ctx, res.Text)
	fields.Method = extract.NormalizeMethod(fields.Method)
	cves := extract.ExtractCVEs(res.Text)
	fields.ExploitUsed = extract.MergeCVEs(fields.ExploitUsed, cves)
	st.track.addParsed()

	prior, err := r.drafts.ListByJob(ctx, jobID)
	if err != nil {
		st.jl.Warn(ctx, "failed to list prior drafts", "error", err.Error())
		prior = nil
	}

	verdict := st.scorer.Evaluate(score.Input{
		Candidate: cand,
		Text:      res.Text,
		Fields:    fields,
		CVEs:      cves,
		Prior:     prior,
	}, st.minScore)

	if verdict.IsDuplicate {
		st.track.addDuplicate()
	}

	// Re-check under the job record before committing anything: an external
	// cancellation between fetch and commit must not produce new drafts.
	fresh, err = r.jobs.GetByID(ctx, jobID)
	if err != nil {
		st.jl.Warn(ctx, "failed to re-read job", "error", err.Error())
		return false
	}
	if IsTerminal(fresh.Status) {
		return false
	}

	_, titleKey, contentHash := draftIdentity(cand, res)
	if !verdict.IsDuplicate && !st.claimDedupKeys(titleKey, contentHash) {
		verdict.Accepted = false
		verdict.IsDuplicate = true
		verdict.Reason = score.ReasonDuplicate
		st.track.addDuplicate()
	}

	accepted := false
	ordinal := 0
	qaMessage := verdict.Reason

	if verdict.Accepted {
		ok, acceptErr := r.jobs.TryAccept(ctx, jobID)
		if acceptErr != nil {
			st.jl.Warn(ctx, "failed to claim acceptance slot", "error", acceptErr.Error())
		}
		if ok {
			accepted = true
			ordinal = r.acceptanceOrdinal(ctx, st, jobID)
		} else {
			qaMessage = "target reached"
		}
	}

	draft := r.buildDraft(st, cand, res, fields, verdict, accepted, qaMessage, ordinal)

	if err := r.drafts.Add(ctx, draft); err != nil {
		st.track.addError()
		st.jl.Warn(ctx, "failed to persist draft", "url", draft.CanonicalURL, "error", err.Error())

		if incErr := r.jobs.IncrementCounts(ctx, jobID, 0, 1); incErr != nil {
			st.jl.Warn(ctx, "failed to record draft error", "error", incErr.Error())
		}

		return false
	}

	if err := r.jobs.IncrementCounts(ctx, jobID, 1, 0); err != nil {
		st.jl.Warn(ctx, "failed to record draft count", "error", err.Error())
	}

	st.track.addDraft()
	metrics.DraftsCreated.Inc()
	if accepted {
		metrics.DraftsAccepted.Inc()
	}

	st.jl.Info(ctx, "draft recorded",
		"url", draft.CanonicalURL,
		"accepted", accepted,
		"score", verdict.Score,
		"reason", qaMessage,
	)

	return accepted
}

// acceptanceOrdinal reads the acceptance number this draft claimed. The
// stored snippet carries it; the final report renumbers sections anyway.
func (r *Runner) acceptanceOrdinal(ctx context.Context, st *runState, jobID string) int {
	fresh, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		st.jl.Warn(ctx, "failed to read acceptance ordinal", "error", err.Error())
		return 0
	}

	return fresh.AcceptedCount
}

// draftIdentity derives the stored title and dedup keys for one candidate.
func draftIdentity(cand domain.Candidate, res *fetch.Result) (title, titleKey, contentHash string) {
	title = cand.Title
	if title == "" {
		title = res.CanonicalURL
	}

	return title, urls.TitleKey(title), urls.ContentHash(res.Text)
}

func (r *Runner) buildDraft(
	st *runState,
	cand domain.Candidate,
	res *fetch.Result,
	fields extract.Fields,
	verdict score.Verdict,
	accepted bool,
	qaMessage string,
	ordinal int,
) *domain.Draft {
	title, titleKey, contentHash := draftIdentity(cand, res)

	draft := &domain.Draft{
		ID:           uuid.NewString(),
		JobID:        st.job.ID,
		Title:        title,
		Summary:      fields.Summary,
		IncidentDate: fields.Date,
		Targets:      fields.Targets,
		Method:       fields.Method,
		ExploitUsed:  fields.ExploitUsed,
		Relevance:    verdict.RelevanceNote,
		SourceURL:    cand.URL,
		CanonicalURL: res.CanonicalURL,
		TitleKey:     titleKey,
		ContentHash:  contentHash,
		QAStatus:     domain.QAStatusFailed,
		QAMessage:    qaMessage,
		LinkOK:       true,
		IsDuplicate:  verdict.IsDuplicate,
	}

	if accepted {
		draft.QAStatus = domain.QAStatusOK
		draft.QAMessage = ""
		draft.Snippet = report.Snippet(ordinal, *draft)
	}

	return draft
}

// finalize assembles and persists the report, then closes the job out. A
// canceled job is left canceled; drafts are retained in every outcome.
func (r *Runner) finalize(ctx context.Context, st *runState) error {
	jobID := st.job.ID

	fresh, err := r.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to re-read job: %w", err)
	}

	if fresh.Status != domain.JobStatusRunning {
		st.jl.Info(ctx, "run stopped without finalizing", "status", fresh.Status)
		return nil
	}

	if err := r.jobs.UpdateStatus(ctx, jobID, domain.JobStatusFinalizing); err != nil {
		return fmt.Errorf("failed to enter finalizing: %w", err)
	}

	accepted, err := r.drafts.ListAcceptedByJob(ctx, jobID)
	if err != nil {
		st.jl.Error(ctx, "failed to list accepted drafts", "error", err.Error())
		r.markFailed(ctx, st)

		return fmt.Errorf("failed to list accepted drafts: %w", err)
	}

	rep := &domain.Report{
		ID:             uuid.NewString(),
		Query:          st.job.Query,
		Content:        report.Assemble(st.job.Query, accepted, discovery.DateRangeFromQuery(st.job.Query)),
		ServerName:     st.job.ServerName,
		ModelName:      st.job.ModelName,
		GenerationSecs: time.Since(st.startedAt).Seconds(),
	}

	if err := r.reports.Create(ctx, rep); err != nil {
		st.jl.Error(ctx, "failed to persist report", "error", err.Error())
		r.markFailed(ctx, st)

		return fmt.Errorf("failed to persist report: %w", err)
	}

	finalized := domain.JobStatusFinalized
	now := time.Now()

	err = r.jobs.Update(ctx, jobID, database.JobUpdate{
		Status:     &finalized,
		ReportID:   &rep.ID,
		FinishedAt: &now,
	})
	if err != nil {
		return fmt.Errorf("failed to finalize job: %w", err)
	}

	st.jl.Info(ctx, "job finalized", "report_id", rep.ID, "accepted", len(accepted))
	st.jl.Progress(st.track.snapshot())

	return nil
}

// markFailed moves the job to failed with a finish timestamp. Best effort:
// the caller already holds the error that caused the failure.
func (r *Runner) markFailed(ctx context.Context, st *runState) {
	failed := domain.JobStatusFailed
	now := time.Now()

	err := r.jobs.Update(ctx, st.job.ID, database.JobUpdate{
		Status:     &failed,
		FinishedAt: &now,
	})
	if err != nil {
		st.jl.Error(ctx, "failed to mark job failed", "error", err.Error())
	}
}

// deregisterIfTerminal drops the job's stream once the job can emit no more
// events. Runs on the way out of Run with a detached context: the run may be
// ending precisely because ctx was canceled.
func (r *Runner) deregisterIfTerminal(ctx context.Context, jobID string) {
	fresh, err := r.jobs.GetByID(context.WithoutCancel(ctx), jobID)
	if err != nil || !IsTerminal(fresh.Status) {
		return
	}

	r.streams.Deregister(jobID)
}

func concurrency(cfg config.JobConfig) int {
	if cfg.Concurrency > 0 {
		return cfg.Concurrency
	}
	return defaultConcurrency
}

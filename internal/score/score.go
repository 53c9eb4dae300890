// Package score decides whether a fetched candidate becomes an accepted
// draft: a heuristic relevance score, hard filters for non-incident and
// aggregator content, and duplicate detection against the job's prior drafts.
package score

import (
	"strings"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/extract"
	"github.com/jonesrussell/incidentwatch/internal/urls"
)

// Score contribution weights. The overall shape matters more than the exact
// numbers; thresholds sit in configuration where they can be recalibrated.
const (
	trustedDomainBonus  = 2.0
	ccTLDBonus          = 1.5
	regionalKeywordHit  = 1.0
	businessKeywordHit  = 0.5
	incidentKeywordHit  = 0.5
	incidentDensityCap  = 3.0
	cvePresenceBonus    = 1.0
	aggregatorPenalty   = 2.0
)

// Rejection reasons recorded on drafts.
const (
	ReasonDuplicate    = "duplicate"
	ReasonNotIncident  = "not a discrete incident"
	ReasonLowScore     = "below minimum score"
	ReasonNoRegion     = "required region not mentioned"
	ReasonEmptySummary = "insufficient content"
)

// Config carries the scoring knobs merged from defaults and job overrides.
type Config struct {
	TrustedDomains        map[string]float64 `mapstructure:"trusted_domains"`
	DomainWeights         map[string]float64 `mapstructure:"domain_weights"`
	CCTLD                 string             `mapstructure:"cctld"`
	RegionalKeywords      []string           `mapstructure:"regional_keywords"`
	RegionalBias          float64            `mapstructure:"regional_bias"`
	RegionNote            string             `mapstructure:"region_note"`
	PlatformKeywords      []string           `mapstructure:"platform_keywords"`
	PlatformNote          string             `mapstructure:"platform_note"`
	BusinessKeywords      []string           `mapstructure:"business_keywords"`
	IncidentKeywords      []string           `mapstructure:"incident_keywords"`
	AggregatorKeywords    []string           `mapstructure:"aggregator_keywords"`
	RequireRegion         bool               `mapstructure:"require_region"`
	SalvageMinScore       float64            `mapstructure:"salvage_min_score"`
	SalvageMinKeywordHits int                `mapstructure:"salvage_min_keyword_hits"`
}

// DefaultIncidentKeywords backs jobs that configure none.
var DefaultIncidentKeywords = []string{
	"ransomware", "data breach", "breach", "cyberattack", "attack",
	"exploit", "vulnerability", "malware", "ddos", "zero-day", "cve-",
}

// Input bundles everything Evaluate judges.
type Input struct {
	Candidate domain.Candidate
	Text      string
	Fields    extract.Fields
	CVEs      []string
	Prior     []domain.Draft
}

// Verdict is the scoring outcome for one candidate.
type Verdict struct {
	Accepted      bool
	Score         float64
	Reason        string
	RelevanceNote string
	IsDuplicate   bool
	IncidentHits  int
}

// Scorer evaluates candidates under one merged configuration.
type Scorer struct {
	cfg Config
}

// New creates a Scorer, filling keyword defaults.
func New(cfg Config) *Scorer {
	if len(cfg.IncidentKeywords) == 0 {
		cfg.IncidentKeywords = DefaultIncidentKeywords
	}

	return &Scorer{cfg: cfg}
}

// Evaluate scores one candidate against the current minimum. Duplicates are
// rejected regardless of score; rejected candidates still become drafts
// upstream, so every reason here ends up in the audit trail.
func (s *Scorer) Evaluate(in Input, minScore float64) Verdict {
	canonical := strings.ToLower(urls.Canonical(in.Candidate.URL))
	titleKey := urls.TitleKey(in.Candidate.Title)
	contentHash := urls.ContentHash(in.Text)

	if dup := findDuplicate(in.Prior, canonical, titleKey, contentHash); dup {
		return Verdict{IsDuplicate: true, Reason: ReasonDuplicate}
	}

	content := strings.ToLower(in.Candidate.Title + " " + in.Text)
	incidentHits := countHits(content, s.cfg.IncidentKeywords)

	verdict := Verdict{
		Score:         s.score(in, content, incidentHits),
		RelevanceNote: s.relevanceNote(content),
		IncidentHits:  incidentHits,
	}

	switch {
	case strings.TrimSpace(in.Fields.Summary) == "":
		verdict.Reason = ReasonEmptySummary
	case !in.Fields.Incident && !s.salvageable(verdict.Score, incidentHits):
		verdict.Reason = ReasonNotIncident
	case verdict.Score < minScore:
		verdict.Reason = ReasonLowScore
	case s.cfg.RequireRegion && !s.mentionsRegion(content):
		verdict.Reason = ReasonNoRegion
	default:
		verdict.Accepted = true
	}

	return verdict
}

// score computes the additive relevance score.
func (s *Scorer) score(in Input, content string, incidentHits int) float64 {
	host := strings.ToLower(urls.Host(in.Candidate.URL))
	total := 0.0

	if weight, ok := domainWeight(host, s.cfg.TrustedDomains); ok {
		if weight == 0 {
			weight = trustedDomainBonus
		}
		total += weight
	}

	if weight, ok := domainWeight(host, s.cfg.DomainWeights); ok {
		total += weight
	}

	regional := 0.0
	if s.cfg.CCTLD != "" && strings.HasSuffix(host, s.cfg.CCTLD) {
		regional += ccTLDBonus
	}
	if countHits(content, s.cfg.RegionalKeywords) > 0 {
		regional += regionalKeywordHit
	}
	if s.cfg.RegionalBias > 0 {
		regional *= s.cfg.RegionalBias
	}
	total += regional

	if countHits(content, s.cfg.BusinessKeywords) > 0 {
		total += businessKeywordHit
	}

	density := float64(incidentHits) * incidentKeywordHit
	if density > incidentDensityCap {
		density = incidentDensityCap
	}
	total += density

	if len(in.CVEs) > 0 {
		total += cvePresenceBonus
	}

	if countHits(content, s.cfg.AggregatorKeywords) > 0 {
		total -= aggregatorPenalty
	}

	return total
}

// salvageable is the recall-over-precision path: strong heuristic signal can
// rescue a candidate the model did not classify as an incident.
func (s *Scorer) salvageable(score float64, incidentHits int) bool {
	if s.cfg.SalvageMinScore <= 0 || s.cfg.SalvageMinKeywordHits <= 0 {
		return false
	}

	return score >= s.cfg.SalvageMinScore && incidentHits >= s.cfg.SalvageMinKeywordHits
}

func (s *Scorer) mentionsRegion(content string) bool {
	if s.cfg.CCTLD != "" && strings.Contains(content, s.cfg.CCTLD) {
		return true
	}

	return countHits(content, s.cfg.RegionalKeywords) > 0
}

// relevanceNote explains, for the report reader, why the incident matters to
// the configured region.
func (s *Scorer) relevanceNote(content string) string {
	if countHits(content, s.cfg.RegionalKeywords) > 0 || (s.cfg.CCTLD != "" && strings.Contains(content, s.cfg.CCTLD)) {
		return s.cfg.RegionNote
	}

	if countHits(content, s.cfg.PlatformKeywords) > 0 {
		return s.cfg.PlatformNote
	}

	return ""
}

// findDuplicate applies the three dedup layers against prior drafts.
func findDuplicate(prior []domain.Draft, canonical, titleKey, contentHash string) bool {
	for i := range prior {
		d := &prior[i]

		if canonical != "" && strings.ToLower(d.CanonicalURL) == canonical {
			return true
		}
		if titleKey != "" && d.TitleKey == titleKey {
			return true
		}
		if contentHash != "" && d.ContentHash == contentHash {
			return true
		}
	}

	return false
}

func countHits(content string, keywords []string) int {
	hits := 0
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if strings.Contains(content, strings.ToLower(k)) {
			hits++
		}
	}

	return hits
}

// domainWeight resolves a host against a domain-keyed map, matching exact
// hosts and parent domains.
func domainWeight(host string, weights map[string]float64) (float64, bool) {
	if len(weights) == 0 {
		return 0, false
	}

	for d, w := range weights {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return w, true
		}
	}

	return 0, false
}

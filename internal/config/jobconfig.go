package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/jonesrussell/incidentwatch/internal/score"
)

// Discovery modes.
const (
	ModeSearch     = "search"
	ModeSourceFree = "source-free"
)

// JobConfig carries every per-job knob. Values come from the configured
// defaults, overridden field-by-field by the job record's config document.
type JobConfig struct {
	Mode              string        `mapstructure:"mode"               json:"mode"`
	TargetCount       int           `mapstructure:"target_count"       json:"target_count"`
	PageSize          int           `mapstructure:"page_size"          json:"page_size"`
	Concurrency       int           `mapstructure:"concurrency"        json:"concurrency"`
	CandidateBudget   int           `mapstructure:"candidate_budget"   json:"candidate_budget"`
	RecencyDays       int           `mapstructure:"recency_days"       json:"recency_days"`
	IncludeKeywords   []string      `mapstructure:"include_keywords"   json:"include_keywords"`
	ExcludeKeywords   []string      `mapstructure:"exclude_keywords"   json:"exclude_keywords"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"          json:"cache_ttl"`
	CacheBypass       bool          `mapstructure:"cache_bypass"       json:"cache_bypass"`
	RequestsPerSec    float64       `mapstructure:"requests_per_sec"   json:"requests_per_sec"`
	MaxPagesPerDomain int           `mapstructure:"max_pages_per_domain" json:"max_pages_per_domain"`
	MinScore          float64       `mapstructure:"min_score"          json:"min_score"`
	MinScoreFloor     float64       `mapstructure:"min_score_floor"    json:"min_score_floor"`
	RelaxStep         float64       `mapstructure:"relax_step"         json:"relax_step"`
	PromptTemplate    string        `mapstructure:"prompt_template"    json:"prompt_template"`
	Scoring           score.Config  `mapstructure:"scoring"            json:"scoring"`
}

// DefaultJobConfig returns the built-in job defaults.
func DefaultJobConfig() JobConfig {
	return JobConfig{
		Mode:              ModeSearch,
		TargetCount:       10,
		PageSize:          30,
		Concurrency:       6,
		RecencyDays:       14,
		CacheTTL:          6 * time.Hour,
		RequestsPerSec:    1.0,
		MaxPagesPerDomain: 30,
		MinScore:          2.0,
		MinScoreFloor:     0.5,
		RelaxStep:         0.5,
		Scoring: score.Config{
			SalvageMinScore:       3.0,
			SalvageMinKeywordHits: 3,
		},
	}
}

// CandidateBudgetFor resolves the candidate budget for a target count: the
// configured budget if set, otherwise max(100, target*5).
func (c JobConfig) CandidateBudgetFor(targetCount int) int {
	if c.CandidateBudget > 0 {
		return c.CandidateBudget
	}

	budget := targetCount * 5
	if budget < 100 {
		budget = 100
	}

	return budget
}

// MergeJobConfig decodes a job's stored override document over the defaults.
// Only keys present in the overrides replace default values.
func MergeJobConfig(defaults JobConfig, overrides map[string]any) (JobConfig, error) {
	merged := defaults

	if len(overrides) == 0 {
		return merged, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &merged,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
	})
	if err != nil {
		return defaults, fmt.Errorf("failed to build job config decoder: %w", err)
	}

	if err := decoder.Decode(overrides); err != nil {
		return defaults, fmt.Errorf("failed to merge job config: %w", err)
	}

	return merged, nil
}

package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/incidentwatch/internal/config"
)

func TestMergeJobConfigOverridesOnlyGivenKeys(t *testing.T) {
	t.Parallel()

	defaults := config.DefaultJobConfig()

	merged, err := config.MergeJobConfig(defaults, map[string]any{
		"target_count": 5,
		"min_score":    1.0,
		"cache_ttl":    "30m",
		"scoring": map[string]any{
			"require_region": true,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 5, merged.TargetCount)
	assert.InDelta(t, 1.0, merged.MinScore, 0.001)
	assert.Equal(t, 30*time.Minute, merged.CacheTTL)
	assert.True(t, merged.Scoring.RequireRegion)

	// Untouched keys keep their defaults.
	assert.Equal(t, defaults.PageSize, merged.PageSize)
	assert.Equal(t, defaults.Concurrency, merged.Concurrency)
	assert.InDelta(t, defaults.Scoring.SalvageMinScore, merged.Scoring.SalvageMinScore, 0.001)
}

func TestMergeJobConfigEmptyOverrides(t *testing.T) {
	t.Parallel()

	defaults := config.DefaultJobConfig()

	merged, err := config.MergeJobConfig(defaults, nil)
	require.NoError(t, err)
	assert.Equal(t, defaults, merged)
}

func TestCandidateBudgetFor(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultJobConfig()

	assert.Equal(t, 100, cfg.CandidateBudgetFor(10), "small targets use the floor")
	assert.Equal(t, 250, cfg.CandidateBudgetFor(50))

	cfg.CandidateBudget = 40
	assert.Equal(t, 40, cfg.CandidateBudgetFor(10), "explicit budget wins")
}

func TestDefaultJobConfig(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultJobConfig()
	assert.Equal(t, config.ModeSearch, cfg.Mode)
	assert.Equal(t, 6, cfg.Concurrency)
	assert.Greater(t, cfg.MinScore, cfg.MinScoreFloor)
}

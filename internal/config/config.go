// Package config provides configuration management for incidentwatch. It
// loads a YAML file with environment-variable overrides via viper, and merges
// per-job JSON overrides over the configured job defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonesrussell/incidentwatch/internal/database"
	"github.com/jonesrussell/incidentwatch/internal/llm"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// SearchConfig holds the keyword search backend credentials.
type SearchConfig struct {
	SerpAPIKey     string   `mapstructure:"serpapi_key"`
	TavilyAPIKey   string   `mapstructure:"tavily_key"`
	IncludeDomains []string `mapstructure:"include_domains"`
	Region         string   `mapstructure:"region"`
	Language       string   `mapstructure:"language"`
}

// PolitenessConfig holds crawl politeness settings.
type PolitenessConfig struct {
	UserAgent         string  `mapstructure:"user_agent"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// AppConfig is the process-wide configuration.
type AppConfig struct {
	Database    database.Config  `mapstructure:"database"`
	LLM         llm.Config       `mapstructure:"llm"`
	Search      SearchConfig     `mapstructure:"search"`
	Politeness  PolitenessConfig `mapstructure:"politeness"`
	Logging     logger.Config    `mapstructure:"logging"`
	SourcesFile string           `mapstructure:"sources_file"`
	Defaults    JobConfig        `mapstructure:"defaults"`
}

// Load reads configuration from path (or ./config.yml when empty), letting
// INCIDENTWATCH_* environment variables override file values.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("INCIDENTWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errorsAs(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "incidentwatch")
	v.SetDefault("database.dbname", "incidentwatch")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("llm.server_type", llm.ServerTypeOllama)
	v.SetDefault("llm.base_url", "http://localhost:11434")
	v.SetDefault("llm.model", "granite3.3")
	v.SetDefault("llm.timeout", "120s")

	v.SetDefault("search.region", "au")
	v.SetDefault("search.language", "en")

	v.SetDefault("politeness.user_agent", "incidentwatch/1.0")
	v.SetDefault("politeness.requests_per_second", 1.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")

	v.SetDefault("sources_file", "sources.yml")

	defaults := DefaultJobConfig()
	v.SetDefault("defaults.mode", defaults.Mode)
	v.SetDefault("defaults.target_count", defaults.TargetCount)
	v.SetDefault("defaults.page_size", defaults.PageSize)
	v.SetDefault("defaults.concurrency", defaults.Concurrency)
	v.SetDefault("defaults.recency_days", defaults.RecencyDays)
	v.SetDefault("defaults.cache_ttl", defaults.CacheTTL.String())
	v.SetDefault("defaults.min_score", defaults.MinScore)
	v.SetDefault("defaults.min_score_floor", defaults.MinScoreFloor)
	v.SetDefault("defaults.relax_step", defaults.RelaxStep)
	v.SetDefault("defaults.max_pages_per_domain", defaults.MaxPagesPerDomain)
}

// errorsAs wraps errors.As so the viper import block stays tidy.
func errorsAs(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}

	return false
}

// Validate checks fields the pipeline cannot run without.
func (c *AppConfig) Validate() error {
	if c.LLM.ServerType == "" {
		return fmt.Errorf("llm.server_type is required")
	}
	if c.Politeness.RequestsPerSecond <= 0 {
		return fmt.Errorf("politeness.requests_per_second must be positive")
	}

	return nil
}

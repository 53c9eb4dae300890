package job

import (
	"fmt"

	"github.com/jonesrussell/incidentwatch/internal/domain"
	"github.com/jonesrussell/incidentwatch/internal/extract"
	"github.com/jonesrussell/incidentwatch/internal/llm"
	"github.com/jonesrussell/incidentwatch/internal/logger"
)

// LLMExtractorFactory builds extractors backed by the configured model
// server. The job record's server and model fields override the application
// defaults, so jobs created against different models coexist.
type LLMExtractorFactory struct {
	base llm.Config
	log  logger.Interface
}

// NewLLMExtractorFactory creates a factory over the application's model
// server configuration.
func NewLLMExtractorFactory(base llm.Config, log logger.Interface) *LLMExtractorFactory {
	return &LLMExtractorFactory{base: base, log: log}
}

// New implements ExtractorFactory.
func (f *LLMExtractorFactory) New(j *domain.Job, promptTemplate string) (Extractor, error) {
	cfg := f.base
	if j.ServerType != "" {
		cfg.ServerType = j.ServerType
	}
	if j.ServerName != "" {
		cfg.ServerName = j.ServerName
	}
	if j.ModelName != "" {
		cfg.Model = j.ModelName
	}

	client, err := llm.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	return extract.New(client, promptTemplate, f.log), nil
}

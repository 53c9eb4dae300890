// Package llm abstracts the language-model backends used for field
// extraction. Backends are interchangeable behind a single Invoke operation
// so the extractor never knows which engine answered.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// defaultInvokeTimeout bounds one model call. The extraction prompt is small
// but local models can be slow to first token.
const defaultInvokeTimeout = 120 * time.Second

// Client is one language-model backend.
type Client interface {
	// Invoke sends a prompt and returns the model's raw text response.
	Invoke(ctx context.Context, prompt string) (string, error)
	// Model returns the configured model name.
	Model() string
}

// Server types.
const (
	ServerTypeOllama = "ollama"
	ServerTypeGemini = "gemini"
)

// Config selects and parameterizes a backend.
type Config struct {
	ServerType string        `mapstructure:"server_type"`
	ServerName string        `mapstructure:"server_name"`
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// New builds a client for the configured server type. An unknown type is an
// error the caller treats as fatal for its job.
func New(cfg Config) (Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultInvokeTimeout
	}

	switch strings.ToLower(cfg.ServerType) {
	case ServerTypeOllama:
		return newOllamaClient(cfg), nil
	case ServerTypeGemini:
		return newGeminiClient(cfg), nil
	default:
		return nil, fmt.Errorf("llm: unknown server type %q", cfg.ServerType)
	}
}

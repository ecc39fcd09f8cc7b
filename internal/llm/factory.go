package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/KMMOrganisation/ParliQ/internal/apperrors"
	"github.com/KMMOrganisation/ParliQ/internal/config"
)

// NewClient builds the configured provider. A missing API key yields
// ErrNotConfigured so callers can disable the capability.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "gemini", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: %w", apperrors.ErrNotConfigured)
		}
		c, err := NewGeminiClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		return c, nil

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: %w", apperrors.ErrNotConfigured)
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "claude":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude: %w", apperrors.ErrNotConfigured)
		}
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil

	case "ollama":
		// Ollama serves an OpenAI-compatible API under /v1 and ignores the key.
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL, cfg.MaxTokens), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

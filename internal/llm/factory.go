package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/reelgraph/internal/config"
	"github.com/agenthands/reelgraph/internal/logging"
)

func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(cfg.Provider)

	switch provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)

	case "claude":
		return NewClaudeClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case "ollama":
		// Ollama serves an OpenAI-compatible API under /v1.
		baseURL := cfg.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		logging.Info().Str("base_url", baseURL).Msg("using ollama through its OpenAI-compatible API")

		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, cfg.Model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

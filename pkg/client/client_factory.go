package client

import (
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/internal/config"
	"github.com/fpt/parley-cli/pkg/client/anthropic"
	"github.com/fpt/parley-cli/pkg/client/gemini"
	"github.com/fpt/parley-cli/pkg/client/ollama"
	"github.com/fpt/parley-cli/pkg/client/openrouter"
	"github.com/fpt/parley-cli/pkg/llm"
)

// NewLLMClient creates an LLM client based on settings.
func NewLLMClient(settings config.LLMSettings) (llm.Client, error) {
	opts := llm.Options{
		Model:       settings.Model,
		BaseURL:     settings.BaseURL,
		APIKeyEnv:   settings.APIKeyEnv,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
	}

	switch settings.Provider {
	case "openrouter", "":
		return openrouter.NewOpenRouterClient(opts)
	case "anthropic", "claude":
		return anthropic.NewAnthropicClient(opts)
	case "gemini":
		return gemini.NewGeminiClient(opts)
	case "ollama":
		return ollama.NewOllamaClient(opts)
	default:
		return nil, errors.Errorf("unknown llm provider %q", settings.Provider)
	}
}

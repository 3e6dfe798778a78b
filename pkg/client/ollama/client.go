package ollama

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

const defaultMaxTokens = 4096

// errStreamStopped aborts the response callback once the consumer stops
// taking fragments. It never escapes this package.
var errStreamStopped = errors.New("stream stopped by consumer")

// OllamaCore contains shared Ollama client resources and core functionality
type OllamaCore struct {
	client      *api.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewOllamaCore creates a new Ollama core with shared resources. An
// explicit base URL takes precedence over the OLLAMA_HOST environment;
// Ollama runs locally and needs no API key.
func NewOllamaCore(opts llm.Options) (*OllamaCore, error) {
	var client *api.Client
	if opts.BaseURL != "" {
		base, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid ollama base url %q", opts.BaseURL)
		}
		client = api.NewClient(base, http.DefaultClient)
	} else {
		var err error
		client, err = api.ClientFromEnvironment()
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Ollama client")
		}
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OllamaCore{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Client returns the underlying Ollama API client
func (c *OllamaCore) Client() *api.Client {
	return c.client
}

// Model returns the model name
func (c *OllamaCore) Model() string {
	return c.model
}

// SetModel switches subsequent requests to a different model
func (c *OllamaCore) SetModel(model string) {
	c.model = model
}

// Provider returns the backend name
func (c *OllamaCore) Provider() string {
	return "ollama"
}

func (c *OllamaCore) newChatRequest(messages []*message.ChatMessage) *api.ChatRequest {
	return &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Options: map[string]any{
			"temperature": c.temperature,
			"num_predict": c.maxTokens, // Max output tokens for Ollama
		},
	}
}

// OllamaClient handles chat requests against a local Ollama server
type OllamaClient struct {
	*OllamaCore
}

// NewOllamaClient creates a new Ollama client
func NewOllamaClient(opts llm.Options) (*OllamaClient, error) {
	core, err := NewOllamaCore(opts)
	if err != nil {
		return nil, err
	}
	return &OllamaClient{OllamaCore: core}, nil
}

// NewOllamaClientFromCore creates a new Ollama client from shared core
func NewOllamaClientFromCore(core *OllamaCore) *OllamaClient {
	return &OllamaClient{OllamaCore: core}
}

// Chat sends a conversation and returns the complete response text
func (c *OllamaClient) Chat(ctx context.Context, messages []*message.ChatMessage) (string, error) {
	req := c.newChatRequest(messages)
	streaming := false
	req.Stream = &streaming

	var content strings.Builder
	err := llm.Retry(ctx, "ollama chat", func() error {
		content.Reset()
		err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			content.WriteString(resp.Message.Content)
			return nil
		})
		return wrapAPIError(err)
	})
	if err != nil {
		return "", err
	}
	return content.String(), nil
}

// ChatStream sends a conversation and delivers the response through
// handler fragment by fragment.
func (c *OllamaClient) ChatStream(ctx context.Context, messages []*message.ChatMessage, handler llm.StreamHandler) error {
	req := c.newChatRequest(messages)

	delivered := false
	return llm.RetryStream(ctx, "ollama stream",
		func() bool { return delivered },
		func() error {
			err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
				if resp.Message.Content == "" {
					return nil
				}

				delivered = true
				if !handler(resp.Message.Content) {
					return errStreamStopped
				}
				return nil
			})
			if errors.Is(err, errStreamStopped) {
				return nil
			}
			return wrapAPIError(err)
		})
}

// ListModels enumerates the models installed on the local Ollama server.
// Context windows come from the known model table; unlisted models report
// zero and callers fall back to their configured limit.
func (c *OllamaClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	models := make([]llm.ModelInfo, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, llm.ModelInfo{
			ID:            m.Name,
			Name:          m.Name,
			ContextLength: GetModelContextWindow(m.Name),
		})
	}
	return models, nil
}

package openrouter

import (
	"context"
	"net/http"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

const (
	defaultBaseURL   = "https://openrouter.ai/api/v1"
	defaultAPIKeyEnv = "OPENROUTER_API_KEY"
	defaultMaxTokens = 1024
)

// OpenRouterCore contains shared OpenRouter client resources and core
// functionality. OpenRouter speaks the OpenAI chat completion protocol, so
// the OpenAI SDK is pointed at its base URL.
type OpenRouterCore struct {
	client      openai.Client
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
}

// NewOpenRouterCore creates a new OpenRouter core with shared resources
func NewOpenRouterCore(opts llm.Options) (*OpenRouterCore, error) {
	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, errors.Errorf("%s environment variable not set", keyEnv)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	}
	client := openai.NewClient(requestOpts...)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &OpenRouterCore{
		client:      client,
		httpClient:  &http.Client{},
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Model returns the model name
func (c *OpenRouterCore) Model() string {
	return c.model
}

// SetModel switches subsequent requests to a different model
func (c *OpenRouterCore) SetModel(model string) {
	c.model = model
}

// Provider returns the backend name
func (c *OpenRouterCore) Provider() string {
	return "openrouter"
}

func (c *OpenRouterCore) newParams(messages []*message.ChatMessage) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toOpenRouterMessages(messages),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
		Temperature: openai.Float(c.temperature),
	}
}

// OpenRouterClient handles chat completion requests against OpenRouter
type OpenRouterClient struct {
	*OpenRouterCore
}

// NewOpenRouterClient creates a new OpenRouter client
func NewOpenRouterClient(opts llm.Options) (*OpenRouterClient, error) {
	core, err := NewOpenRouterCore(opts)
	if err != nil {
		return nil, err
	}
	return &OpenRouterClient{OpenRouterCore: core}, nil
}

// NewOpenRouterClientFromCore creates a new OpenRouter client from shared core
func NewOpenRouterClientFromCore(core *OpenRouterCore) *OpenRouterClient {
	return &OpenRouterClient{OpenRouterCore: core}
}

// Chat sends a conversation and returns the complete response text
func (c *OpenRouterClient) Chat(ctx context.Context, messages []*message.ChatMessage) (string, error) {
	params := c.newParams(messages)

	var text string
	err := llm.Retry(ctx, "openrouter chat", func() error {
		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return wrapAPIError(err)
		}
		if len(completion.Choices) == 0 {
			return errors.New("no choices in completion response")
		}
		text = completion.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// ChatStream sends a conversation and delivers the response through
// handler fragment by fragment. A stream that already produced fragments
// is never reconnected on failure.
func (c *OpenRouterClient) ChatStream(ctx context.Context, messages []*message.ChatMessage, handler llm.StreamHandler) error {
	params := c.newParams(messages)

	delivered := false
	return llm.RetryStream(ctx, "openrouter stream",
		func() bool { return delivered },
		func() error {
			return c.streamOnce(ctx, params, handler, &delivered)
		})
}

func (c *OpenRouterClient) streamOnce(ctx context.Context, params openai.ChatCompletionNewParams, handler llm.StreamHandler, delivered *bool) error {
	stream := c.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		fragment := chunk.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}

		*delivered = true
		if !handler(fragment) {
			return nil
		}
	}

	if err := stream.Err(); err != nil {
		return wrapAPIError(err)
	}
	return nil
}

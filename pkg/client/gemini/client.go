package gemini

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

const (
	defaultAPIKeyEnv = "GEMINI_API_KEY"
	defaultMaxTokens = 8192
)

// GeminiCore holds shared resources for Gemini clients
type GeminiCore struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewGeminiCore creates a new Gemini core with shared resources
func NewGeminiCore(opts llm.Options) (*GeminiCore, error) {
	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, errors.Errorf("%s environment variable not set", keyEnv)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &GeminiCore{
		client:      client,
		model:       getGeminiModel(opts.Model),
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Model returns the model name
func (c *GeminiCore) Model() string {
	return c.model
}

// SetModel switches subsequent requests to a different model. Friendly
// aliases are normalized to full model identifiers.
func (c *GeminiCore) SetModel(model string) {
	c.model = getGeminiModel(model)
}

// Provider returns the backend name
func (c *GeminiCore) Provider() string {
	return "gemini"
}

func (c *GeminiCore) newRequest(messages []*message.ChatMessage) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents, systemInstruction := toGeminiContents(messages)

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(c.maxTokens),
		Temperature:     genai.Ptr(float32(c.temperature)),
	}
	if systemInstruction != nil {
		config.SystemInstruction = systemInstruction
	}
	return contents, config
}

// GeminiClient handles chat requests against Gemini models
type GeminiClient struct {
	*GeminiCore
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(opts llm.Options) (*GeminiClient, error) {
	core, err := NewGeminiCore(opts)
	if err != nil {
		return nil, err
	}
	return &GeminiClient{GeminiCore: core}, nil
}

// NewGeminiClientFromCore creates a new client instance from existing core
func NewGeminiClientFromCore(core *GeminiCore) *GeminiClient {
	return &GeminiClient{GeminiCore: core}
}

// Chat sends a conversation and returns the complete response text
func (c *GeminiClient) Chat(ctx context.Context, messages []*message.ChatMessage) (string, error) {
	contents, config := c.newRequest(messages)

	var text string
	err := llm.Retry(ctx, "gemini chat", func() error {
		resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
		if err != nil {
			return wrapAPIError(err)
		}
		if len(resp.Candidates) == 0 {
			return errors.New("no response from Gemini")
		}

		responseText := resp.Text()
		if responseText == "" {
			return errors.New("empty response from Gemini")
		}
		text = responseText
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// ChatStream sends a conversation and delivers the response through
// handler fragment by fragment.
func (c *GeminiClient) ChatStream(ctx context.Context, messages []*message.ChatMessage, handler llm.StreamHandler) error {
	contents, config := c.newRequest(messages)

	delivered := false
	return llm.RetryStream(ctx, "gemini stream",
		func() bool { return delivered },
		func() error {
			return c.streamOnce(ctx, contents, config, handler, &delivered)
		})
}

func (c *GeminiClient) streamOnce(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig, handler llm.StreamHandler, delivered *bool) error {
	stream := c.client.Models.GenerateContentStream(ctx, c.model, contents, config)

	for resp, err := range stream {
		if err != nil {
			return wrapAPIError(err)
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			continue
		}

		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text == "" {
				continue
			}

			*delivered = true
			if !handler(part.Text) {
				return nil
			}
		}
	}

	return nil
}

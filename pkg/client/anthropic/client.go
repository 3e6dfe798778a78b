package anthropic

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

const (
	defaultAPIKeyEnv = "ANTHROPIC_API_KEY"

	// NOTE: Anthropic requires max_tokens on every request.
	defaultMaxTokens = 8192
)

// AnthropicCore contains shared Anthropic client resources and core functionality
type AnthropicCore struct {
	client      *anthropic.Client
	model       string
	temperature float64
	maxTokens   int
}

// NewAnthropicCore creates a new Anthropic core with shared resources
func NewAnthropicCore(opts llm.Options) (*AnthropicCore, error) {
	keyEnv := opts.APIKeyEnv
	if keyEnv == "" {
		keyEnv = defaultAPIKeyEnv
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, errors.Errorf("%s environment variable not set", keyEnv)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &AnthropicCore{
		client:      &client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Model returns the model name
func (c *AnthropicCore) Model() string {
	return c.model
}

// SetModel switches subsequent requests to a different model
func (c *AnthropicCore) SetModel(model string) {
	c.model = model
}

// Provider returns the backend name
func (c *AnthropicCore) Provider() string {
	return "anthropic"
}

func (c *AnthropicCore) newParams(messages []*message.ChatMessage) anthropic.MessageNewParams {
	anthropicMessages, system := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   int64(c.maxTokens),
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(c.temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	return params
}

// AnthropicClient handles chat requests against Claude models
type AnthropicClient struct {
	*AnthropicCore
}

// NewAnthropicClient creates a new Anthropic client
func NewAnthropicClient(opts llm.Options) (*AnthropicClient, error) {
	core, err := NewAnthropicCore(opts)
	if err != nil {
		return nil, err
	}
	return &AnthropicClient{AnthropicCore: core}, nil
}

// NewAnthropicClientFromCore creates a new Anthropic client from shared core
func NewAnthropicClientFromCore(core *AnthropicCore) *AnthropicClient {
	return &AnthropicClient{AnthropicCore: core}
}

// Chat sends a conversation and returns the complete response text
func (c *AnthropicClient) Chat(ctx context.Context, messages []*message.ChatMessage) (string, error) {
	params := c.newParams(messages)

	var text string
	err := llm.Retry(ctx, "anthropic chat", func() error {
		resp, err := c.client.Messages.New(ctx, params)
		if err != nil {
			return wrapAPIError(err)
		}

		var content strings.Builder
		for _, block := range resp.Content {
			if textBlock, ok := block.AsAny().(anthropic.TextBlock); ok {
				content.WriteString(textBlock.Text)
			}
		}
		if content.Len() == 0 {
			return errors.New("no text content in Anthropic response")
		}
		text = content.String()
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// ChatStream sends a conversation and delivers the response through
// handler fragment by fragment.
func (c *AnthropicClient) ChatStream(ctx context.Context, messages []*message.ChatMessage, handler llm.StreamHandler) error {
	params := c.newParams(messages)

	delivered := false
	return llm.RetryStream(ctx, "anthropic stream",
		func() bool { return delivered },
		func() error {
			return c.streamOnce(ctx, params, handler, &delivered)
		})
}

func (c *AnthropicClient) streamOnce(ctx context.Context, params anthropic.MessageNewParams, handler llm.StreamHandler, delivered *bool) error {
	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		event := stream.Current()

		switch eventData := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			delta, ok := eventData.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}

			*delivered = true
			if !handler(delta.Text) {
				return nil
			}
		}
	}

	if err := stream.Err(); err != nil {
		return wrapAPIError(err)
	}
	return nil
}

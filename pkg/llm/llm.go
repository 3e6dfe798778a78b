package llm

import (
	"context"

	"github.com/fpt/parley-cli/pkg/message"
)

// StreamHandler consumes response fragments in arrival order. Returning
// false stops consumption early; the backend closes the stream and
// ChatStream returns nil.
type StreamHandler func(fragment string) bool

// Client represents a chat completion backend
type Client interface {
	// Chat sends a conversation and returns the complete response text
	Chat(ctx context.Context, messages []*message.ChatMessage) (string, error)
	// ChatStream sends a conversation and delivers the response through handler
	ChatStream(ctx context.Context, messages []*message.ChatMessage, handler StreamHandler) error
	// Model returns the identifier requests are currently sent to
	Model() string
	// SetModel switches subsequent requests to a different model
	SetModel(model string)
	// Provider returns the backend name this client talks to
	Provider() string
}

// ModelCatalog is implemented by clients whose backend can enumerate its
// models. Callers type-assert; backends without a listing endpoint simply
// don't implement it.
type ModelCatalog interface {
	// ListModels fetches the backend's model catalog
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Options carries the connection parameters a backend client is built
// from. Zero values fall back to per-backend defaults.
type Options struct {
	Model       string
	BaseURL     string
	APIKeyEnv   string
	Temperature float64
	MaxTokens   int
}

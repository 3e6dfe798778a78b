package ollama

import (
	"github.com/ollama/ollama/api"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

// toOllamaMessages converts neutral messages to Ollama format. Nil
// entries are skipped.
func toOllamaMessages(messages []*message.ChatMessage) []api.Message {
	var ollamaMessages []api.Message

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		ollamaMessages = append(ollamaMessages, api.Message{
			Role:    msg.Role().String(),
			Content: msg.Content(),
		})
	}

	return ollamaMessages
}

// wrapAPIError converts SDK errors carrying an HTTP status into a
// StatusError so callers get a stable result code.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return &llm.StatusError{Code: statusErr.StatusCode, Message: statusErr.ErrorMessage}
	}
	return err
}

package openrouter

import (
	"github.com/openai/openai-go/v2"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

// toOpenRouterMessages converts neutral messages to the OpenAI chat
// completion format used by OpenRouter. Nil entries are skipped.
func toOpenRouterMessages(messages []*message.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role() {
		case message.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content()))
		case message.RoleAssistant:
			params = append(params, openai.AssistantMessage(msg.Content()))
		default:
			params = append(params, openai.UserMessage(msg.Content()))
		}
	}

	return params
}

// wrapAPIError converts SDK errors carrying an HTTP status into a
// StatusError so callers get a stable result code.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return &llm.StatusError{Code: apierr.StatusCode, Message: apierr.Message}
	}
	return err
}

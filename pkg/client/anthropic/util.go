package anthropic

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

// toAnthropicMessages converts neutral messages to Anthropic format.
// System messages are not part of the conversation turns in the Anthropic
// API; they are collected and returned separately for the system
// parameter. Nil entries are skipped.
func toAnthropicMessages(messages []*message.ChatMessage) ([]anthropic.MessageParam, string) {
	var anthropicMessages []anthropic.MessageParam
	var system []string

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role() {
		case message.RoleSystem:
			if msg.Content() != "" {
				system = append(system, msg.Content())
			}
		case message.RoleAssistant:
			anthropicMessages = append(anthropicMessages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content())))
		default:
			anthropicMessages = append(anthropicMessages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content())))
		}
	}

	return anthropicMessages, strings.Join(system, "\n\n")
}

// wrapAPIError converts SDK errors carrying an HTTP status into a
// StatusError so callers get a stable result code.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &llm.StatusError{Code: apierr.StatusCode}
	}
	return err
}

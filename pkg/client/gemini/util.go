package gemini

// Google Gemini 2.5 Models
// https://ai.google.dev/gemini-api/docs/models

import (
	"github.com/pkg/errors"
	"google.golang.org/genai"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

const (
	modelGemini25Pro       = "gemini-2.5-pro"
	modelGemini25Flash     = "gemini-2.5-flash"
	modelGemini25FlashLite = "gemini-2.5-flash-lite"
)

// getGeminiModel maps user-friendly model names to actual Gemini 2.5 model identifiers
func getGeminiModel(model string) string {
	switch model {
	case "gemini-2.5-pro", "gemini-pro", "pro":
		return modelGemini25Pro
	case "gemini-2.5-flash", "gemini-flash", "flash":
		return modelGemini25Flash
	case "gemini-2.5-flash-lite", "gemini-2.5-lite", "gemini-lite", "lite":
		return modelGemini25FlashLite
	default:
		// Unknown names pass through untouched so new models work without
		// a code change.
		return model
	}
}

// toGeminiContents converts neutral messages to Gemini format. The last
// system message becomes the system instruction; nil entries are skipped.
func toGeminiContents(messages []*message.ChatMessage) ([]*genai.Content, *genai.Content) {
	contents := make([]*genai.Content, 0, len(messages))
	var systemInstruction *genai.Content

	for _, msg := range messages {
		if msg == nil {
			continue
		}
		switch msg.Role() {
		case message.RoleSystem:
			systemInstruction = genai.NewContentFromText(msg.Content(), genai.RoleUser)
		case message.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content(), genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content(), genai.RoleUser))
		}
	}

	return contents, systemInstruction
}

// wrapAPIError converts SDK errors carrying an HTTP status into a
// StatusError so callers get a stable result code.
func wrapAPIError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.StatusError{Code: apiErr.Code, Message: apiErr.Message}
	}
	return err
}

// Package budget selects the portion of a conversation that fits a model's
// context window under a deterministic token estimate.
package budget

import (
	"github.com/pkg/errors"

	pkgLogger "github.com/fpt/parley-cli/pkg/logger"
	"github.com/fpt/parley-cli/pkg/message"
)

// Package-level logger for budgeting decisions
var logger = pkgLogger.NewComponentLogger("budget")

// ErrNothingToSend reports that the budget leaves no room for any
// conversation content. Callers surface this instead of sending a request
// that carries at most a system prompt.
var ErrNothingToSend = errors.New("context budget leaves no room for a message")

const (
	// CharsPerToken is the deterministic estimation divisor. This is a
	// documented approximation, not a real tokenizer; replacing it would
	// observably change truncation behavior.
	CharsPerToken = 3

	// SafetyBuffer is the fixed headroom reserved on top of the expected
	// output and system prompt for every request.
	SafetyBuffer = 500
)

// EstimateTokens returns the approximate token count for a text:
// ceil(length in characters / 3).
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + CharsPerToken - 1) / CharsPerToken
}

// EstimateMessages sums the estimated token cost of a message list.
func EstimateMessages(msgs []*message.ChatMessage) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content())
	}
	return total
}

// HasConversationContent reports whether msgs carries anything besides a
// system prompt.
func HasConversationContent(msgs []*message.ChatMessage) bool {
	for _, m := range msgs {
		if m.Role() != message.RoleSystem {
			return true
		}
	}
	return false
}

// Budgeter builds the outbound message list for a completion request. It is
// stateless; every limit is passed in explicitly by the caller.
type Budgeter struct{}

// NewBudgeter creates a budgeter.
func NewBudgeter() *Budgeter {
	return &Budgeter{}
}

// Available returns the token budget left for conversation content once the
// reserved output, the system prompt, and the fixed safety buffer are
// subtracted from the model's context limit. A result <= 0 means nothing
// fits.
func (b *Budgeter) Available(systemPrompt string, contextLimit, reservedOutputTokens int) int {
	safetyMargin := reservedOutputTokens + EstimateTokens(systemPrompt) + SafetyBuffer
	return contextLimit - safetyMargin
}

// BuildRequest produces the ordered message list to submit to the completion
// endpoint. The estimated total stays within contextLimit after reserving
// room for the output and the system prompt.
//
// With includeHistory, history is walked newest to oldest and a message is
// kept only while the running total stays within budget; the walk stops at
// the first message that would exceed it. Older messages are never pulled in
// after a rejection, and an oversized message is excluded whole rather than
// truncated. Without includeHistory only the most recent message is kept.
// A non-empty systemPrompt is always prepended at position 0.
//
// The function never mutates history. An empty result means nothing fits;
// the caller must surface that instead of sending a degenerate request.
func (b *Budgeter) BuildRequest(history []*message.ChatMessage, systemPrompt string, contextLimit, reservedOutputTokens int, includeHistory bool) []*message.ChatMessage {
	available := b.Available(systemPrompt, contextLimit, reservedOutputTokens)

	var selected []*message.ChatMessage
	switch {
	case available <= 0:
		// Nothing fits beyond the system prompt.

	case !includeHistory:
		if len(history) > 0 {
			selected = append(selected, history[len(history)-1])
		}

	default:
		currentTokens := 0
		cut := len(history)
		for i := len(history) - 1; i >= 0; i-- {
			msgTokens := EstimateTokens(history[i].Content())
			if currentTokens+msgTokens > available {
				break
			}
			currentTokens += msgTokens
			cut = i
		}
		if cut < len(history) {
			selected = append(selected, history[cut:]...)
		}
	}

	result := make([]*message.ChatMessage, 0, len(selected)+1)
	if systemPrompt != "" {
		result = append(result, message.NewSystemMessage(systemPrompt))
	}
	result = append(result, selected...)

	logger.DebugWithIntention(pkgLogger.IntentionStatistics, "Built request payload",
		"history_len", len(history),
		"selected", len(selected),
		"available_tokens", available,
		"estimated_tokens", EstimateMessages(result))

	return result
}

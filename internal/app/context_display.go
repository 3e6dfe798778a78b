package app

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/fpt/parley-cli/pkg/budget"
)

// ContextDisplay handles context window usage visualization
type ContextDisplay struct{}

// NewContextDisplay creates a new context display instance
func NewContextDisplay() *ContextDisplay {
	return &ContextDisplay{}
}

// CalculateUsageDetails estimates the size of the next request, history plus
// the effective system prompt, against the configured context limit.
func (cd *ContextDisplay) CalculateUsageDetails(s *ChatSession) (currentTokens, maxTokens, percentage int) {
	msgs := s.History().Messages()
	if len(msgs) == 0 {
		return 0, 0, 0
	}

	settings := s.Settings()
	systemPrompt := EffectiveSystemPrompt(settings.Chat.SystemPrompt, settings.Chat.ResponseStyle)
	currentTokens = budget.EstimateMessages(msgs) + budget.EstimateTokens(systemPrompt)

	maxTokens = settings.LLM.ContextLimit
	if maxTokens <= 0 {
		return 0, 0, 0
	}

	percentage = int(math.Round(float64(currentTokens) * 100.0 / float64(maxTokens)))

	// Cap at 100%
	if percentage > 100 {
		percentage = 100
	}

	return currentTokens, maxTokens, percentage
}

// FormatContextUsage creates a right-aligned context usage display with color coding
func (cd *ContextDisplay) FormatContextUsage(currentTokens, maxTokens, percentage int, terminalWidth int) string {
	var colorCode string
	var resetCode string = "\033[0m"

	// Color code based on usage level
	switch {
	case percentage < 50:
		colorCode = "\033[32m" // Green - low usage
	case percentage < 80:
		colorCode = "\033[33m" // Yellow - moderate usage
	default:
		colorCode = "\033[31m" // Red - high usage
	}

	contextStr := fmt.Sprintf("%sContext: %d/%d (%.1f%%)%s", colorCode, currentTokens, maxTokens, float64(percentage), resetCode)

	// Calculate padding to right-align (accounting for color codes)
	visibleLength := fmt.Sprintf("Context: %d/%d (%.1f%%)", currentTokens, maxTokens, float64(percentage))
	padding := terminalWidth - len(visibleLength)
	if padding < 0 {
		padding = 0
	}

	return strings.Repeat(" ", padding) + contextStr
}

// ShowContextUsage renders the usage line shown above the prompt. An empty
// string means there is nothing worth showing yet.
func (cd *ContextDisplay) ShowContextUsage(s *ChatSession) string {
	currentTokens, maxTokens, percentage := cd.CalculateUsageDetails(s)
	if maxTokens == 0 {
		return ""
	}

	// Get terminal width
	terminalWidth := 80 // fallback
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		terminalWidth = width
	}

	return cd.FormatContextUsage(currentTokens, maxTokens, percentage, terminalWidth)
}

// WriteTokenReport writes the full request budget breakdown used by /tokens.
func (cd *ContextDisplay) WriteTokenReport(w io.Writer, s *ChatSession) {
	settings := s.Settings()
	msgs := s.History().Messages()
	systemPrompt := EffectiveSystemPrompt(settings.Chat.SystemPrompt, settings.Chat.ResponseStyle)

	historyTokens := budget.EstimateMessages(msgs)
	promptTokens := budget.EstimateTokens(systemPrompt)
	available := s.budgeter.Available(systemPrompt, settings.LLM.ContextLimit, settings.LLM.MaxTokens)

	fmt.Fprintf(w, "\n📊 Context Budget:\n")
	fmt.Fprintf(w, "  Context limit:    %7d tokens\n", settings.LLM.ContextLimit)
	fmt.Fprintf(w, "  System prompt:    %7d tokens\n", promptTokens)
	fmt.Fprintf(w, "  Reserved output:  %7d tokens\n", settings.LLM.MaxTokens)
	fmt.Fprintf(w, "  Safety buffer:    %7d tokens\n", budget.SafetyBuffer)
	fmt.Fprintf(w, "  History:          %7d tokens (%d messages)\n", historyTokens, len(msgs))
	if available > 0 {
		fmt.Fprintf(w, "  Available budget: %7d tokens\n", available)
	} else {
		fmt.Fprintf(w, "  Available budget:  nothing fits, lower the output reserve or clear history\n")
	}
}

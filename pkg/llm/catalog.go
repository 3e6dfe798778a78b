package llm

import "strings"

// Model categories offered by the model picker. Matching is keyword-based
// on the model identifier except for the context and pricing categories.
const (
	CategoryAll          = "all"
	CategoryCoding       = "coding"
	CategoryChat         = "chat"
	CategoryVision       = "vision"
	CategoryOpenSource   = "open-source"
	CategoryLargeContext = "large-context"
	CategoryFree         = "free"
)

// largeContextThreshold is the context length from which a model counts as
// large-context.
const largeContextThreshold = 65536

// ModelInfo describes one entry of a backend's model catalog.
type ModelInfo struct {
	ID                  string
	Name                string
	ContextLength       int
	MaxCompletionTokens int
	PromptPrice         float64
	CompletionPrice     float64
}

// EffectiveMaxCompletion returns the output token ceiling, falling back to
// half the context window when the catalog does not report one.
func (m ModelInfo) EffectiveMaxCompletion() int {
	if m.MaxCompletionTokens > 0 {
		return m.MaxCompletionTokens
	}
	return m.ContextLength / 2
}

// IsFree reports whether both prompt and completion pricing are zero.
func (m ModelInfo) IsFree() bool {
	return m.PromptPrice == 0 && m.CompletionPrice == 0
}

// Categories lists the supported catalog filters in display order.
func Categories() []string {
	return []string{
		CategoryAll,
		CategoryCoding,
		CategoryChat,
		CategoryVision,
		CategoryOpenSource,
		CategoryLargeContext,
		CategoryFree,
	}
}

// FilterByCategory returns the models matching the given category.
// CategoryAll and the empty string return the input unchanged; unknown
// categories match nothing.
func FilterByCategory(models []ModelInfo, category string) []ModelInfo {
	if category == CategoryAll || category == "" {
		return models
	}

	var filtered []ModelInfo
	for _, m := range models {
		if matchesCategory(m, category) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

func matchesCategory(m ModelInfo, category string) bool {
	id := strings.ToLower(m.ID)

	switch category {
	case CategoryCoding:
		return strings.Contains(id, "code") || strings.Contains(id, "coder")
	case CategoryChat:
		return strings.Contains(id, "chat") || strings.Contains(id, "instruct")
	case CategoryVision:
		return strings.Contains(id, "vision")
	case CategoryOpenSource:
		return strings.Contains(id, "huggingface") ||
			strings.Contains(id, "meta-llama") ||
			strings.Contains(id, "mistralai")
	case CategoryLargeContext:
		return m.ContextLength >= largeContextThreshold
	case CategoryFree:
		return m.IsFree()
	default:
		return false
	}
}

// FallbackModels is the catalog used when the backend listing cannot be
// fetched, so model selection keeps working offline.
func FallbackModels() []ModelInfo {
	return []ModelInfo{
		{
			ID:                  "mistralai/mistral-7b-instruct",
			Name:                "Mistral 7B (Fallback)",
			ContextLength:       32768,
			MaxCompletionTokens: 4096,
		},
	}
}

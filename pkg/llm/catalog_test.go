package llm

import (
	"testing"
)

func catalogFixture() []ModelInfo {
	return []ModelInfo{
		{ID: "deepseek/deepseek-coder", Name: "DeepSeek Coder", ContextLength: 16384, PromptPrice: 0.1, CompletionPrice: 0.2},
		{ID: "mistralai/mistral-7b-instruct", Name: "Mistral 7B Instruct", ContextLength: 32768, PromptPrice: 0.07, CompletionPrice: 0.07},
		{ID: "qwen/qwen-2-vl-vision", Name: "Qwen2 VL", ContextLength: 131072, PromptPrice: 0.3, CompletionPrice: 0.3},
		{ID: "google/gemma-7b-chat:free", Name: "Gemma 7B Chat", ContextLength: 8192},
	}
}

func collectIDs(models []ModelInfo) []string {
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestFilterByCategory(t *testing.T) {
	models := catalogFixture()

	tests := []struct {
		category string
		wantIDs  []string
	}{
		{CategoryAll, []string{"deepseek/deepseek-coder", "mistralai/mistral-7b-instruct", "qwen/qwen-2-vl-vision", "google/gemma-7b-chat:free"}},
		{"", []string{"deepseek/deepseek-coder", "mistralai/mistral-7b-instruct", "qwen/qwen-2-vl-vision", "google/gemma-7b-chat:free"}},
		{CategoryCoding, []string{"deepseek/deepseek-coder"}},
		{CategoryChat, []string{"mistralai/mistral-7b-instruct", "google/gemma-7b-chat:free"}},
		{CategoryVision, []string{"qwen/qwen-2-vl-vision"}},
		{CategoryOpenSource, []string{"mistralai/mistral-7b-instruct"}},
		{CategoryLargeContext, []string{"qwen/qwen-2-vl-vision"}},
		{CategoryFree, []string{"google/gemma-7b-chat:free"}},
		{"premium", nil},
	}

	for _, tt := range tests {
		name := tt.category
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			got := collectIDs(FilterByCategory(models, tt.category))
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Expected %d models, got %d: %v", len(tt.wantIDs), len(got), got)
			}
			for i, id := range tt.wantIDs {
				if got[i] != id {
					t.Errorf("Expected %q at position %d, got %q", id, i, got[i])
				}
			}
		})
	}
}

func TestFilterByCategoryPreservesInput(t *testing.T) {
	models := catalogFixture()
	FilterByCategory(models, CategoryCoding)
	if len(models) != 4 {
		t.Errorf("Expected input slice to stay untouched, got %d entries", len(models))
	}
}

func TestEffectiveMaxCompletion(t *testing.T) {
	explicit := ModelInfo{ContextLength: 32768, MaxCompletionTokens: 4096}
	if got := explicit.EffectiveMaxCompletion(); got != 4096 {
		t.Errorf("Expected 4096, got %d", got)
	}

	derived := ModelInfo{ContextLength: 32768}
	if got := derived.EffectiveMaxCompletion(); got != 16384 {
		t.Errorf("Expected half the context window, got %d", got)
	}

	unknown := ModelInfo{}
	if got := unknown.EffectiveMaxCompletion(); got != 0 {
		t.Errorf("Expected 0 for an unknown model, got %d", got)
	}
}

func TestIsFree(t *testing.T) {
	free := ModelInfo{}
	if !free.IsFree() {
		t.Error("Expected zero-priced model to be free")
	}

	paid := ModelInfo{PromptPrice: 0.001}
	if paid.IsFree() {
		t.Error("Expected priced model not to be free")
	}
}

func TestFallbackModels(t *testing.T) {
	models := FallbackModels()
	if len(models) != 1 {
		t.Fatalf("Expected a single fallback model, got %d", len(models))
	}

	m := models[0]
	if m.ID != "mistralai/mistral-7b-instruct" {
		t.Errorf("Unexpected fallback model: %s", m.ID)
	}
	if m.ContextLength != 32768 {
		t.Errorf("Expected context length 32768, got %d", m.ContextLength)
	}
	if m.EffectiveMaxCompletion() != 4096 {
		t.Errorf("Expected max completion 4096, got %d", m.EffectiveMaxCompletion())
	}
}

func TestCategories(t *testing.T) {
	categories := Categories()
	if len(categories) != 7 {
		t.Fatalf("Expected 7 categories, got %d", len(categories))
	}
	if categories[0] != CategoryAll {
		t.Errorf("Expected %q first, got %q", CategoryAll, categories[0])
	}
}

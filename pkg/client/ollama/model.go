package ollama

import "strings"

// OllamaModel carries locally maintained metadata the Ollama API does not
// report.
type OllamaModel struct {
	Name string `json:"name"`

	// Context is the context length of the model
	Context int `json:"context"`
}

// This is from https://ollama.com/search
// List must be kept in sync with the Ollama models by human.
var ollamaModels = []OllamaModel{
	{Name: "gpt-oss:latest", Context: 128000},
	{Name: "gpt-oss:20b", Context: 128000},
	{Name: "gpt-oss:120b", Context: 128000},
	{Name: "llama3.1:latest", Context: 131072},
	{Name: "llama3.2:latest", Context: 131072},
	{Name: "qwen2.5:latest", Context: 32768},
	{Name: "mistral:latest", Context: 32768},
	{Name: "gemma3:latest", Context: 8192},
}

// GetModelContextWindow returns the known context window for a model.
// If the model isn't in the known list, returns 0 to indicate unknown.
func GetModelContextWindow(model string) int {
	modelLower := strings.ToLower(model)
	for _, ollamaModel := range ollamaModels {
		if strings.Contains(modelLower, strings.ToLower(ollamaModel.Name)) {
			return ollamaModel.Context
		}
	}
	return 0
}

// IsModelInKnownList reports whether the model appears in the curated
// model table.
func IsModelInKnownList(model string) bool {
	return GetModelContextWindow(model) > 0
}

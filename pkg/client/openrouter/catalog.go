package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
)

// modelsResponse mirrors the payload of GET /models. Pricing comes back
// as decimal strings.
type modelsResponse struct {
	Data []modelEntry `json:"data"`
}

type modelEntry struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	ContextLength int     `json:"context_length"`
	Popularity    float64 `json:"popularity"`
	Pricing       struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
	} `json:"pricing"`
	TopProvider struct {
		MaxCompletionTokens int `json:"max_completion_tokens"`
	} `json:"top_provider"`
}

// ListModels fetches the model catalog, most popular first. Callers are
// expected to fall back to llm.FallbackModels when this fails so the
// model picker keeps working offline.
func (c *OpenRouterClient) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, errors.Wrap(err, "building model catalog request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching model catalog")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &llm.StatusError{Code: resp.StatusCode, Message: "model catalog request failed"}
	}

	var payload modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "decoding model catalog")
	}

	sort.SliceStable(payload.Data, func(i, j int) bool {
		return payload.Data[i].Popularity > payload.Data[j].Popularity
	})

	models := make([]llm.ModelInfo, 0, len(payload.Data))
	for _, entry := range payload.Data {
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		models = append(models, llm.ModelInfo{
			ID:                  entry.ID,
			Name:                name,
			ContextLength:       entry.ContextLength,
			MaxCompletionTokens: entry.TopProvider.MaxCompletionTokens,
			PromptPrice:         parsePrice(entry.Pricing.Prompt),
			CompletionPrice:     parsePrice(entry.Pricing.Completion),
		})
	}
	return models, nil
}

// parsePrice reads a per-token price reported as a decimal string.
// Missing or unreadable prices count as paid, never as free.
func parsePrice(s string) float64 {
	if s == "" {
		return 1
	}
	price, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1
	}
	return price
}

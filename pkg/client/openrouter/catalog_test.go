package openrouter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
)

func newCatalogTestClient(t *testing.T, handler http.HandlerFunc) (*OpenRouterClient, func()) {
	t.Helper()

	server := httptest.NewServer(handler)

	t.Setenv("PARLEY_TEST_OPENROUTER_KEY", "test-key")
	client, err := NewOpenRouterClient(llm.Options{
		Model:     "mistralai/mistral-7b-instruct",
		BaseURL:   server.URL,
		APIKeyEnv: "PARLEY_TEST_OPENROUTER_KEY",
	})
	if err != nil {
		server.Close()
		t.Fatalf("Expected no error creating client, got %v", err)
	}

	return client, server.Close
}

func TestListModels(t *testing.T) {
	payload := `{"data":[
		{"id":"small/model","name":"Small","context_length":8192,"popularity":1,
		 "pricing":{"prompt":"0","completion":"0"},
		 "top_provider":{"max_completion_tokens":2048}},
		{"id":"big/model-instruct","name":"","context_length":131072,"popularity":42,
		 "pricing":{"prompt":"0.000007","completion":"0.000021"},
		 "top_provider":{}}
	]}`

	client, closeServer := newCatalogTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	})
	defer closeServer()

	// The client must satisfy the optional catalog interface.
	var catalog llm.ModelCatalog = client

	models, err := catalog.ListModels(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(models))
	}

	// Sorted by popularity, most popular first.
	big := models[0]
	if big.ID != "big/model-instruct" {
		t.Fatalf("Expected the popular model first, got %s", big.ID)
	}
	if big.Name != "big/model-instruct" {
		t.Errorf("Expected the ID as display name when none is reported, got %q", big.Name)
	}
	if big.ContextLength != 131072 {
		t.Errorf("Expected context length 131072, got %d", big.ContextLength)
	}
	if big.EffectiveMaxCompletion() != 65536 {
		t.Errorf("Expected max completion to derive from the context window, got %d", big.EffectiveMaxCompletion())
	}
	if big.PromptPrice != 0.000007 {
		t.Errorf("Expected prompt price 0.000007, got %v", big.PromptPrice)
	}
	if big.IsFree() {
		t.Error("Expected priced model not to be free")
	}

	small := models[1]
	if small.MaxCompletionTokens != 2048 {
		t.Errorf("Expected reported max completion 2048, got %d", small.MaxCompletionTokens)
	}
	if !small.IsFree() {
		t.Error("Expected zero-priced model to be free")
	}
}

func TestListModelsServerError(t *testing.T) {
	client, closeServer := newCatalogTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusInternalServerError)
	})
	defer closeServer()

	_, err := client.ListModels(context.Background())
	if err == nil {
		t.Fatal("Expected an error for a server failure")
	}

	var statusErr *llm.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected a status error, got %v", err)
	}
	if statusErr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", statusErr.Code)
	}
}

func TestListModelsMalformedPayload(t *testing.T) {
	client, closeServer := newCatalogTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not json")
	})
	defer closeServer()

	_, err := client.ListModels(context.Background())
	if err == nil {
		t.Fatal("Expected an error for a malformed payload")
	}
	if code := llm.Classify(err); code != llm.CodeStreamParse {
		t.Errorf("Expected parse failure code %d, got %d", llm.CodeStreamParse, code)
	}
}

func TestParsePrice(t *testing.T) {
	testCases := []struct {
		input    string
		expected float64
	}{
		{"0", 0},
		{"0.000007", 0.000007},
		{"", 1},
		{"not-a-number", 1},
	}

	for _, tc := range testCases {
		if got := parsePrice(tc.input); got != tc.expected {
			t.Errorf("parsePrice(%q) = %v, expected %v", tc.input, got, tc.expected)
		}
	}
}

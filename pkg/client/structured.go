package client

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/fpt/parley-cli/pkg/llm"
	"github.com/fpt/parley-cli/pkg/message"
)

// GenerateStructured asks the model for a JSON object matching T's schema
// and unmarshals the reply into T. The schema is generated from T's
// struct tags and embedded in the system prompt; markdown code fences
// around the payload are tolerated.
func GenerateStructured[T any](ctx context.Context, c llm.Client, prompt string) (T, error) {
	var result T

	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.ReflectFromType(reflect.TypeOf(result))

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return result, errors.Wrap(err, "failed to marshal response schema")
	}

	system := fmt.Sprintf(
		"Respond with a single JSON object conforming to this JSON Schema. Output only the JSON object, without surrounding prose.\n\nSchema:\n%s",
		string(schemaJSON))
	messages := []*message.ChatMessage{
		message.NewSystemMessage(system),
		message.NewUserMessage(prompt),
	}

	reply, err := c.Chat(ctx, messages)
	if err != nil {
		return result, err
	}

	payload := stripCodeFence(reply)
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, errors.Wrap(err, "structured response is not valid JSON")
	}
	return result, nil
}

// stripCodeFence removes a surrounding markdown code fence, including an
// optional language tag, from a model reply.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

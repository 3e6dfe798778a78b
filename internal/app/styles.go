package app

import "strings"

// Response style identifiers selectable via settings and /style.
const (
	StyleConcise  = "concise"
	StyleBalanced = "balanced"
	StyleDetailed = "detailed"
)

// styleInstructions maps a response style to the instruction line appended
// to the system prompt. Balanced adds nothing.
var styleInstructions = map[string]string{
	StyleConcise:  "Always answer as briefly and concisely as possible.",
	StyleDetailed: "Always give detailed answers and explain your reasoning step by step.",
}

// ResponseStyles returns the selectable styles in picker order.
func ResponseStyles() []string {
	return []string{StyleBalanced, StyleConcise, StyleDetailed}
}

// EffectiveSystemPrompt combines the base system prompt with the style
// instruction. Either part may be empty; the result carries no stray
// whitespace.
func EffectiveSystemPrompt(base, style string) string {
	instruction := styleInstructions[style]
	return strings.TrimSpace(base + "\n" + instruction)
}

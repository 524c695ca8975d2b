// Package prompt renders hyperstring test inputs into the system and user
// prompts sent to a provider.
package prompt

import (
	"fmt"
	"strings"

	"github.com/hypernym-ai/modelprint/pkg/models"
)

// Separator is the literal line a payload response must emit between the
// synthesis task and the payload answer.
const Separator = "00000--00000"

// SystemNatural instructs the model to perform only the synthesis task.
const SystemNatural = "Synthesize the Compressed Details into a singular clear and concise statement. " +
	"Focus on describing the event using only the information provided. Do not add any preamble or labels."

// SystemPayload instructs the model to synthesize, emit the separator line,
// then answer the payload question directly.
const SystemPayload = `Format:
[synthesized statement starting directly with content]
` + Separator + `
[direct answer to additional question]

Description:
You must complete exactly two tasks in this specific order:

TASK 1: Create an extrapolated paragraph -
Synthesize the Compressed Details into a singular clear and concise statement. Focus on describing the event using only the information provided.

SEPARATOR: After completing Task 1, you MUST add a line containing exactly this text:
` + Separator + `

TASK 2: Answer the additional question provided.
CRITICAL: Answer DIRECTLY without any preamble. Do NOT include:
- Numbers like "2."
- Labels like "Task 2:" or "Answer:"
- Any introduction or setup`

// Hyperstring is a parsed compressed input of the form
// "category::k=v;k=v;...".
type Hyperstring struct {
	Category string
	Details  []Detail
}

// Detail is one key=value pair from the detail section.
type Detail struct {
	Key   string
	Value string
}

// ParseHyperstring splits a hyperstring into its semantic category and
// ordered details. Malformed detail entries (no "=") are skipped.
func ParseHyperstring(text string) Hyperstring {
	category, rest, _ := strings.Cut(text, "::")
	h := Hyperstring{Category: category}
	if rest == "" {
		return h
	}
	for _, part := range strings.Split(rest, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		h.Details = append(h.Details, Detail{Key: k, Value: v})
	}
	return h
}

// Render produces the system and user prompts for a spec given its
// hyperstring input. Identical inputs always render identical prompts.
func Render(input string, spec models.TestSpec) (system, user string) {
	h := ParseHyperstring(input)

	sentences := make([]string, 0, len(h.Details))
	for _, d := range h.Details {
		sentences = append(sentences, fmt.Sprintf("The %s is noted, there is %s.", d.Key, d.Value))
	}

	user = fmt.Sprintf("Combine the following details into a coherent narrative: Compressed phrase - '%s'. Details expounded - %s.",
		h.Category, strings.Join(sentences, " "))

	if spec.Natural() {
		return SystemNatural, user
	}
	user += fmt.Sprintf("\n\nAdditional question: %s", spec.Payload)
	return SystemPayload, user
}

// StripPayload returns the synthesis portion of a response, discarding the
// separator line and the payload answer after it. Responses without a
// separator are returned unchanged.
func StripPayload(text string) string {
	if before, _, found := strings.Cut(text, Separator); found {
		return strings.TrimSpace(before)
	}
	return text
}

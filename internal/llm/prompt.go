package llm

import (
	"encoding/json"
	"strings"

	"github.com/strideworks/diagram-analyzer/internal/stride"
)

// BuildStridePrompt renders the analysis instruction for one diagram. It is
// a pure function of its PromptContext: identical inputs yield byte-identical
// prompts (map-based schema marshaling sorts keys, so no ordering jitter).
func BuildStridePrompt(pc PromptContext) string {
	parts := []string{
		"You are a security architect performing STRIDE threat modeling on an architecture diagram.",
		"Identify every architectural component visible in the diagram and enumerate its threats under the six STRIDE categories: " + strings.Join(stride.Categories, ", ") + ".",
		"For each component report: name, evidence (the diagram text or labels that identify it), a stride mapping with all six categories, and recommendations.",
		"Return ONLY JSON that matches this JSON Schema, with no surrounding prose or markdown:",
		mustJSON(stride.BuildDocumentJSONSchema()),
		"",
		"Diagram caption: " + pc.Caption,
		"",
		"Text extracted from the diagram:",
		strings.Join(pc.TextLines, "\n"),
		"",
		"Objects detected in the diagram: " + strings.Join(pc.Objects, ", "),
	}
	return strings.Join(parts, "\n")
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

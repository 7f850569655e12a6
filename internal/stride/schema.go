package stride

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildDocumentJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the normalized threat document as a generic map. It is embedded in the
// composed prompt and used locally to assert normalizer output.
func BuildDocumentJSONSchema() map[string]any {
	strideProps := map[string]any{}
	for _, cat := range Categories {
		strideProps[cat] = stringListProp()
	}

	component := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":     map[string]any{"type": "string", "minLength": 1},
			"evidence": stringListProp(),
			"stride": map[string]any{
				"type":       "object",
				"properties": strideProps,
				"required":   append([]string{}, Categories...),
			},
			"recommendations": stringListProp(),
		},
		"required": []string{"name", "evidence", "stride", "recommendations"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"components": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    component,
			},
		},
		"required":             []string{"components"},
		"additionalProperties": false,
	}
}

func stringListProp() map[string]any {
	return map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
}

// ValidateDocument validates a normalized document against the compiled
// schema. Normalization guarantees conformance, so a failure here indicates
// a bug rather than bad model output.
func ValidateDocument(doc Document) error {
	b, err := json.Marshal(BuildDocumentJSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("stride.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("stride.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

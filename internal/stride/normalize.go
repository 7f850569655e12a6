package stride

import (
	"fmt"
	"log/slog"

	"github.com/strideworks/diagram-analyzer/internal/common"
)

// Normalize repairs an arbitrary parsed JSON value into a Document.
//
// Repair policy: a missing name becomes "unknown", missing evidence and
// recommendations become empty slices, and the stride mapping is filled so
// that all six category keys are always present. Values already present are
// preserved. Only the top-level shape check can fail; once it passes,
// normalization always succeeds.
func Normalize(v any, logger *slog.Logger) (Document, error) {
	if logger == nil {
		logger = slog.Default()
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return Document{}, common.NewAppError("INVALID_STRIDE_SHAPE",
			"top-level value is not a JSON object", common.ErrInvalidStrideShape)
	}

	raw, ok := obj["components"]
	if !ok {
		// Models occasionally emit a singular "component"; wrap it.
		single, found := obj["component"]
		if !found {
			return Document{}, common.NewAppError("INVALID_STRIDE_SHAPE",
				"object has neither components nor component", common.ErrInvalidStrideShape)
		}
		raw = []any{single}
	}

	list, ok := raw.([]any)
	if !ok {
		return Document{}, common.NewAppError("INVALID_STRIDE_SHAPE",
			"components is not an array", common.ErrInvalidStrideShape)
	}

	doc := Document{Components: make([]Component, 0, len(list))}
	skipped := 0
	for i, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			// Non-object elements carry nothing repairable; skip them.
			logger.Warn("stride.normalize.skip_element", "index", i, "type", fmt.Sprintf("%T", el))
			skipped++
			continue
		}
		doc.Components = append(doc.Components, normalizeComponent(m))
	}
	if len(doc.Components) == 0 {
		return Document{}, common.NewAppError("INVALID_STRIDE_SHAPE",
			"components array has no usable elements", common.ErrInvalidStrideShape)
	}
	if skipped > 0 {
		logger.Warn("stride.normalize.elements_skipped", "skipped", skipped, "kept", len(doc.Components))
	}
	return doc, nil
}

func normalizeComponent(m map[string]any) Component {
	c := Component{
		Name:            "unknown",
		Evidence:        []string{},
		Stride:          map[string][]string{},
		Recommendations: []string{},
	}
	if name, ok := m["name"].(string); ok && name != "" {
		c.Name = name
	}
	c.Evidence = toStringList(m["evidence"])
	c.Recommendations = toStringList(m["recommendations"])

	// Preserve whatever categories the model produced, then fill the six
	// canonical keys so downstream consumers never see a missing one.
	if sm, ok := m["stride"].(map[string]any); ok {
		for k, val := range sm {
			c.Stride[k] = toStringList(val)
		}
	}
	for _, cat := range Categories {
		if _, ok := c.Stride[cat]; !ok {
			c.Stride[cat] = []string{}
		}
	}
	return c
}

// toStringList coerces a JSON value into an ordered string slice. A bare
// string becomes a one-element slice; scalar list elements are stringified;
// anything else contributes nothing.
func toStringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return []string{}
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			switch s := el.(type) {
			case string:
				out = append(out, s)
			case float64, bool:
				out = append(out, fmt.Sprint(s))
			}
		}
		return out
	default:
		return []string{}
	}
}

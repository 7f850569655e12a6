// Package stride models the threat document produced by the analysis
// pipeline and repairs imperfect model output into that shape.
package stride

// The six fixed STRIDE category keys, in canonical order.
const (
	CategorySpoofing       = "Spoofing"
	CategoryTampering      = "Tampering"
	CategoryRepudiation    = "Repudiation"
	CategoryInfoDisclosure = "InfoDisclosure"
	CategoryDoS            = "DoS"
	CategoryElevation      = "Elevation"
)

// Categories lists all category keys in canonical order. Every component in
// a normalized Document carries all of them, possibly mapped to empty slices.
var Categories = []string{
	CategorySpoofing,
	CategoryTampering,
	CategoryRepudiation,
	CategoryInfoDisclosure,
	CategoryDoS,
	CategoryElevation,
}

// Component is one architectural component with its per-category threats.
type Component struct {
	Name            string              `json:"name"`
	Evidence        []string            `json:"evidence"`
	Stride          map[string][]string `json:"stride"`
	Recommendations []string            `json:"recommendations"`
}

// Document is the terminal artifact of an analysis: a non-empty list of
// components, each with the full stride mapping.
type Document struct {
	Components []Component `json:"components"`
}

package stride

import (
	"encoding/json"
	"strings"

	"github.com/strideworks/diagram-analyzer/internal/common"
)

// RecoverJSON extracts a parsed JSON value from a generation reply that may
// wrap the JSON in prose, markdown fences, or other noise.
//
// Strategy: strict-parse the whole string first; on failure, take the first
// balanced brace span (depth-counted, string-literal aware) starting at the
// first '{' and strict-parse that. When counting never balances (truncated
// output) fall back to the first-'{'..last-'}' span. Anything else is
// ErrMalformedCompletion.
func RecoverJSON(raw string) (any, error) {
	s := strings.TrimSpace(raw)

	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v, nil
	}

	span, ok := braceSpan(s)
	if !ok {
		return nil, common.NewAppError("MALFORMED_COMPLETION",
			"reply contains no brace-delimited block", common.ErrMalformedCompletion)
	}
	if err := json.Unmarshal([]byte(span), &v); err != nil {
		return nil, common.NewAppError("MALFORMED_COMPLETION",
			"brace span is not valid JSON", common.ErrMalformedCompletion)
	}
	return v, nil
}

// braceSpan returns the first balanced {...} span in s. Braces inside JSON
// string literals do not count toward the depth. If the depth never returns
// to zero, the greedy first-'{'..last-'}' substring is returned instead.
func braceSpan(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	// Never balanced; fall back to the outermost greedy span.
	end := strings.LastIndexByte(s, '}')
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}

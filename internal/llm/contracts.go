package llm

import "context"

// PromptContext is the immutable input to the prompt composer: the vision
// caption, the OCR text lines, and the detected object labels. Built once
// per request and never mutated.
type PromptContext struct {
	Caption   string
	TextLines []string
	Objects   []string
}

// CompletionClient is the interface the pipeline depends on for the
// text-generation call. The reply is opaque text; recovery of JSON from it
// happens downstream.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

package ocr

import (
	"context"
	"time"
)

// TextExtractor drives an async read job to completion and returns the
// recognized lines in reading order. An image with no recognizable text
// yields an empty slice, not an error.
type TextExtractor interface {
	ExtractLines(ctx context.Context, image []byte, timeout time.Duration) ([]string, error)
}

// Package analyzer orchestrates the diagram analysis pipeline: async text
// extraction and vision summary in parallel, prompt composition, completion,
// then JSON recovery and normalization into a STRIDE document.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/strideworks/diagram-analyzer/internal/llm"
	"github.com/strideworks/diagram-analyzer/internal/ocr"
	"github.com/strideworks/diagram-analyzer/internal/stride"
	"github.com/strideworks/diagram-analyzer/internal/vision"
)

// Config carries the handles to the three external collaborators. The core
// holds no process-wide state; one Analyzer can serve concurrent requests.
type Config struct {
	Extractor  ocr.TextExtractor
	Vision     vision.Analyzer
	Completion llm.CompletionClient
	Logger     *slog.Logger
}

type Analyzer struct {
	extractor  ocr.TextExtractor
	vision     vision.Analyzer
	completion llm.CompletionClient
	log        *slog.Logger
}

func New(cfg Config) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		extractor:  cfg.Extractor,
		vision:     cfg.Vision,
		completion: cfg.Completion,
		log:        logger,
	}
}

// Analyze runs the full pipeline for one image. The two upstream calls are
// independent and run concurrently; the pipeline is at-most-once with no
// internal retries, and every stage surfaces its error kind unchanged.
func (a *Analyzer) Analyze(ctx context.Context, image []byte, timeout time.Duration) (stride.Document, error) {
	start := time.Now()

	var (
		lines   []string
		summary vision.Summary
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		lines, err = a.extractor.ExtractLines(gctx, image, timeout)
		return err
	})
	g.Go(func() error {
		var err error
		summary, err = a.vision.Analyze(gctx, image)
		return err
	})
	if err := g.Wait(); err != nil {
		return stride.Document{}, err
	}

	prompt := llm.BuildStridePrompt(llm.PromptContext{
		Caption:   summary.Caption,
		TextLines: lines,
		Objects:   summary.Objects,
	})

	reply, err := a.completion.Complete(ctx, prompt)
	if err != nil {
		return stride.Document{}, err
	}

	value, err := stride.RecoverJSON(reply)
	if err != nil {
		a.log.Error("analyzer.recover_failed", "reply_len", len(reply), "error", err)
		return stride.Document{}, err
	}

	doc, err := stride.Normalize(value, a.log)
	if err != nil {
		a.log.Error("analyzer.normalize_failed", "error", err)
		return stride.Document{}, err
	}

	// Normalization guarantees the schema; a mismatch here is a bug, not a
	// model-quality problem, so it is logged rather than surfaced.
	if err := stride.ValidateDocument(doc); err != nil {
		a.log.Error("analyzer.schema_mismatch", "error", err)
	}

	a.log.Info("analyzer.ok",
		"components", len(doc.Components),
		"text_lines", len(lines),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

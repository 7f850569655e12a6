// Package repository persists finished analyses so reports can be fetched
// and exported after the fact. Two backends are provided: Postgres for
// deployments and a local SQLite file for the CLI.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/strideworks/diagram-analyzer/internal/stride"
)

// Analysis is one stored pipeline result.
type Analysis struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Title          string
	ComponentCount int
	Document       stride.Document
}

// AnalysisStore is the persistence interface the shell depends on.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, title string, doc stride.Document) (uuid.UUID, error)
	GetAnalysis(ctx context.Context, id uuid.UUID) (Analysis, error)
	ListAnalyses(ctx context.Context, limit int) ([]Analysis, error)
	Close()
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/strideworks/diagram-analyzer/internal/common"
	"github.com/strideworks/diagram-analyzer/internal/stride"
)

// SQLiteStore keeps analyses in a local file (or :memory:). It serves the
// CLI and DB-less deployments.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// sqliteTimeLayout is fixed-width so that lexicographic ORDER BY on the
// created_at text column matches chronological order. RFC3339Nano trims
// trailing fractional zeros and breaks that property.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const createAnalysesSQLite = `
CREATE TABLE IF NOT EXISTS analyses (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	component_count INTEGER NOT NULL,
	document TEXT NOT NULL
)`

func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, createAnalysesSQLite); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure analyses table: %w", err)
	}
	logger.Info("sqlite store ready", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, title string, doc stride.Document) (uuid.UUID, error) {
	id := uuid.New()
	body, err := json.Marshal(doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal document: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, created_at, title, component_count, document) VALUES (?, ?, ?, ?, ?)`,
		id.String(), time.Now().UTC().Format(sqliteTimeLayout), title, len(doc.Components), string(body))
	if err != nil {
		s.logger.Error("repository.save_analysis", "error", err)
		return uuid.Nil, fmt.Errorf("insert analysis: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id uuid.UUID) (Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, title, component_count, document FROM analyses WHERE id = ?`, id.String())
	return scanSQLiteAnalysis(row.Scan)
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, title, component_count, document FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanSQLiteAnalysis(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("repository.sqlite_close", "error", err)
	}
}

func scanSQLiteAnalysis(scan func(dest ...any) error) (Analysis, error) {
	var (
		a         Analysis
		id        string
		createdAt string
		body      string
	)
	if err := scan(&id, &createdAt, &a.Title, &a.ComponentCount, &body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, common.NewAppError("NOT_FOUND", "analysis not found", err)
		}
		return Analysis{}, fmt.Errorf("scan analysis: %w", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Analysis{}, fmt.Errorf("parse analysis id: %w", err)
	}
	a.ID = parsed
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		a.CreatedAt = ts
	}
	if err := json.Unmarshal([]byte(body), &a.Document); err != nil {
		return Analysis{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return a, nil
}

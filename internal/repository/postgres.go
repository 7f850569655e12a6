package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/strideworks/diagram-analyzer/internal/common"
	"github.com/strideworks/diagram-analyzer/internal/stride"
)

type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

const createAnalysesSQL = `
CREATE TABLE IF NOT EXISTS analyses (
	id UUID PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	title TEXT NOT NULL DEFAULT '',
	component_count INT NOT NULL,
	document JSONB NOT NULL
)`

// OpenPostgres creates a pgx pool, verifies connectivity, and ensures the
// analyses table exists.
func OpenPostgres(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "diagram-analyzer"

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(dialCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, createAnalysesSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure analyses table: %w", err)
	}

	logger.Info("successfully connected to database")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, title string, doc stride.Document) (uuid.UUID, error) {
	id := uuid.New()
	body, err := json.Marshal(doc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal document: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO analyses (id, title, component_count, document) VALUES ($1, $2, $3, $4)`,
		id, title, len(doc.Components), body)
	if err != nil {
		s.logger.Error("repository.save_analysis", "error", err)
		return uuid.Nil, fmt.Errorf("insert analysis: %w", err)
	}
	s.logger.Info("repository.analysis_saved", "id", id, "components", len(doc.Components))
	return id, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id uuid.UUID) (Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, created_at, title, component_count, document FROM analyses WHERE id = $1`, id)
	return scanAnalysis(row)
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, created_at, title, component_count, document FROM analyses ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		a    Analysis
		body []byte
	)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.Title, &a.ComponentCount, &body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Analysis{}, common.NewAppError("NOT_FOUND", "analysis not found", err)
		}
		return Analysis{}, fmt.Errorf("scan analysis: %w", err)
	}
	if err := json.Unmarshal(body, &a.Document); err != nil {
		return Analysis{}, fmt.Errorf("unmarshal document: %w", err)
	}
	return a, nil
}

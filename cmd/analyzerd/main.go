package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/strideworks/diagram-analyzer/internal/analyzer"
	"github.com/strideworks/diagram-analyzer/internal/common"
	"github.com/strideworks/diagram-analyzer/internal/export"
	"github.com/strideworks/diagram-analyzer/internal/llm/openai"
	"github.com/strideworks/diagram-analyzer/internal/ocr"
	"github.com/strideworks/diagram-analyzer/internal/repository"
	"github.com/strideworks/diagram-analyzer/internal/server"
	"github.com/strideworks/diagram-analyzer/internal/vision"
)

func main() {
	// Logger
	zl, _ := zap.NewProduction()
	defer zl.Sync()
	log := zl.Sugar()

	// slog for the internals
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Result store: Postgres when DB_URL is set, a local sqlite file when
	// SQLITE_PATH is set, otherwise no persistence.
	var store repository.AnalysisStore
	switch {
	case cfg.Store.DSN != "":
		pg, err := repository.OpenPostgres(ctx, repository.PoolConfig{
			DSN:             cfg.Store.DSN,
			MaxConns:        cfg.Store.MaxConns,
			MinConns:        cfg.Store.MinConns,
			MaxConnLifetime: cfg.Store.MaxConnLifetime,
			MaxConnIdleTime: cfg.Store.MaxConnIdleTime,
			DialTimeout:     cfg.Store.DialTimeout,
		}, logger)
		if err != nil {
			log.Fatalf("open postgres store: %v", err)
		}
		defer pg.Close()
		store = pg
		log.Infow("postgres store ready")
	case cfg.Store.SQLitePath != "":
		sq, err := repository.OpenSQLite(ctx, cfg.Store.SQLitePath, logger)
		if err != nil {
			log.Fatalf("open sqlite store: %v", err)
		}
		defer sq.Close()
		store = sq
		log.Infow("sqlite store ready", "path", cfg.Store.SQLitePath)
	default:
		log.Infow("persistence disabled")
	}

	core := analyzer.New(analyzer.Config{
		Extractor: ocr.NewReadClient(ocr.Config{
			Endpoint:     cfg.OCR.Endpoint,
			APIKey:       cfg.OCR.APIKey,
			PollInterval: cfg.OCR.PollInterval,
		}, logger),
		Vision: vision.NewClient(vision.Config{
			Endpoint: cfg.Vision.Endpoint,
			APIKey:   cfg.Vision.APIKey,
		}, logger),
		Completion: openai.NewClient(openai.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     cfg.LLM.Timeout,
		}, logger),
		Logger: logger,
	})

	mux := http.NewServeMux()
	h := server.NewHandler(core, store, export.NewService(logger), cfg.Analysis.Timeout, logger)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	fmt.Println("stopped.")
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/strideworks/diagram-analyzer/internal/analyzer"
	"github.com/strideworks/diagram-analyzer/internal/common"
	"github.com/strideworks/diagram-analyzer/internal/export"
	"github.com/strideworks/diagram-analyzer/internal/llm/openai"
	"github.com/strideworks/diagram-analyzer/internal/ocr"
	"github.com/strideworks/diagram-analyzer/internal/repository"
	"github.com/strideworks/diagram-analyzer/internal/vision"
)

// analyze runs the pipeline once against a local diagram image and prints
// the normalized document as JSON. Optionally writes an XLSX report and
// records the result in a local sqlite file.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	xlsxPath := flag.String("xlsx", "", "write an XLSX threat report to this path")
	dbPath := flag.String("db", "", "record the analysis in this sqlite file")
	timeout := flag.Duration("timeout", 60*time.Second, "overall analysis timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		logger.Error("usage: analyze [flags] <image-file>")
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	image, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		logger.Error("read image", "path", flag.Arg(0), "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout+30*time.Second)
	defer cancel()

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

	doc, err := core.Analyze(ctx, image, *timeout)
	if err != nil {
		logger.Error("analyze", "error", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logger.Error("encode document", "error", err)
		os.Exit(1)
	}
	os.Stdout.Write(append(out, '\n'))

	if *xlsxPath != "" {
		data, err := export.NewService(logger).ExportDocumentXLSX(doc, "")
		if err != nil {
			logger.Error("export xlsx", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxPath, data, 0o644); err != nil {
			logger.Error("write xlsx", "path", *xlsxPath, "error", err)
			os.Exit(1)
		}
	}

	if *dbPath != "" {
		store, err := repository.OpenSQLite(ctx, *dbPath, logger)
		if err != nil {
			logger.Error("open sqlite", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		if _, err := store.SaveAnalysis(ctx, "", doc); err != nil {
			logger.Error("save analysis", "error", err)
			os.Exit(1)
		}
	}
}

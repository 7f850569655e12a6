// Package ocr submits diagram images to an async read service and polls the
// resulting long-running operation for recognized text lines.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strideworks/diagram-analyzer/internal/common"
)

const defaultPollInterval = 500 * time.Millisecond

// Config for the read client. Endpoint is the service base URL; the read
// path is appended.
type Config struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration // http client timeout per call, not per job
}

type ReadClient struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewReadClient(cfg Config, logger *slog.Logger) *ReadClient {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadClient{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// ExtractLines submits the image and polls the returned operation until it
// reaches a terminal state or the timeout elapses. A submission that yields
// no operation reference means the service found nothing to read, which is
// success with zero lines. Failure and timeout both surface as
// common.ErrExtractionFailure.
func (c *ReadClient) ExtractLines(ctx context.Context, image []byte, timeout time.Duration) ([]string, error) {
	rid := uuid.New().String()
	start := time.Now()

	opURL, err := c.submit(ctx, image)
	if err != nil {
		c.log.Error("ocr.read.submit_error", "req_id", rid, "error", err)
		return nil, common.NewAppError("OCR_SUBMIT", "submit read job",
			fmt.Errorf("%w: %w", common.ErrExtractionFailure, err))
	}
	if opURL == "" {
		// No operation reference: nothing to extract.
		c.log.Info("ocr.read.no_operation", "req_id", rid)
		return []string{}, nil
	}

	c.log.Info("ocr.read.submitted", "req_id", rid, "poll_interval_ms", c.cfg.PollInterval.Milliseconds())

	deadline := start.Add(timeout)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("read poll canceled: %w", ctx.Err())
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			c.log.Error("ocr.read.timeout", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
			return nil, common.NewAppError("OCR_TIMEOUT", "read job did not finish in time",
				common.ErrExtractionFailure)
		}

		res, err := c.poll(ctx, opURL)
		if err != nil {
			c.log.Error("ocr.read.poll_error", "req_id", rid, "error", err)
			return nil, common.NewAppError("OCR_POLL", "poll read job",
				fmt.Errorf("%w: %w", common.ErrExtractionFailure, err))
		}

		switch res.Status {
		case StatusSucceeded:
			lines := flattenLines(res.AnalyzeResult)
			c.log.Info("ocr.read.ok",
				"req_id", rid,
				"pages", len(res.AnalyzeResult.ReadResults),
				"lines", len(lines),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return lines, nil
		case StatusFailed:
			c.log.Error("ocr.read.failed", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
			return nil, common.NewAppError("OCR_FAILED", "read job reported failure",
				common.ErrExtractionFailure)
		case StatusNotStarted, StatusRunning:
			// keep polling
		default:
			c.log.Warn("ocr.read.unknown_status", "req_id", rid, "status", res.Status)
		}
	}
}

func (c *ReadClient) submit(ctx context.Context, image []byte) (string, error) {
	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/vision/v3.2/read/analyze"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.cfg.APIKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit http error: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("submit status %d", resp.StatusCode)
	}
	return resp.Header.Get("Operation-Location"), nil
}

func (c *ReadClient) poll(ctx context.Context, opURL string) (ReadOperationResult, error) {
	var res ReadOperationResult

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
	if err != nil {
		return res, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return res, fmt.Errorf("poll http error: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return res, fmt.Errorf("poll status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return res, fmt.Errorf("decode poll response: %w", err)
	}
	return res, nil
}

// flattenLines collects line text across all pages, preserving page order
// and in-page order.
func flattenLines(ar AnalyzeResult) []string {
	lines := []string{}
	for _, page := range ar.ReadResults {
		for _, line := range page.Lines {
			lines = append(lines, line.Text)
		}
	}
	return lines
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

// Package vision wraps the synchronous image analyze call that yields a
// caption, tags, and detected objects for a diagram.
package vision

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

// Summary is the mapped analyze response. Every field defaults to
// empty/absent when the service omits it; only transport problems fail.
type Summary struct {
	Caption string
	Tags    []string
	Objects []string
}

// Analyzer is the interface the pipeline depends on.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte) (Summary, error)
}

type Config struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// analyzeResponse mirrors the service wire shape.
type analyzeResponse struct {
	Description struct {
		Captions []struct {
			Text string `json:"text"`
		} `json:"captions"`
	} `json:"description"`
	Tags []struct {
		Name string `json:"name"`
	} `json:"tags"`
	Objects []struct {
		Object string `json:"object"`
	} `json:"objects"`
}

// Analyze issues one synchronous call and maps the response into a Summary.
func (c *Client) Analyze(ctx context.Context, image []byte) (Summary, error) {
	rid := uuid.New().String()
	start := time.Now()

	url := strings.TrimRight(c.cfg.Endpoint, "/") + "/vision/v3.2/analyze?visualFeatures=Description,Tags,Objects"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return Summary{}, common.NewAppError("VISION_REQUEST", "build analyze request",
			fmt.Errorf("%w: %w", common.ErrVisionService, err))
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if c.cfg.APIKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("vision.analyze.http_error", "req_id", rid, "error", err)
		return Summary{}, common.NewAppError("VISION_HTTP", "analyze call failed",
			fmt.Errorf("%w: %w", common.ErrVisionService, err))
	}
	defer func(Body io.ReadCloser) {
		// Drain before close so the keep-alive connection can be reused.
		_, _ = io.Copy(io.Discard, Body)
		if cerr := Body.Close(); cerr != nil {
			c.log.Warn("vision.analyze.body_close_error", "req_id", rid, "error", cerr)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("vision.analyze.status_error", "req_id", rid, "status", resp.StatusCode)
		return Summary{}, common.NewAppError("VISION_STATUS",
			fmt.Sprintf("analyze status %d", resp.StatusCode), common.ErrVisionService)
	}

	var ar analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		c.log.Error("vision.analyze.decode_error", "req_id", rid, "error", err)
		return Summary{}, common.NewAppError("VISION_DECODE", "decode analyze response",
			fmt.Errorf("%w: %w", common.ErrVisionService, err))
	}

	s := Summary{Tags: []string{}, Objects: []string{}}
	if len(ar.Description.Captions) > 0 {
		s.Caption = ar.Description.Captions[0].Text
	}
	for _, t := range ar.Tags {
		s.Tags = append(s.Tags, t.Name)
	}
	for _, o := range ar.Objects {
		s.Objects = append(s.Objects, o.Object)
	}

	c.log.Info("vision.analyze.ok",
		"req_id", rid,
		"has_caption", s.Caption != "",
		"tags", len(s.Tags),
		"objects", len(s.Objects),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return s, nil
}

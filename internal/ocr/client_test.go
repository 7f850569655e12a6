package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strideworks/diagram-analyzer/internal/common"
)

func newTestClient(t *testing.T, handler http.Handler) (*ReadClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewReadClient(Config{
		Endpoint:     srv.URL,
		APIKey:       "test-key",
		PollInterval: 5 * time.Millisecond,
	}, nil)
	return c, srv
}

func writeStatus(w http.ResponseWriter, res ReadOperationResult) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func TestExtractLinesFlattensPages(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	var opURL string
	mux.HandleFunc("POST /vision/v3.2/read/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", opURL)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /read/operations/1", func(w http.ResponseWriter, r *http.Request) {
		if polls.Add(1) < 3 {
			writeStatus(w, ReadOperationResult{Status: StatusRunning})
			return
		}
		writeStatus(w, ReadOperationResult{
			Status: StatusSucceeded,
			AnalyzeResult: AnalyzeResult{
				ReadResults: []ReadResult{
					{Page: 1, Lines: []Line{{Text: "Web Server"}, {Text: "Database"}}},
					{Page: 2, Lines: []Line{{Text: "Load Balancer"}}},
				},
			},
		})
	})
	c, srv := newTestClient(t, mux)
	opURL = srv.URL + "/read/operations/1"

	lines, err := c.ExtractLines(context.Background(), []byte("img"), 2*time.Second)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := []string{"Web Server", "Database", "Load Balancer"}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("expected %v, got %v", want, lines)
	}
	if polls.Load() < 3 {
		t.Fatalf("expected at least 3 polls, got %d", polls.Load())
	}
}

func TestExtractLinesNoOperationReference(t *testing.T) {
	// Absence of an operation reference means nothing to extract, not an
	// error.
	polled := false
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vision/v3.2/read/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		polled = true
		w.WriteHeader(http.StatusNotFound)
	})
	c, _ := newTestClient(t, mux)

	lines, err := c.ExtractLines(context.Background(), []byte("img"), time.Second)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected empty lines, got %v", lines)
	}
	if polled {
		t.Fatalf("poller must not poll without an operation reference")
	}
}

func TestExtractLinesJobFailed(t *testing.T) {
	mux := http.NewServeMux()
	var opURL string
	mux.HandleFunc("POST /vision/v3.2/read/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", opURL)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /read/operations/1", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, ReadOperationResult{Status: StatusFailed})
	})
	c, srv := newTestClient(t, mux)
	opURL = srv.URL + "/read/operations/1"

	_, err := c.ExtractLines(context.Background(), []byte("img"), time.Second)
	if !errors.Is(err, common.ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestExtractLinesTimeout(t *testing.T) {
	mux := http.NewServeMux()
	var opURL string
	mux.HandleFunc("POST /vision/v3.2/read/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", opURL)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /read/operations/1", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, ReadOperationResult{Status: StatusRunning})
	})
	c, srv := newTestClient(t, mux)
	opURL = srv.URL + "/read/operations/1"

	_, err := c.ExtractLines(context.Background(), []byte("img"), 30*time.Millisecond)
	if !errors.Is(err, common.ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure on timeout, got %v", err)
	}
}

func TestExtractLinesSubmitError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /vision/v3.2/read/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c, _ := newTestClient(t, mux)

	_, err := c.ExtractLines(context.Background(), []byte("img"), time.Second)
	if !errors.Is(err, common.ErrExtractionFailure) {
		t.Fatalf("expected ErrExtractionFailure, got %v", err)
	}
}

func TestExtractLinesObservesCancellation(t *testing.T) {
	mux := http.NewServeMux()
	var opURL string
	mux.HandleFunc("POST /vision/v3.2/read/analyze", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Operation-Location", opURL)
		w.WriteHeader(http.StatusAccepted)
	})
	mux.HandleFunc("GET /read/operations/1", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, ReadOperationResult{Status: StatusRunning})
	})
	c, srv := newTestClient(t, mux)
	opURL = srv.URL + "/read/operations/1"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(15 * time.Millisecond)
		cancel()
	}()
	_, err := c.ExtractLines(ctx, []byte("img"), 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

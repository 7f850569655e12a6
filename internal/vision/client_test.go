package vision

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/strideworks/diagram-analyzer/internal/common"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{Endpoint: srv.URL, APIKey: "test-key"}, nil)
}

func TestAnalyzeMapsResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"description": {"captions": [{"text": "a system diagram"}]},
			"tags": [{"name": "diagram"}, {"name": "text"}],
			"objects": [{"object": "rectangle"}, {"object": "cylinder"}]
		}`))
	})

	s, err := c.Analyze(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if s.Caption != "a system diagram" {
		t.Fatalf("expected caption, got %q", s.Caption)
	}
	if !reflect.DeepEqual(s.Tags, []string{"diagram", "text"}) {
		t.Fatalf("unexpected tags: %v", s.Tags)
	}
	if !reflect.DeepEqual(s.Objects, []string{"rectangle", "cylinder"}) {
		t.Fatalf("unexpected objects: %v", s.Objects)
	}
}

func TestAnalyzeDefaultsMissingFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	s, err := c.Analyze(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if s.Caption != "" {
		t.Fatalf("expected empty caption, got %q", s.Caption)
	}
	if len(s.Tags) != 0 || len(s.Objects) != 0 {
		t.Fatalf("expected empty tags/objects, got %v / %v", s.Tags, s.Objects)
	}
}

func TestAnalyzeIgnoresTrailingBodyBytes(t *testing.T) {
	// The decoder stops at the end of the JSON document; trailing bytes are
	// drained and discarded rather than failing the call.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"description":{"captions":[{"text":"diagram"}]}}` + "\ntrailing noise"))
	})

	s, err := c.Analyze(context.Background(), []byte("img"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if s.Caption != "diagram" {
		t.Fatalf("expected caption, got %q", s.Caption)
	}
}

func TestAnalyzeTransportFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Analyze(context.Background(), []byte("img"))
	if !errors.Is(err, common.ErrVisionService) {
		t.Fatalf("expected ErrVisionService, got %v", err)
	}
}

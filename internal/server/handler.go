// Package server is the HTTP shell around the analysis core. It owns
// transport framing and the mapping of pipeline error kinds to statuses;
// the pipeline itself lives in internal/analyzer.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strideworks/diagram-analyzer/internal/common"
	"github.com/strideworks/diagram-analyzer/internal/export"
	"github.com/strideworks/diagram-analyzer/internal/repository"
	"github.com/strideworks/diagram-analyzer/internal/stride"
)

// maxImageBytes caps uploaded diagram size.
const maxImageBytes = 20 << 20

// AnalysisRunner is what the shell needs from the core.
type AnalysisRunner interface {
	Analyze(ctx context.Context, image []byte, timeout time.Duration) (stride.Document, error)
}

type Handler struct {
	Runner  AnalysisRunner
	Store   repository.AnalysisStore // nil disables persistence
	Export  *export.Service
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewHandler(runner AnalysisRunner, store repository.AnalysisStore, exporter *export.Service, timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Handler{
		Runner:  runner,
		Store:   store,
		Export:  exporter,
		Timeout: timeout,
		Logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /v1/analyses", h.handleListAnalyses)
	mux.HandleFunc("GET /v1/analyses/{id}", h.handleGetAnalysis)
	mux.HandleFunc("GET /v1/analyses/{id}/export", h.handleExportAnalysis)
	mux.HandleFunc("GET /healthz", h.handleHealthz)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	image, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImageBytes))
	if err != nil {
		http.Error(w, "read image body", http.StatusBadRequest)
		return
	}
	if len(image) == 0 {
		http.Error(w, "empty image body", http.StatusBadRequest)
		return
	}

	doc, err := h.Runner.Analyze(r.Context(), image, h.Timeout)
	if err != nil {
		h.writeAnalysisError(w, err)
		return
	}

	resp := map[string]any{"document": doc}
	if h.Store != nil {
		title := titleOf(doc)
		id, serr := h.Store.SaveAnalysis(r.Context(), title, doc)
		if serr != nil {
			// Persistence is best-effort; the analysis already succeeded.
			h.Logger.Error("server.save_analysis", "error", serr)
		} else {
			resp["id"] = id
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return
	}
	list, err := h.Store.ListAnalyses(r.Context(), 50)
	if err != nil {
		h.Logger.Error("server.list_analyses", "error", err)
		http.Error(w, "list analyses", http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(list))
	for _, a := range list {
		items = append(items, map[string]any{
			"id":              a.ID,
			"created_at":      a.CreatedAt,
			"title":           a.Title,
			"component_count": a.ComponentCount,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": items})
}

func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnalysis(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         a.ID,
		"created_at": a.CreatedAt,
		"title":      a.Title,
		"document":   a.Document,
	})
}

func (h *Handler) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	a, ok := h.loadAnalysis(w, r)
	if !ok {
		return
	}
	data, err := h.Export.ExportDocumentXLSX(a.Document, a.Title)
	if err != nil {
		h.Logger.Error("server.export_analysis", "id", a.ID, "error", err)
		http.Error(w, "export analysis", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="threat-report-%s.xlsx"`, a.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) loadAnalysis(w http.ResponseWriter, r *http.Request) (repository.Analysis, bool) {
	if h.Store == nil {
		http.Error(w, "persistence disabled", http.StatusNotFound)
		return repository.Analysis{}, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid analysis id", http.StatusBadRequest)
		return repository.Analysis{}, false
	}
	a, err := h.Store.GetAnalysis(r.Context(), id)
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code == "NOT_FOUND" {
			http.Error(w, "analysis not found", http.StatusNotFound)
			return repository.Analysis{}, false
		}
		h.Logger.Error("server.get_analysis", "id", id, "error", err)
		http.Error(w, "load analysis", http.StatusInternalServerError)
		return repository.Analysis{}, false
	}
	return a, true
}

// writeAnalysisError maps pipeline error kinds onto HTTP statuses: upstream
// service problems are gateway errors while unusable model output is an
// unprocessable-entity class of its own, so operators can tell infrastructure
// failures apart from model-quality failures.
func (h *Handler) writeAnalysisError(w http.ResponseWriter, err error) {
	var status int
	var kind string
	switch {
	case errors.Is(err, common.ErrExtractionFailure):
		status, kind = http.StatusBadGateway, "extraction_failure"
	case errors.Is(err, common.ErrVisionService):
		status, kind = http.StatusBadGateway, "vision_service_failure"
	case errors.Is(err, common.ErrCompletionService):
		status, kind = http.StatusBadGateway, "completion_service_failure"
	case errors.Is(err, common.ErrMalformedCompletion):
		status, kind = http.StatusUnprocessableEntity, "malformed_completion"
	case errors.Is(err, common.ErrInvalidStrideShape):
		status, kind = http.StatusUnprocessableEntity, "invalid_stride_shape"
	case errors.Is(err, context.DeadlineExceeded):
		status, kind = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		status, kind = http.StatusGatewayTimeout, "canceled"
	default:
		status, kind = http.StatusInternalServerError, "internal"
	}
	h.Logger.Error("server.analyze_failed", "kind", kind, "error", err)
	writeJSON(w, status, map[string]any{"error": kind, "detail": err.Error()})
}

// titleOf derives a short human label for a stored analysis from its
// component names.
func titleOf(doc stride.Document) string {
	names := make([]string, 0, len(doc.Components))
	for _, c := range doc.Components {
		names = append(names, c.Name)
	}
	title := strings.Join(names, ", ")
	if r := []rune(title); len(r) > 120 {
		title = string(r[:117]) + "..."
	}
	return title
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sayiza/orapgsync/internal/state"
	"github.com/sayiza/orapgsync/pkg/catalog"
	"github.com/sayiza/orapgsync/pkg/infer"
	"github.com/sayiza/orapgsync/pkg/plsql"
	"github.com/sayiza/orapgsync/pkg/transform"
)

type handlers struct {
	gen    *transform.Generator
	store  *state.Store
	logger *slog.Logger
}

func newHandlers(cat *catalog.Metadata, fragments []string, store *state.Store, logger *slog.Logger) *handlers {
	return &handlers{
		gen:    transform.New(cat, infer.NewHeuristicEvaluator(fragments...), transform.WithLogger(logger)),
		store:  store,
		logger: logger,
	}
}

type transformRequest struct {
	Source string `json:"source"`
	// Label names the origin of the source for run recording. Optional.
	Label string `json:"label,omitempty"`
}

type viewRequest struct {
	Schema string `json:"schema,omitempty"`
	View   string `json:"view"`
	Source string `json:"source"`
	Label  string `json:"label,omitempty"`
}

type diagnosticJSON struct {
	Severity string `json:"severity"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

type transformResponse struct {
	RunID       string           `json:"run_id"`
	SQL         string           `json:"sql"`
	Failed      bool             `json:"failed"`
	Diagnostics []diagnosticJSON `json:"diagnostics"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Health reports liveness.
func (h *handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Transform parses and transforms one PL/SQL statement or block.
func (h *handlers) Transform(w http.ResponseWriter, r *http.Request) {
	var req transformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "source is required"})
		return
	}

	stmt, err := plsql.Parse(req.Source)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	h.respond(w, r, req.Label, h.gen.Transform(stmt))
}

// TransformView transforms a view's defining SELECT, applying the declared
// column casts from the catalog.
func (h *handlers) TransformView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.View == "" || req.Source == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "view and source are required"})
		return
	}

	sel, err := plsql.ParseSelect(req.Source)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
		return
	}
	h.respond(w, r, req.Label, h.gen.TransformView(req.Schema, req.View, sel))
}

func (h *handlers) respond(w http.ResponseWriter, r *http.Request, label string, res *transform.Result) {
	if h.store != nil && label != "" {
		if err := h.store.RecordRun(r.Context(), label, res); err != nil {
			h.logger.Warn("run recording failed", "run_id", res.RunID, "error", err)
		}
	}

	resp := transformResponse{
		RunID:       res.RunID,
		SQL:         res.SQL,
		Failed:      res.HasErrors(),
		Diagnostics: make([]diagnosticJSON, 0, len(res.Diagnostics)),
	}
	for _, d := range res.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, diagnosticJSON{
			Severity: d.Severity.String(),
			Kind:     string(d.Kind),
			Message:  d.Message,
			Line:     d.Pos.Line,
			Col:      d.Pos.Column,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListRuns returns recorded runs for a source label.
func (h *handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot store configured"})
		return
	}
	source := r.URL.Query().Get("source")
	if source == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "source query parameter is required"})
		return
	}
	runs, err := h.store.ListRuns(r.Context(), source)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun returns one recorded run with its diagnostics.
func (h *handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no snapshot store configured"})
		return
	}
	run, err := h.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

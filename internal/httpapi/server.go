// Package httpapi exposes run history and health over HTTP. The serve
// command mounts it so dashboards and scripts can read workflow reports
// without going through the CLI.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/probaah/probaah/pkg/domain"
	"github.com/probaah/probaah/pkg/ports"
)

// Server serves the run history API.
type Server struct {
	store   ports.ReportStore
	probers []ports.Prober
	logger  *slog.Logger
}

// NewHandler builds the HTTP handler. gatherer may be nil to omit /metrics.
func NewHandler(store ports.ReportStore, probers []ports.Prober, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	s := &Server{store: store, probers: probers, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/tools", s.handleTools)
	r.Get("/runs", s.handleListRuns)
	r.Get("/runs/latest", s.handleLatestRun)
	r.Get("/runs/{id}", s.handleGetRun)
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleTools probes every registered adapter.
func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	type toolStatus struct {
		Name string `json:"name"`
		domain.Availability
	}
	out := make([]toolStatus, 0, len(s.probers))
	for _, p := range s.probers {
		out = append(out, toolStatus{Name: p.Name(), Availability: p.Probe(r.Context())})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.List(r.Context())
	if err != nil {
		s.serverError(w, "list runs", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Latest(r.Context())
	s.writeReport(w, report, err)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Load(r.Context(), chi.URLParam(r, "id"))
	s.writeReport(w, report, err)
}

func (s *Server) writeReport(w http.ResponseWriter, report *domain.WorkflowReport, err error) {
	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
	case err != nil:
		s.serverError(w, "load run", err)
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	if s.logger != nil {
		s.logger.Error("http handler failed", "op", op, "err", err)
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

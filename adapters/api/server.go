// Package api exposes validation runs over HTTP as JSON, plus Prometheus
// metrics. Rendering beyond the markdown/HTML report is out of scope.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"emcal/adapters/excel"
	"emcal/adapters/report"
	"emcal/app"
	"emcal/domain/core"
	"emcal/domain/mapping"
	"emcal/domain/validation"
	"emcal/internal"
	"emcal/internal/config"
	"emcal/internal/telemetry"
	"emcal/ports"
)

// Server hosts the validation API.
type Server struct {
	router   *chi.Mux
	cfg      *config.Config
	specs    []mapping.VariableSpec
	store    ports.ResultStore // nil when persistence is not configured
	metrics  *telemetry.Metrics
	logger   *internal.Logger
	reporter *report.MarkdownReporter

	mu      sync.RWMutex
	reports map[core.RunID]*validation.RunReport
}

// NewServer wires routes, middleware and metrics.
func NewServer(cfg *config.Config, specs []mapping.VariableSpec, store ports.ResultStore, logger *internal.Logger) *Server {
	registry := prometheus.NewRegistry()
	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		specs:    specs,
		store:    store,
		metrics:  telemetry.New(registry),
		logger:   logger,
		reporter: report.New(),
		reports:  make(map[core.RunID]*validation.RunReport),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	s.router.Post("/api/runs", s.handleCreateRun)
	s.router.Get("/api/runs/{id}", s.handleGetRun)
	s.router.Get("/api/runs/{id}/report", s.handleGetReport)

	return s
}

// Handler returns the HTTP handler for serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// createRunRequest is the run submission payload. File paths refer to
// the server's filesystem; run settings default from process config.
type createRunRequest struct {
	SimFiles      []string            `json:"sim_files"`
	MeasuredFiles []string            `json:"measured_files"`
	Run           *config.RunSettings `json:"run,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.SimFiles) == 0 || len(req.MeasuredFiles) == 0 {
		s.writeError(w, http.StatusBadRequest, "sim_files and measured_files are required")
		return
	}

	settings := s.cfg.Run
	if req.Run != nil {
		settings = *req.Run
	}
	runCfg := settings.ToRunConfig()

	service, err := app.NewValidationService(&runCfg, s.specs, s.metrics, s.logger)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	simTables, err := excel.NewDataReader("simulated", req.SimFiles...).Tables(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	measTables, err := excel.NewDataReader("measured", req.MeasuredFiles...).Tables(r.Context())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := service.Run(r.Context(), simTables, measTables)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.RunDone(result.DurationMs)

	s.mu.Lock()
	s.reports[result.RunID] = result
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveReport(context.WithoutCancel(r.Context()), result); err != nil {
			s.logger.Error("persisting run %s: %v", result.RunID, err)
		}
	}

	s.writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	result, ok := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	if r.URL.Query().Get("format") == "html" {
		out, err := s.reporter.RenderHTML(result)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(out)
		return
	}

	out, err := s.reporter.Render(result)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(out)
}

// lookup checks the in-memory map first, then falls back to the store
// so runs persisted before a restart stay retrievable.
func (s *Server) lookup(ctx context.Context, id string) (*validation.RunReport, bool) {
	runID := core.RunID(id)

	s.mu.RLock()
	result, ok := s.reports[runID]
	s.mu.RUnlock()
	if ok {
		return result, true
	}

	if s.store == nil {
		return nil, false
	}
	result, err := s.store.GetReport(ctx, runID)
	if err != nil {
		s.logger.Debug("loading run %s from store: %v", runID, err)
		return nil, false
	}

	s.mu.Lock()
	s.reports[runID] = result
	s.mu.Unlock()
	return result, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// Package server exposes the analysis pipeline as an HTTP JSON API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/BTBurke/smi"
	"github.com/BTBurke/smi/pkg/classify"
	"github.com/BTBurke/smi/pkg/export"
	"github.com/BTBurke/smi/pkg/telemetry"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RequestIDHeader carries the request id.  An incoming id is kept, otherwise one is assigned.
const RequestIDHeader = "X-Request-ID"

type ctxKey int

const requestIDKey ctxKey = 0

// Server is the HTTP API over a pipeline
type Server struct {
	router   *mux.Router
	pipeline *smi.Pipeline
	log      *zap.Logger
	regen    *rate.Limiter
}

// New returns a server for p.  Regeneration is limited to regenPerMinute requests per minute; zero
// disables it.
func New(p *smi.Pipeline, log *zap.Logger, regenPerMinute float64) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: p,
		log:      log,
	}
	if regenPerMinute > 0 {
		s.regen = rate.NewLimiter(rate.Limit(regenPerMinute/60), 1)
	}
	s.setupRoutes()
	s.setupMiddleware()
	return s
}

func (s *Server) setupRoutes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/datasets", s.handleGenerate).Methods(http.MethodPost)
	v1.HandleFunc("/machines", s.handleMachines).Methods(http.MethodGet)
	v1.HandleFunc("/readings", s.handleReadings).Methods(http.MethodGet)
	v1.HandleFunc("/indicators", s.handleIndicators).Methods(http.MethodGet)
	v1.HandleFunc("/describe", s.handleDescribe).Methods(http.MethodGet)
	v1.HandleFunc("/correlation", s.handleCorrelation).Methods(http.MethodGet)
	v1.HandleFunc("/control", s.handleControl).Methods(http.MethodGet)
	v1.HandleFunc("/ttest", s.handleTTest).Methods(http.MethodGet)
	v1.HandleFunc("/groups", s.handleGroups).Methods(http.MethodGet)
	v1.HandleFunc("/classify", s.handleClassify).Methods(http.MethodGet)
	v1.HandleFunc("/analysis", s.handleAnalysis).Methods(http.MethodGet)
	v1.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.HandlerFor(s.pipeline.Collectors().Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
}

func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("server shutting down")
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.regen == nil {
		s.writeError(w, r, http.StatusForbidden, fmt.Errorf("regeneration is disabled"))
		return
	}
	if !s.regen.Allow() {
		s.writeError(w, r, http.StatusTooManyRequests, fmt.Errorf("regeneration rate limit exceeded"))
		return
	}
	g, err := s.pipeline.Generate()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, g)
}

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	machines, err := s.pipeline.Machines()
	if err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, map[string][]string{"machines": machines})
}

func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, sel)
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.pipeline.Indicators(sel))
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.pipeline.Describe(sel))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.pipeline.Correlate(sel))
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	column, ok := s.column(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.pipeline.Control(sel, column))
}

func (s *Server) handleTTest(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	column, ok := s.column(w, r)
	if !ok {
		return
	}
	t := s.pipeline.Compare(sel, column)
	s.writeJSON(w, r, http.StatusOK, struct {
		TTest       interface{} `json:"ttest"`
		Significant bool        `json:"significant"`
		Verdict     string      `json:"verdict"`
	}{t, t.Significant(), t.Verdict()})
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	column, ok := s.column(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, s.pipeline.Groups(sel, column))
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	res, err := s.pipeline.Classify(sel)
	var insufficient classify.InsufficientData
	switch {
	case errors.As(err, &insufficient):
		s.writeJSON(w, r, http.StatusUnprocessableEntity, struct {
			Error    string                    `json:"error"`
			Guidance string                    `json:"guidance"`
			Counts   classify.InsufficientData `json:"insufficient_data"`
		}{insufficient.Error(), smi.Guidance(insufficient), insufficient})
	case err != nil:
		s.writeError(w, r, http.StatusInternalServerError, err)
	default:
		s.writeJSON(w, r, http.StatusOK, res)
	}
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	column, ok := s.column(w, r)
	if !ok {
		return
	}
	a, err := s.pipeline.Analyze(sel, column)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, a)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sel, ok := s.selection(w, r)
	if !ok {
		return
	}
	data, err := export.Encode(sel.Readings)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(sel.Machine)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// selection resolves the machine, from and to query parameters against the configured defaults
func (s *Server) selection(w http.ResponseWriter, r *http.Request) (*smi.Selection, bool) {
	q := s.pipeline.DefaultQuery()
	params := r.URL.Query()
	if m := params.Get("machine"); m != "" {
		q.Machine = m
	}
	for name, dst := range map[string]*time.Time{"from": &q.From, "to": &q.To} {
		v := params.Get(name)
		if v == "" {
			continue
		}
		t, err := smi.ParseTime(v)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, fmt.Errorf("invalid %s: %w", name, err))
			return nil, false
		}
		*dst = t
	}
	sel, err := s.pipeline.Select(q)
	if err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, err)
		return nil, false
	}
	return sel, true
}

func (s *Server) column(w http.ResponseWriter, r *http.Request) (telemetry.Column, bool) {
	v := r.URL.Query().Get("column")
	if v == "" {
		return s.pipeline.Config().Column, true
	}
	c, err := telemetry.ParseColumn(v)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return "", false
	}
	return c, true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := smi.WriteJSON(w, v); err != nil {
		s.log.Error("failed to encode response", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	s.writeJSON(w, r, code, map[string]string{
		"error":      err.Error(),
		"request_id": RequestID(r.Context()),
	})
}

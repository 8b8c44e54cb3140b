// Package server runs Grey Wolf optimization jobs behind an HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/cwbudde/greywolf/internal/bench"
	"github.com/cwbudde/greywolf/internal/config"
	"github.com/cwbudde/greywolf/internal/events"
	"github.com/cwbudde/greywolf/internal/opt"
	"github.com/cwbudde/greywolf/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// Options wires a Server to its collaborators. Zero values are usable: no
// checkpoints, no trace, no event bus and built-in optimizer defaults.
type Options struct {
	Logger    *slog.Logger
	Store     store.Store
	TraceDir  string // directory for per-job trace files, empty disables tracing
	Publisher events.Publisher

	// Defaults fill the settings a job request leaves out
	Defaults          config.OptimizerConfig
	MaxConcurrentJobs int
}

// Server represents the HTTP server
type Server struct {
	jobManager  *JobManager
	addr        string
	server      *http.Server
	logger      *slog.Logger
	store       store.Store
	traceDir    string
	publisher   events.Publisher
	metrics     *Metrics
	defaults    config.OptimizerConfig
	convergence opt.ConvergenceConfig

	// ctx is the parent of every job context; Shutdown cancels it
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	slots  chan struct{}
}

// NewServer creates a new HTTP server
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Nop{}
	}
	if opts.Defaults.PopSize == 0 {
		opts.Defaults = config.Default().Optimizer
	}
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = 1
	}

	convergence := opt.DisabledConvergenceConfig()
	if opts.Defaults.Patience > 0 {
		convergence = opt.ConvergenceConfig{
			Enabled:   true,
			Patience:  opts.Defaults.Patience,
			Threshold: opts.Defaults.Threshold,
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		jobManager:  NewJobManager(),
		addr:        addr,
		logger:      opts.Logger,
		store:       opts.Store,
		traceDir:    opts.TraceDir,
		publisher:   opts.Publisher,
		metrics:     NewMetrics(),
		defaults:    opts.Defaults,
		convergence: convergence,
		ctx:         ctx,
		cancel:      cancel,
		slots:       make(chan struct{}, opts.MaxConcurrentJobs),
	}
}

// Jobs exposes the job table.
func (s *Server) Jobs() *JobManager {
	return s.jobManager
}

// Handler builds the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(CORS)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/functions", s.handleListFunctions)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.handleCreateJob)
			r.Get("/", s.handleListJobs)
			r.Get("/{id}", s.handleGetJob)
			r.Get("/{id}/status", s.handleGetJobStatus)
			r.Get("/{id}/stream", s.handleJobStream)
			r.Get("/{id}/trace", s.handleGetTrace)
			r.Post("/{id}/cancel", s.handleCancelJob)
		})

		r.Route("/checkpoints", func(r chi.Router) {
			r.Get("/", s.handleListCheckpoints)
			r.Post("/{id}/resume", s.handleResumeJob)
		})
	})

	return r
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, cancels running jobs and waits for their
// workers to write their final checkpoints.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	var httpErr error
	if s.server != nil {
		httpErr = s.server.Shutdown(ctx)
	}

	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for jobs: %w", ctx.Err())
	}
	return httpErr
}

// Wait blocks until every started job has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

// createJobRequest is the body of POST /api/v1/jobs. Omitted fields take the
// server defaults.
type createJobRequest struct {
	Function           string `json:"function" validate:"required"`
	Dims               int    `json:"dims" validate:"gte=0,lte=10000"`
	Iters              *int   `json:"iters" validate:"omitempty,gte=0"`
	PopSize            int    `json:"popSize" validate:"omitempty,gte=3"`
	Seed               *int64 `json:"seed"`
	Workers            int    `json:"workers" validate:"gte=0"`
	CheckpointInterval *int   `json:"checkpointInterval" validate:"omitempty,gte=0"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// jobConfig resolves a request against the defaults and the benchmark catalogue.
func (s *Server) jobConfig(req createJobRequest) (JobConfig, error) {
	fn, err := bench.Lookup(req.Function, req.Dims)
	if err != nil {
		return JobConfig{}, err
	}

	cfg := JobConfig{
		Function:           fn.Key,
		Dims:               fn.Dims,
		Iters:              s.defaults.Iters,
		PopSize:            s.defaults.PopSize,
		Seed:               s.defaults.Seed,
		Workers:            s.defaults.Workers,
		CheckpointInterval: s.defaults.CheckpointInterval,
	}
	if req.Iters != nil {
		cfg.Iters = *req.Iters
	}
	if req.PopSize != 0 {
		cfg.PopSize = req.PopSize
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	if req.Workers != 0 {
		cfg.Workers = req.Workers
	}
	if req.CheckpointInterval != nil {
		cfg.CheckpointInterval = *req.CheckpointInterval
	}
	return cfg, nil
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	cfg, err := s.jobConfig(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := s.jobManager.CreateJob(cfg)
	s.startJob(job.ID, nil)

	writeJSON(w, http.StatusCreated, job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobManager.ListJobs())
}

// handleGetJob handles GET /api/v1/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, exists := s.jobManager.GetJob(chi.URLParam(r, "id"))
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// statusResponse adds derived throughput figures to a job.
type statusResponse struct {
	*Job
	Elapsed        float64 `json:"elapsed"`
	Progress       float64 `json:"progress"`
	EvalsPerSecond float64 `json:"evalsPerSecond"`
}

// handleGetJobStatus handles GET /api/v1/jobs/{id}/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request) {
	job, exists := s.jobManager.GetJob(chi.URLParam(r, "id"))
	if !exists {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	elapsed := job.Elapsed().Seconds()
	resp := statusResponse{Job: job, Elapsed: elapsed}
	if job.Config.Iters > 0 {
		resp.Progress = float64(job.Iteration) / float64(job.Config.Iters)
	} else if job.State == StateCompleted {
		resp.Progress = 1
	}
	if elapsed > 0 {
		resp.EvalsPerSecond = float64(job.Evaluations) / elapsed
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleCancelJob handles POST /api/v1/jobs/{id}/cancel
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	switch err := s.jobManager.Cancel(id); {
	case errors.Is(err, ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
		return
	case errors.Is(err, ErrJobFinished):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	job, _ := s.jobManager.GetJob(id)
	writeJSON(w, http.StatusAccepted, job)
}

// handleGetTrace handles GET /api/v1/jobs/{id}/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	if s.traceDir == "" {
		writeError(w, http.StatusNotFound, "tracing disabled")
		return
	}

	reader, err := store.NewTraceReader(s.traceDir, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "trace not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleListCheckpoints handles GET /api/v1/checkpoints
func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.CheckpointInfo{})
		return
	}
	infos, err := s.store.ListCheckpoints()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if infos == nil {
		infos = []store.CheckpointInfo{}
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleResumeJob handles POST /api/v1/checkpoints/{id}/resume
func (s *Server) handleResumeJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.Resume(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errNoStore):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errNotResumable):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusCreated, job)
	}
}

// functionInfo describes a catalogue entry. Optimum is null when unknown.
type functionInfo struct {
	Key     string    `json:"key"`
	Name    string    `json:"name"`
	Dims    int       `json:"dims"`
	Fixed   bool      `json:"fixed"`
	Lower   []float64 `json:"lower"`
	Upper   []float64 `json:"upper"`
	Optimum *float64  `json:"optimum"`
}

// handleListFunctions handles GET /api/v1/functions. Scalable functions are
// described at their default dimensionality unless ?dims= is given.
func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	dims := 0
	if v := r.URL.Query().Get("dims"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &dims); err != nil || dims < 1 {
			writeError(w, http.StatusBadRequest, "dims must be a positive integer")
			return
		}
	}

	funcs := bench.Catalogue(dims)
	infos := make([]functionInfo, 0, len(funcs))
	for _, fn := range funcs {
		info := functionInfo{
			Key:   fn.Key,
			Name:  fn.Name,
			Dims:  fn.Dims,
			Fixed: fn.Fixed,
			Lower: fn.Lower,
			Upper: fn.Upper,
		}
		if !math.IsNaN(fn.Optimum) {
			v := fn.Optimum
			info.Optimum = &v
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"running_jobs": len(s.jobManager.GetRunningJobs()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeValidationError reports the first failed constraint by its JSON field name.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fe := verrs[0]
	msg := fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag())
	if fe.Param() != "" {
		msg = fmt.Sprintf("%s: failed %q (%s)", fe.Field(), fe.Tag(), fe.Param())
	}
	writeError(w, http.StatusBadRequest, msg)
}

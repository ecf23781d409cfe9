package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appscans "github.com/bryanwahyu/automaton-scan-gate/internal/application/scans"
	domain "github.com/bryanwahyu/automaton-scan-gate/internal/domain/scans"
	"github.com/bryanwahyu/automaton-scan-gate/internal/middleware"
)

// maxBodyBytes batas body POST /v1/runs
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

type Options struct {
	ClientKeys    map[string]string
	CORSOrigins   []string
	RunsPerMinute int
	RunBurst      int
	Health        *middleware.Health
	Metrics       *middleware.Metrics
}

type Router struct {
	scansSvc *appscans.Service
	log      *zap.SugaredLogger
	metrics  *middleware.Metrics
	health   *middleware.Health
	limiter  *middleware.RateLimiter
	opts     Options

	// runCtx hidup lebih lama dari request, dibatalkan main saat shutdown timeout
	runCtx   context.Context
	inflight sync.WaitGroup
}

// NewRouter builds the gate server. Background runs use runCtx.
func NewRouter(runCtx context.Context, scansSvc *appscans.Service, log *zap.SugaredLogger, opts Options) *Router {
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	if opts.Health == nil {
		opts.Health = middleware.NewHealth(nil)
	}
	if opts.RunsPerMinute <= 0 {
		opts.RunsPerMinute = 30
	}
	if opts.RunBurst <= 0 {
		opts.RunBurst = 10
	}
	r := &Router{
		scansSvc: scansSvc,
		log:      log.Named("http"),
		metrics:  opts.Metrics,
		health:   opts.Health,
		limiter:  middleware.NewRateLimiter(opts.RunBurst, opts.RunsPerMinute),
		opts:     opts,
		runCtx:   runCtx,
	}
	go r.limiter.Run(runCtx)
	return r
}

func (r *Router) Handler() http.Handler {
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.RequestLogger(r.log))
	mux.Use(r.metrics.Middleware)
	if len(r.opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: r.opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(r.opts.ClientKeys))

	mux.Get("/health", r.health.HealthHandler)
	mux.Get("/ready", r.health.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", r.metrics.Handler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.With(r.limiter.Middleware).Post("/runs", r.wrap(r.handleCreateRun))
		rt.Get("/runs/latest", r.wrap(r.handleLatest))
		rt.Get("/runs/{id}", r.wrap(r.handleGet))
		rt.Get("/summary", r.wrap(r.handleSummary))
	})
	return mux
}

// Wait blocks until every background run finished or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		switch {
		case errors.Is(err, domain.ErrRunNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrConfiguration):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			r.log.Errorw("request failed", "path", req.URL.Path, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
	}
}

// POST /v1/runs
// Body: TriggerContext JSON. Orchestration jalan di background.
func (r *Router) handleCreateRun(w http.ResponseWriter, req *http.Request) error {
	var t domain.TriggerContext
	if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes)).Decode(&t); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	t = middleware.SanitizeTrigger(t)
	if err := middleware.ValidateTrigger(t); err != nil {
		return err
	}

	rec, err := r.scansSvc.Begin(req.Context(), t)
	if err != nil {
		return err
	}
	resp := map[string]any{
		"id":         rec.ID,
		"status":     "queued",
		"repo_id":    rec.RepoID,
		"run_id":     rec.ActionRunID,
		"event_type": rec.EventType,
		"client":     middleware.GetClientFromContext(req.Context()),
		"queued_at":  rec.StartedAt,
	}

	r.metrics.RunStarted()
	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		out := r.scansSvc.Complete(r.runCtx, rec)
		r.metrics.RunFinished(out.Verdict.Kind)
	}()

	writeJSON(w, http.StatusAccepted, resp)
	return nil
}

// GET /v1/runs/latest?limit=20&repo_id=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var repoID int64
	if raw := q.Get("repo_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("%w: invalid repo_id %q", errBadRequest, raw)
		}
		repoID = id
	}

	list, err := r.scansSvc.Latest(req.Context(), repoID, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []*domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/runs/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	rec, err := r.scansSvc.Get(req.Context(), domain.RunID(id))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// GET /v1/summary?days=7
func (r *Router) handleSummary(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))

	summary, err := r.scansSvc.Summary(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

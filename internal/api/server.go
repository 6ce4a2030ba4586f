// Package api exposes the pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dtb-digital/prospect-agent/internal/model"
	"github.com/dtb-digital/prospect-agent/internal/store"
)

const maxBodyBytes = 1 << 20

// Runner runs the pipeline for one request.
type Runner interface {
	Run(ctx context.Context, req model.Request) (*model.Result, error)
}

// RunReader looks up persisted runs.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	// RunTimeout bounds a single POST /prospects call. Zero means no limit.
	RunTimeout time.Duration
}

// ProspectRequest is the body of POST /prospects.
type ProspectRequest struct {
	Domain      string `json:"domain"`
	TargetRole  string `json:"target_role"`
	MaxResults  int    `json:"max_results"`
	SearchDepth int    `json:"search_depth"`
}

// ProspectResponse is the body of a successful POST /prospects.
type ProspectResponse struct {
	RunID   string       `json:"run_id"`
	Users   []model.User `json:"users"`
	Message string       `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handler struct {
	runner     Runner
	runs       RunReader
	runTimeout time.Duration
}

// NewRouter builds the HTTP handler. runs may be nil when run history is
// not kept.
func NewRouter(runner Runner, runs RunReader, opts Options) http.Handler {
	h := &handler{runner: runner, runs: runs, runTimeout: opts.RunTimeout}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", h.health)
	r.Post("/prospects", h.createProspects)
	r.Get("/runs/{id}", h.getRun)
	return r
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) createProspects(w http.ResponseWriter, r *http.Request) {
	var body ProspectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	req := model.Request{
		Domain:      body.Domain,
		TargetRole:  body.TargetRole,
		MaxResults:  body.MaxResults,
		SearchDepth: body.SearchDepth,
	}.Normalize()
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx := r.Context()
	if h.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.runTimeout)
		defer cancel()
	}

	res, err := h.runner.Run(ctx, req)
	if err != nil {
		zap.L().Error("api: pipeline failed", zap.String("domain", req.Domain), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	users := res.Analyzed()
	writeJSON(w, http.StatusOK, ProspectResponse{
		RunID:   res.RunID,
		Users:   users,
		Message: fmt.Sprintf("found %d relevant contacts with full analysis", len(users)),
	})
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run history is not enabled"})
		return
	}

	id := chi.URLParam(r, "id")
	run, err := h.runs.GetRun(r.Context(), id)
	switch {
	case eris.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
	case err != nil:
		zap.L().Error("api: get run failed", zap.String("run_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to load run"})
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// requestLogger logs one line per request with zap.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/zombar/humanscore/internal/analyzer"
	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/database"
	"github.com/zombar/humanscore/internal/queue"
	"github.com/zombar/humanscore/internal/rewrite"
	"github.com/zombar/humanscore/pkg/logging"
)

// DemoUser may export DOCX regardless of plan
const DemoUser = "demo"

// AnonymousUser is assumed when no X-User header is sent
const AnonymousUser = "anonymous"

// UsageStore tracks per-user plans and scan counts
type UsageStore interface {
	GetOrCreateUser(ctx context.Context, username, plan string) (*database.User, error)
	ConsumeScan(ctx context.Context, username, textHash string, limit int) (*database.User, error)
}

// JobQueue runs analyses and rewrites in the background
type JobQueue interface {
	EnqueueAnalyze(ctx context.Context, text, user string, opts analyzer.Options) (string, error)
	EnqueueRewrite(ctx context.Context, text, style string) (string, error)
	GetJob(id string) (*queue.Job, error)
}

// Handler handles HTTP requests
type Handler struct {
	cfg      *config.Config
	analyzer *analyzer.Analyzer
	store    UsageStore
	queue    JobQueue
	rewriter *rewrite.Service
	results  *resultCache
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	mux      *http.ServeMux
}

// Option configures a Handler
type Option func(*Handler)

// WithStore enables plans and quotas. Without a store every request is
// served without limits.
func WithStore(store UsageStore) Option {
	return func(h *Handler) {
		h.store = store
	}
}

// WithQueue enables ?async=true and /api/jobs
func WithQueue(q JobQueue) Option {
	return func(h *Handler) {
		h.queue = q
	}
}

// WithRewriter enables /api/rewrite
func WithRewriter(s *rewrite.Service) Option {
	return func(h *Handler) {
		h.rewriter = s
	}
}

// WithGatherer serves /metrics from g instead of the default registry
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

// WithLogger sets the logger for handler errors
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new API handler with CORS support
func NewHandler(cfg *config.Config, a *analyzer.Analyzer, opts ...Option) http.Handler {
	h := newHandler(cfg, a, opts...)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})
	return c.Handler(h.mux)
}

func newHandler(cfg *config.Config, a *analyzer.Analyzer, opts ...Option) *Handler {
	h := &Handler{
		cfg:      cfg,
		analyzer: a,
		results:  newResultCache(maxCachedUsers),
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("GET /api/jobs/{id}", h.handleJobStatus)
	h.mux.HandleFunc("GET /api/export", h.handleExport)
	h.mux.HandleFunc("POST /api/suggestions", h.handleSuggestions)
	h.mux.HandleFunc("POST /api/rewrite", h.handleRewrite)
	h.mux.HandleFunc("GET /api/usage", h.handleUsage)
	h.mux.HandleFunc("GET /api/catalog", h.handleCatalog)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
		"async":  h.queue != nil,
		"quotas": h.store != nil,
	}, http.StatusOK)
}

// userFromRequest identifies the caller by the X-User header
func userFromRequest(r *http.Request) string {
	if u := r.Header.Get("X-User"); u != "" {
		return u
	}
	return AnonymousUser
}

// serverError logs err and sends a generic 5xx body
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	logging.HTTPErrorLogger(h.logger, status, err, r)
	respondError(w, message, status)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}

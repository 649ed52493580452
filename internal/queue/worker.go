package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/zombar/humanscore/internal/rewrite"
	"github.com/zombar/humanscore/internal/scoring"
	"github.com/zombar/humanscore/pkg/metrics"
)

// queuePriorities weights the named queues; higher is served more often
var queuePriorities = map[string]int{
	QueueAnalysis: 6,
	QueueRewrite:  3,
}

// Worker wraps the Asynq server for processing tasks
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	bundle      *scoring.Bundle
	rewriter    *rewrite.Service
	concurrency int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// NewWorker creates a new queue worker. rewriter may be nil, in which case
// rewrite jobs fail without retry.
func NewWorker(
	cfg WorkerConfig,
	bundle *scoring.Bundle,
	rewriter *rewrite.Service,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Worker {
	if logger == nil {
		logger = slog.Default()
	}

	serverCfg := asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         queuePriorities,
		StrictPriority: false,
		RetryDelayFunc: retryDelay,

		ShutdownTimeout: 30 * time.Second,

		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			logger.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
	}

	w := &Worker{
		server:      asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, serverCfg),
		mux:         asynq.NewServeMux(),
		bundle:      bundle,
		rewriter:    rewriter,
		concurrency: cfg.Concurrency,
		logger:      logger,
		metrics:     m,
	}
	w.registerHandlers()

	return w
}

func (w *Worker) registerHandlers() {
	w.mux.HandleFunc(TypeAnalyzeText, w.handleAnalyze)
	w.mux.HandleFunc(TypeRewriteText, w.handleRewrite)
}

// Start starts the worker and blocks until it stops
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queues", queuePriorities,
	)

	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}

// Handler returns the task multiplexer
func (w *Worker) Handler() asynq.Handler {
	return w.mux
}

// retryDelay backs rewrite jobs off slowly since they wait on a generative
// model; analysis jobs retry on a short schedule.
func retryDelay(n int, _ error, task *asynq.Task) time.Duration {
	delays := []time.Duration{
		10 * time.Second,
		1 * time.Minute,
		5 * time.Minute,
	}
	if task.Type() == TypeRewriteText {
		delays = []time.Duration{
			30 * time.Second,
			1 * time.Minute,
			2 * time.Minute,
			5 * time.Minute,
			10 * time.Minute,
			20 * time.Minute,
			30 * time.Minute,
			1 * time.Hour,
		}
	}
	if n < len(delays) {
		return delays[n]
	}
	return delays[len(delays)-1]
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/humanscore/internal/analyzer"
	"github.com/zombar/humanscore/internal/rewrite"
)

const tracerName = "github.com/zombar/humanscore/internal/queue"

// handleAnalyze runs an analysis job and stores the result JSON on the task
func (w *Worker) handleAnalyze(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("%w: invalid task payload: %v", asynq.SkipRetry, err)
	}

	wait := queueWait(payload.EnqueuedAt)
	w.logger.Info("processing analysis job",
		"job_id", payload.JobID,
		"user", payload.User,
		"text_length", len(payload.Text),
		"queue_wait_seconds", wait.Seconds(),
	)

	ctx, span := startTaskSpan(ctx, TypeAnalyzeText, payload.TraceID, payload.SpanID, wait,
		attribute.String("job.id", payload.JobID),
		attribute.Int("text.length", len(payload.Text)),
	)
	defer span.End()

	a := analyzer.New(w.bundle,
		analyzer.WithOptions(payload.Options),
		analyzer.WithLogger(w.logger),
		analyzer.WithMetrics(w.metrics),
	)
	result := a.Analyze(ctx, payload.Text)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	if err := writeResult(t, data); err != nil {
		return err
	}

	w.logger.Info("analysis job completed",
		"job_id", payload.JobID,
		"human_score", result.HumanScore,
		"sentences", len(result.Sentences),
	)
	return nil
}

// handleRewrite runs a rewrite job through the configured backend
func (w *Worker) handleRewrite(ctx context.Context, t *asynq.Task) error {
	var payload RewritePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("%w: invalid task payload: %v", asynq.SkipRetry, err)
	}

	retryCount, _ := asynq.GetRetryCount(ctx)
	wait := queueWait(payload.EnqueuedAt)
	w.logger.Info("processing rewrite job",
		"job_id", payload.JobID,
		"style", payload.Style,
		"text_length", len(payload.Text),
		"retry_count", retryCount,
		"queue_wait_seconds", wait.Seconds(),
	)

	ctx, span := startTaskSpan(ctx, TypeRewriteText, payload.TraceID, payload.SpanID, wait,
		attribute.String("job.id", payload.JobID),
		attribute.String("rewrite.style", payload.Style),
		attribute.Int("retry_count", retryCount),
	)
	defer span.End()

	style, err := rewrite.ParseStyle(payload.Style)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	rewritten, err := w.rewriter.Rewrite(ctx, payload.Text, style)
	if err != nil {
		if errors.Is(err, rewrite.ErrEmptyText) || errors.Is(err, rewrite.ErrNoBackend) || !isRetriableModelError(err) {
			w.logger.Error("permanent error rewriting text", "job_id", payload.JobID, "error", err)
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		w.logger.Warn("retriable model error, will retry",
			"job_id", payload.JobID,
			"error", err,
			"retry_count", retryCount,
		)
		return err
	}

	data, err := json.Marshal(RewriteResult{Style: string(style), Text: rewritten})
	if err != nil {
		return fmt.Errorf("failed to marshal rewrite result: %w", err)
	}
	if err := writeResult(t, data); err != nil {
		return err
	}

	w.logger.Info("rewrite job completed", "job_id", payload.JobID, "retry_count", retryCount)
	return nil
}

// writeResult stores data on the task. Tasks built outside a server have
// no result writer and are skipped.
func writeResult(t *asynq.Task, data []byte) error {
	rw := t.ResultWriter()
	if rw == nil {
		return nil
	}
	if _, err := rw.Write(data); err != nil {
		return fmt.Errorf("failed to write task result: %w", err)
	}
	return nil
}

func queueWait(enqueuedAt int64) time.Duration {
	if enqueuedAt <= 0 {
		return 0
	}
	return time.Since(time.Unix(0, enqueuedAt))
}

// startTaskSpan starts a consumer span parented on the enqueuing request's
// span when the payload carries one
func startTaskSpan(ctx context.Context, taskType, traceHex, spanHex string, wait time.Duration, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if traceID, err := trace.TraceIDFromHex(traceHex); err == nil {
		if spanID, err := trace.SpanIDFromHex(spanHex); err == nil {
			remote := trace.NewSpanContext(trace.SpanContextConfig{
				TraceID:    traceID,
				SpanID:     spanID,
				TraceFlags: trace.FlagsSampled,
				Remote:     true,
			})
			ctx = trace.ContextWithRemoteSpanContext(ctx, remote)
		}
	}

	attrs = append(attrs,
		attribute.String("task.type", taskType),
		attribute.Float64("queue.wait_time_seconds", wait.Seconds()),
	)
	ctx, span := otel.Tracer(tracerName).Start(ctx, "asynq.task.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(attrs...),
	)
	span.AddEvent("task_processing_started", trace.WithAttributes(
		attribute.Float64("wait_time_seconds", wait.Seconds()),
	))
	return ctx, span
}

// isRetriableModelError determines if an error is transient (connection,
// timeout, overload) rather than a rejected request
func isRetriableModelError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retriablePatterns := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"service unavailable",
		"bad gateway",
		"gateway timeout",
		"too many requests",
		"overloaded",
		"context deadline exceeded",
		"i/o timeout",
		"no such host",
		"network is unreachable",
	}
	for _, pattern := range retriablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/humanscore/internal/analyzer"
)

// Task type constants
const (
	TypeAnalyzeText = "humanscore:analyze_text"
	TypeRewriteText = "humanscore:rewrite_text"
)

// Queue names
const (
	QueueAnalysis = "analysis"
	QueueRewrite  = "rewrite"
)

// DefaultRetention is how long completed jobs stay readable
const DefaultRetention = 24 * time.Hour

// ErrJobNotFound is returned for unknown or expired job IDs
var ErrJobNotFound = errors.New("job not found")

// AnalyzePayload is the payload of an analysis job
type AnalyzePayload struct {
	JobID   string           `json:"job_id"`
	Text    string           `json:"text"`
	User    string           `json:"user,omitempty"`
	Options analyzer.Options `json:"options"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// RewritePayload is the payload of a rewrite job
type RewritePayload struct {
	JobID string `json:"job_id"`
	Text  string `json:"text"`
	Style string `json:"style"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// RewriteResult is stored as the result of a completed rewrite job
type RewriteResult struct {
	Style string `json:"style"`
	Text  string `json:"text"`
}

// Job is the externally visible state of a queued task
type Job struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	State       string          `json:"state"`
	Retried     int             `json:"retried"`
	LastError   string          `json:"last_error,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`

	// User and Text come from an analyze payload; they are not served
	User string `json:"-"`
	Text string `json:"-"`
}

// Done reports whether the job reached a terminal state
func (j *Job) Done() bool {
	return j.State == asynq.TaskStateCompleted.String() || j.State == asynq.TaskStateArchived.String()
}

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	Close() error
}

// Client wraps the Asynq client for enqueueing tasks and reading their results
type Client struct {
	client    enqueuer
	inspector taskInspector
	retention time.Duration
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
	Retention time.Duration
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}
	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Client{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		retention: retention,
	}
}

// EnqueueAnalyze enqueues an analysis of text and returns the job ID
func (c *Client) EnqueueAnalyze(ctx context.Context, text, user string, opts analyzer.Options) (string, error) {
	payload := AnalyzePayload{
		JobID:      uuid.NewString(),
		Text:       text,
		User:       user,
		Options:    opts,
		EnqueuedAt: time.Now().UnixNano(),
	}
	payload.TraceID, payload.SpanID = recordEnqueue(ctx, TypeAnalyzeText, payload.JobID, payload.EnqueuedAt)

	return c.enqueue(ctx, TypeAnalyzeText, payload.JobID, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Queue(QueueAnalysis),
	)
}

// EnqueueRewrite enqueues a style rewrite of text and returns the job ID
func (c *Client) EnqueueRewrite(ctx context.Context, text, style string) (string, error) {
	payload := RewritePayload{
		JobID:      uuid.NewString(),
		Text:       text,
		Style:      style,
		EnqueuedAt: time.Now().UnixNano(),
	}
	payload.TraceID, payload.SpanID = recordEnqueue(ctx, TypeRewriteText, payload.JobID, payload.EnqueuedAt)

	return c.enqueue(ctx, TypeRewriteText, payload.JobID, payload,
		asynq.MaxRetry(10), // high retry tolerance for model backends
		asynq.Timeout(10*time.Minute),
		asynq.Queue(QueueRewrite),
	)
}

func (c *Client) enqueue(ctx context.Context, taskType, id string, payload any, opts ...asynq.Option) (string, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(taskType, payloadBytes, asynq.TaskID(id))
	opts = append(opts, asynq.Retention(c.retention))

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s task: %w", taskType, err)
	}
	return info.ID, nil
}

// GetJob looks a job up in every queue
func (c *Client) GetJob(id string) (*Job, error) {
	for _, queue := range []string{QueueAnalysis, QueueRewrite} {
		info, err := c.inspector.GetTaskInfo(queue, id)
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to inspect job: %w", err)
		}
		return jobFromInfo(info), nil
	}
	return nil, ErrJobNotFound
}

// Close closes the client connections
func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}

func jobFromInfo(info *asynq.TaskInfo) *Job {
	job := &Job{
		ID:        info.ID,
		Type:      info.Type,
		State:     info.State.String(),
		Retried:   info.Retried,
		LastError: info.LastErr,
	}
	if !info.CompletedAt.IsZero() {
		completed := info.CompletedAt
		job.CompletedAt = &completed
	}
	if len(info.Result) > 0 {
		job.Result = json.RawMessage(info.Result)
	}
	if info.Type == TypeAnalyzeText {
		var p AnalyzePayload
		if err := json.Unmarshal(info.Payload, &p); err == nil {
			job.User, job.Text = p.User, p.Text
		}
	}
	return job
}

// recordEnqueue returns the IDs of the active span, if any, and marks the
// enqueue on it
func recordEnqueue(ctx context.Context, taskType, id string, enqueuedAt int64) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", ""
	}
	spanCtx := span.SpanContext()
	span.AddEvent("task_enqueued", trace.WithAttributes(
		attribute.String("task.type", taskType),
		attribute.String("task.id", id),
		attribute.Int64("enqueued_at", enqueuedAt),
	))
	return spanCtx.TraceID().String(), spanCtx.SpanID().String()
}

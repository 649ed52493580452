package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/database"
	"github.com/zombar/humanscore/internal/models"
	"github.com/zombar/humanscore/internal/queue"
	"github.com/zombar/humanscore/pkg/tracing"
)

// validateText enforces the configured word and character limits. It
// returns the message to send back, or "" when text is acceptable.
func (h *Handler) validateText(text string) string {
	err := h.cfg.Limits.Check(text)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, config.ErrEmptyText):
		return "Text field is required"
	default:
		msg := err.Error()
		return strings.ToUpper(msg[:1]) + msg[1:]
	}
}

// handleAnalyze scores text synchronously, or enqueues it with ?async=true
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes())).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if msg := h.validateText(req.Text); msg != "" {
		respondError(w, msg, http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user := userFromRequest(r)
	hash := hashText(req.Text)
	async := r.URL.Query().Get("async") == "true"

	tracing.SetSpanAttributes(ctx,
		attribute.Int("text.length", len(req.Text)),
		attribute.String("user", user),
		attribute.Bool("async", async),
	)

	if async && h.queue == nil {
		respondError(w, "Async analysis is not configured", http.StatusServiceUnavailable)
		return
	}

	if !async {
		if result, ok := h.results.get(user, hash); ok {
			w.Header().Set("X-Cache", "hit")
			respondJSON(w, result, http.StatusOK)
			return
		}
	}

	if !h.chargeScan(w, r, user, hash) {
		return
	}

	if async {
		jobID, err := h.queue.EnqueueAnalyze(ctx, req.Text, user, h.analyzer.Options())
		if err != nil {
			h.serverError(w, r, http.StatusInternalServerError, "Failed to enqueue analysis", err)
			return
		}
		respondJSON(w, map[string]string{
			"job_id":  jobID,
			"status":  "queued",
			"message": "Analysis queued for processing",
		}, http.StatusAccepted)
		return
	}

	result := h.analyzer.Analyze(ctx, req.Text)
	h.results.put(user, hash, result)
	respondJSON(w, result, http.StatusOK)
}

// chargeScan consumes one scan for user unless hash is the text they
// scanned last. It writes the error response and returns false when the
// request must stop.
func (h *Handler) chargeScan(w http.ResponseWriter, r *http.Request, user, hash string) bool {
	if h.store == nil {
		return true
	}
	ctx := r.Context()

	u, err := h.store.GetOrCreateUser(ctx, user, config.DefaultPlan)
	if err != nil {
		h.serverError(w, r, http.StatusInternalServerError, "Failed to load user", err)
		return false
	}
	if u.LastTextHash == hash {
		return true
	}

	plan := h.cfg.Plan(u.Plan)
	if _, err := h.store.ConsumeScan(ctx, user, hash, plan.ScansLimit); err != nil {
		if errors.Is(err, database.ErrQuotaExceeded) {
			respondJSON(w, map[string]any{
				"error":       fmt.Sprintf("You have used all %d scans on the %s plan", plan.ScansLimit, plan.Name),
				"plan":        plan.Name,
				"scans_limit": plan.ScansLimit,
			}, http.StatusPaymentRequired)
			return false
		}
		h.serverError(w, r, http.StatusInternalServerError, "Failed to record scan", err)
		return false
	}
	return true
}

// handleJobStatus reports the state of a queued job and its result once done
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, "Async analysis is not configured", http.StatusServiceUnavailable)
		return
	}

	jobID := r.PathValue("id")
	job, err := h.queue.GetJob(jobID)
	if err != nil {
		if errors.Is(err, queue.ErrJobNotFound) {
			respondJSON(w, map[string]string{
				"job_id":  jobID,
				"status":  "not_found",
				"message": "Job not found - it may have expired",
			}, http.StatusNotFound)
			return
		}
		h.serverError(w, r, http.StatusInternalServerError, "Failed to read job", err)
		return
	}

	h.cacheJobResult(r, job)
	respondJSON(w, job, http.StatusOK)
}

// cacheJobResult makes a finished async analysis exportable by the user
// who submitted it, as a sync analysis would be
func (h *Handler) cacheJobResult(r *http.Request, job *queue.Job) {
	if job.Type != queue.TypeAnalyzeText || job.State != asynq.TaskStateCompleted.String() || len(job.Result) == 0 {
		return
	}
	user := userFromRequest(r)
	if job.User != user {
		return
	}
	var result models.AnalysisResult
	if err := json.Unmarshal(job.Result, &result); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode job result", "job_id", job.ID, "error", err)
		return
	}
	h.results.put(user, hashText(job.Text), result)
}

func (h *Handler) maxBodyBytes() int64 {
	limit := h.cfg.Limits.MaxChars
	if limit <= 0 {
		limit = 1 << 20
	}
	// room for JSON escaping
	return int64(limit)*6 + 1024
}

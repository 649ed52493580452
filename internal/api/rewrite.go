package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/zombar/humanscore/internal/analyzer"
	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/models"
	"github.com/zombar/humanscore/internal/report"
	"github.com/zombar/humanscore/internal/rewrite"
)

// handleSuggestions returns rule-based rewrite ideas for one sentence
func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sentence string              `json:"sentence"`
		Flag     models.FlagCategory `json:"flag"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes())).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Sentence) == "" {
		respondError(w, "Sentence field is required", http.StatusBadRequest)
		return
	}
	if !req.Flag.Valid() {
		respondError(w, "Unknown flag "+string(req.Flag), http.StatusBadRequest)
		return
	}

	respondJSON(w, analyzer.RewriteSuggestions(req.Sentence, req.Flag), http.StatusOK)
}

// handleRewrite rewrites text in a style through the configured backend
func (h *Handler) handleRewrite(w http.ResponseWriter, r *http.Request) {
	if !h.rewriter.Available() {
		respondError(w, "Rewriting is not configured", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Text  string `json:"text"`
		Style string `json:"style"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodyBytes())).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}
	if max := h.cfg.Limits.MaxChars; max > 0 && len(req.Text) > max {
		respondError(w, "Text exceeds the character limit", http.StatusBadRequest)
		return
	}
	style, err := rewrite.ParseStyle(req.Style)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.URL.Query().Get("async") == "true" {
		if h.queue == nil {
			respondError(w, "Async rewriting is not configured", http.StatusServiceUnavailable)
			return
		}
		jobID, err := h.queue.EnqueueRewrite(r.Context(), req.Text, string(style))
		if err != nil {
			h.serverError(w, r, http.StatusInternalServerError, "Failed to enqueue rewrite", err)
			return
		}
		respondJSON(w, map[string]string{"job_id": jobID, "status": "queued"}, http.StatusAccepted)
		return
	}

	out, err := h.rewriter.Rewrite(r.Context(), req.Text, style)
	if err != nil {
		if errors.Is(err, rewrite.ErrEmptyText) {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.serverError(w, r, http.StatusBadGateway, "Rewrite backend failed", err)
		return
	}

	respondJSON(w, map[string]string{
		"rewrite": out,
		"style":   string(style),
		"backend": h.rewriter.Backend(),
	}, http.StatusOK)
}

// handleUsage reports the caller's plan and scan count
func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	user := userFromRequest(r)

	planKey, used := config.DefaultPlan, 0
	if h.store != nil {
		u, err := h.store.GetOrCreateUser(r.Context(), user, config.DefaultPlan)
		if err != nil {
			h.serverError(w, r, http.StatusInternalServerError, "Failed to load user", err)
			return
		}
		planKey, used = u.Plan, u.ScansUsed
	}
	plan := h.cfg.Plan(planKey)

	respondJSON(w, map[string]any{
		"user":           user,
		"plan":           plan.Name,
		"scans_used":     used,
		"scans_limit":    plan.ScansLimit,
		"docx_export":    plan.DocxExport || user == DemoUser || h.store == nil,
		"quota_enforced": h.store != nil,
	}, http.StatusOK)
}

type catalogEntry struct {
	Flag models.FlagCategory `json:"flag"`
	models.SuggestionEntry
}

// handleCatalog lists the flag categories with their coaching text, the
// boilerplate phrases, the rewrite styles and the export formats
func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	flags := make([]catalogEntry, 0, len(models.AllFlags))
	for _, f := range models.AllFlags {
		flags = append(flags, catalogEntry{Flag: f, SuggestionEntry: analyzer.SuggestionFor(f)})
	}

	formats := []report.Format{}
	for _, f := range report.Formats() {
		if f != report.FormatTerminal {
			formats = append(formats, f)
		}
	}

	respondJSON(w, map[string]any{
		"flags":               flags,
		"boilerplate_phrases": analyzer.BoilerplatePhrases(),
		"rewrite_styles":      rewrite.Styles(),
		"export_formats":      formats,
	}, http.StatusOK)
}

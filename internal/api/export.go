package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/report"
)

// handleExport renders the caller's most recent analysis as a download
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(report.FormatJSON)
	}
	format, err := report.ParseFormat(name)
	if err != nil || format == report.FormatTerminal {
		respondError(w, fmt.Sprintf("Unsupported export format %q", name), http.StatusBadRequest)
		return
	}

	user := userFromRequest(r)
	result, ok := h.results.latest(user)
	if !ok {
		respondError(w, "No analysis to export - analyze some text first", http.StatusNotFound)
		return
	}

	if format == report.FormatDOCX {
		allowed, err := h.docxAllowed(r, user)
		if err != nil {
			h.serverError(w, r, http.StatusInternalServerError, "Failed to load user", err)
			return
		}
		if !allowed {
			respondError(w, "DOCX export is a Pro feature", http.StatusForbidden)
			return
		}
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, format, result, report.Options{Generated: time.Now()}); err != nil {
		h.serverError(w, r, http.StatusInternalServerError, "Failed to render report", err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// docxAllowed gates DOCX export on the user's plan. Without a usage store
// plans are not enforced.
func (h *Handler) docxAllowed(r *http.Request, user string) (bool, error) {
	if user == DemoUser || h.store == nil {
		return true, nil
	}
	u, err := h.store.GetOrCreateUser(r.Context(), user, config.DefaultPlan)
	if err != nil {
		return false, err
	}
	return h.cfg.Plan(u.Plan).DocxExport, nil
}

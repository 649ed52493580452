// Package rewrite turns text plus a style into rewritten text by calling a
// generative backend. It holds no state of its own beyond the prompts.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/zombar/humanscore/pkg/metrics"
)

var (
	// ErrUnknownStyle is returned for a style name outside Styles()
	ErrUnknownStyle = errors.New("unknown rewrite style")
	// ErrEmptyText is returned when there is nothing to rewrite
	ErrEmptyText = errors.New("text is empty")
	// ErrNoBackend is returned when no rewrite backend is configured
	ErrNoBackend = errors.New("no rewrite backend configured")
)

// Style selects the rewrite directive
type Style string

const (
	StyleCasual       Style = "casual"
	StyleProfessional Style = "professional"
	StyleAcademic     Style = "academic"
	StyleCreative     Style = "creative"
	StyleHumanize     Style = "humanize"
)

var directives = map[Style]string{
	StyleCasual: "Rewrite the following text in a relaxed, conversational tone, as if talking to a friend. " +
		"Use contractions and everyday words. Keep the meaning and the facts.",
	StyleProfessional: "Rewrite the following text in a clear, confident professional tone suitable for a work email or report. " +
		"Be direct and drop filler. Keep the meaning and the facts.",
	StyleAcademic: "Rewrite the following text in a precise academic register. " +
		"Prefer exact terms over vague ones and hedge claims only where the evidence is uncertain. Keep the meaning and the facts.",
	StyleCreative: "Rewrite the following text with vivid, concrete imagery and an unexpected turn of phrase or two. " +
		"Keep the meaning and the facts.",
	StyleHumanize: "Rewrite the following text so it reads like a real person wrote it. " +
		"Vary sentence length, mixing short sentences with longer ones. Replace generic transitions such as " +
		"\"Furthermore\", \"Moreover\" and \"In conclusion\" with natural connectors or remove them. " +
		"Add a concrete detail or a personal observation where it fits. Keep the meaning and the facts.",
}

// Styles lists the supported styles in alphabetical order
func Styles() []Style {
	out := make([]Style, 0, len(directives))
	for s := range directives {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseStyle validates a style name. An empty name selects StyleHumanize.
func ParseStyle(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StyleHumanize, nil
	}
	s := Style(name)
	if _, ok := directives[s]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, name)
	}
	return s, nil
}

// Directive returns the instruction sent to the backend for s
func (s Style) Directive() string {
	return directives[s]
}

// Backend performs one prompt/response rewrite call
type Backend interface {
	Rewrite(ctx context.Context, text, directive string) (string, error)
}

// Service validates requests and forwards them to a Backend
type Service struct {
	backend Backend
	name    string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewService wraps backend. name identifies the backend in logs.
func NewService(backend Backend, name string, m *metrics.Metrics) *Service {
	return &Service{
		backend: backend,
		name:    name,
		logger:  slog.Default(),
		metrics: m,
	}
}

// Available reports whether a backend is configured
func (s *Service) Available() bool {
	return s != nil && s.backend != nil
}

// Backend returns the backend name
func (s *Service) Backend() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Rewrite rewrites text in the given style
func (s *Service) Rewrite(ctx context.Context, text string, style Style) (string, error) {
	if !s.Available() {
		return "", ErrNoBackend
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	directive := style.Directive()
	if directive == "" {
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, style)
	}

	out, err := s.backend.Rewrite(ctx, text, directive)
	if err != nil {
		s.metrics.RecordRewrite("error")
		s.logger.WarnContext(ctx, "rewrite failed", "backend", s.name, "style", style, "error", err)
		return "", fmt.Errorf("rewrite via %s failed: %w", s.name, err)
	}

	s.metrics.RecordRewrite("ok")
	s.logger.DebugContext(ctx, "rewrite complete", "backend", s.name, "style", style, "chars", len(out))
	return out, nil
}

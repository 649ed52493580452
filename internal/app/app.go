// Package app builds the shared runtime pieces of the server and the CLI
// from a Config: logger, model bundle, analyzer and rewrite service.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/zombar/humanscore/internal/analyzer"
	"github.com/zombar/humanscore/internal/config"
	"github.com/zombar/humanscore/internal/ollama"
	"github.com/zombar/humanscore/internal/rewrite"
	"github.com/zombar/humanscore/internal/scoring"
	"github.com/zombar/humanscore/pkg/metrics"
)

// ErrMissingAPIKey is returned when the anthropic backend has no key
var ErrMissingAPIKey = errors.New("anthropic rewrite backend needs an API key")

// NewLogger returns a slog logger writing to w in the configured format
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	if cfg.Logging.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// NewBundle connects the language model and classifier. A missing model
// URL is not an error; the bundle then reports sentinels.
func NewBundle(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*scoring.Bundle, error) {
	var (
		lm  scoring.LanguageModel
		clf scoring.Classifier
	)

	if cfg.Models.URL != "" {
		sidecar := scoring.NewHTTPModel(cfg.Models.URL, cfg.ModelTimeout(),
			scoring.WithRetry(uint64(max(cfg.Models.MaxRetries, 0)), 0))
		lm = sidecar
		if cfg.Models.Classifier == "http" {
			clf = sidecar
		}
	}

	if cfg.Models.Classifier == "ollama" {
		client, err := ollama.New(cfg.Ollama.URL, cfg.Ollama.Model)
		if err != nil {
			return nil, fmt.Errorf("ollama classifier: %w", err)
		}
		clf = client.WithTimeout(cfg.OllamaTimeout())
	}

	logger.Info("model bundle configured",
		"model_url", cfg.Models.URL,
		"language_model", lm != nil,
		"classifier", cfg.Models.Classifier,
		"classifier_ready", clf != nil,
	)

	return scoring.NewBundle(lm, clf,
		scoring.WithContextWindows(cfg.Models.LMWindow, cfg.Models.ClassifierWindow),
		scoring.WithLogger(logger),
		scoring.WithMetrics(m),
	), nil
}

// AnalyzerOptions maps the analysis section onto flag options
func AnalyzerOptions(cfg *config.Config) analyzer.Options {
	return analyzer.Options{
		EnableMixed:  cfg.Analysis.Mixed,
		SectionFlags: cfg.Analysis.SectionFlags,
	}
}

// NewAnalyzer builds an analyzer over bundle with the configured options
func NewAnalyzer(cfg *config.Config, bundle *scoring.Bundle, logger *slog.Logger, m *metrics.Metrics) *analyzer.Analyzer {
	return analyzer.New(bundle,
		analyzer.WithOptions(AnalyzerOptions(cfg)),
		analyzer.WithLogger(logger),
		analyzer.WithMetrics(m),
	)
}

// NewRewriter returns the configured rewrite service, or nil when
// rewriting is disabled
func NewRewriter(cfg *config.Config, m *metrics.Metrics) (*rewrite.Service, error) {
	switch cfg.Rewrite.Backend {
	case "ollama":
		client, err := ollama.New(cfg.Ollama.URL, cfg.Ollama.Model)
		if err != nil {
			return nil, fmt.Errorf("ollama rewriter: %w", err)
		}
		return rewrite.NewService(client.WithTimeout(cfg.OllamaTimeout()), "ollama", m), nil
	case "anthropic":
		if cfg.Anthropic.APIKey == "" {
			return nil, ErrMissingAPIKey
		}
		return rewrite.NewService(rewrite.NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model), "anthropic", m), nil
	case "", "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown rewrite backend %q", cfg.Rewrite.Backend)
	}
}

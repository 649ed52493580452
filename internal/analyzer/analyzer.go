// Package analyzer is the analysis core: it segments text, scores each
// sentence against the language model, assigns diagnostic flags and folds
// the overall metrics into a single human-likeness score.
package analyzer

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/humanscore/internal/models"
	"github.com/zombar/humanscore/internal/scoring"
	"github.com/zombar/humanscore/internal/textstats"
	"github.com/zombar/humanscore/pkg/metrics"
)

const tracerName = "github.com/zombar/humanscore/internal/analyzer"

// Options selects the optional flag categories. The zero value is the
// four-category baseline.
type Options struct {
	// EnableMixed reports the 30-50 perplexity band as MIXED instead of HUMAN
	EnableMixed bool `json:"enable_mixed"`
	// SectionFlags enables the LOW_DIVERSITY and UNIFORM_RHYTHM window pass
	SectionFlags bool `json:"section_flags"`
}

// Analyzer runs analyses against a shared model bundle
type Analyzer struct {
	bundle  *scoring.Bundle
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithOptions sets the flag options
func WithOptions(opts Options) Option {
	return func(a *Analyzer) {
		a.opts = opts
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records analysis counters in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// WithTracerProvider overrides the global tracer provider
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(a *Analyzer) {
		if tp != nil {
			a.tracer = tp.Tracer(tracerName)
		}
	}
}

// New creates an Analyzer. A nil bundle is valid; every model signal then
// falls back to its sentinel.
func New(bundle *scoring.Bundle, opts ...Option) *Analyzer {
	a := &Analyzer{
		bundle: bundle,
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Options returns the analyzer's flag options
func (a *Analyzer) Options() Options {
	return a.opts
}

// Analyze scores text with the baseline options
func Analyze(ctx context.Context, text string, bundle *scoring.Bundle) models.AnalysisResult {
	return New(bundle).Analyze(ctx, text)
}

// Analyze runs a complete analysis. It never fails: text without
// sentences yields a zero score with Error set, and unavailable models
// contribute their sentinel values.
func (a *Analyzer) Analyze(ctx context.Context, text string) models.AnalysisResult {
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "analyzer.analyze")
	defer span.End()
	span.SetAttributes(attribute.Int("text.length", len(text)))

	sentences := textstats.Sentences(text)
	if len(sentences) == 0 {
		span.SetAttributes(attribute.Int("sentences.count", 0))
		a.metrics.ObserveAnalysis("no_sentences", time.Since(start))
		a.logger.DebugContext(ctx, "analysis found no sentences", "chars", len(text))
		return models.AnalysisResult{
			Sentences: []models.SentenceRecord{},
			Error:     models.NoSentencesFound,
		}
	}

	result := models.AnalysisResult{
		Perplexity:       a.bundle.Perplexity(ctx, text),
		HumanProbability: a.bundle.HumanProbability(ctx, text),
		Burstiness:       textstats.Burstiness(text),
		LexicalDiversity: textstats.LexicalDiversity(text),
	}

	records := make([]models.SentenceRecord, 0, len(sentences))
	readability := make([]float64, 0, len(sentences))
	for _, sentence := range sentences {
		words := textstats.WordCount(sentence)
		if words < MinSentenceWords {
			continue
		}

		perp := a.bundle.Perplexity(ctx, sentence)
		grade := textstats.Readability(sentence)
		readability = append(readability, grade)

		records = append(records, models.SentenceRecord{
			Sentence:    sentence,
			Perplexity:  perp,
			WordCount:   words,
			Readability: grade,
			Flag:        ClassifyFlag(perp, sentence, a.opts.EnableMixed),
		})
	}

	if a.opts.SectionFlags {
		applySectionFlags(records)
	}
	for i := range records {
		records[i].Suggestion = SuggestionFor(records[i].Flag)
		a.metrics.RecordFlag(string(records[i].Flag))
	}

	if len(readability) > 1 {
		_, result.ReadabilityStd = textstats.MeanStd(readability)
	}

	result.HumanScore, result.SubScores = ComposeScore(
		result.Perplexity, result.Burstiness, result.LexicalDiversity, result.ReadabilityStd)
	result.Sentences = records

	span.SetAttributes(
		attribute.Int("sentences.count", len(sentences)),
		attribute.Int("sentences.retained", len(records)),
		attribute.Float64("score.human", result.HumanScore),
	)
	a.metrics.ObserveAnalysis("ok", time.Since(start))
	a.logger.DebugContext(ctx, "analysis complete",
		"sentences", len(records),
		"human_score", result.HumanScore,
		"perplexity", result.Perplexity,
		"duration", time.Since(start),
	)

	return result
}

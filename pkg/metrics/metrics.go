// Package metrics holds the Prometheus collectors exported by humanscore.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the analysis collectors. A nil *Metrics is valid and
// records nothing, so callers never need to guard.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	SentenceFlags    *prometheus.CounterVec
	ModelFallbacks   *prometheus.CounterVec
	RewritesTotal    *prometheus.CounterVec
}

// New registers the analysis collectors under namespace on reg.
// A nil reg uses the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Number of analyses by outcome.",
		}, []string{"status"}),
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a complete analysis, model calls included.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		SentenceFlags: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentence_flags_total",
			Help:      "Sentences flagged per category.",
		}, []string{"flag"}),
		ModelFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_fallbacks_total",
			Help:      "Model calls that degraded to a sentinel value.",
		}, []string{"signal"}),
		RewritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewrites_total",
			Help:      "Rewrite requests by outcome.",
		}, []string{"status"}),
	}
}

// ObserveAnalysis records one finished analysis
func (m *Metrics) ObserveAnalysis(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(status).Inc()
	m.AnalysisDuration.Observe(d.Seconds())
}

// RecordFlag counts one flagged sentence
func (m *Metrics) RecordFlag(flag string) {
	if m == nil {
		return
	}
	m.SentenceFlags.WithLabelValues(flag).Inc()
}

// RecordFallback counts one sentinel substitution for signal
// ("perplexity" or "human_probability")
func (m *Metrics) RecordFallback(signal string) {
	if m == nil {
		return
	}
	m.ModelFallbacks.WithLabelValues(signal).Inc()
}

// RecordRewrite counts one rewrite request
func (m *Metrics) RecordRewrite(status string) {
	if m == nil {
		return
	}
	m.RewritesTotal.WithLabelValues(status).Inc()
}

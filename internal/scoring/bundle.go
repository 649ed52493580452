// Package scoring adapts external scoring models (a causal language model
// for perplexity and an AI/human classifier) into the two total functions
// the analyzer consumes. Backend failures never reach the caller; they
// degrade to fixed sentinel values.
package scoring

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zombar/humanscore/pkg/metrics"
)

const (
	// PerplexitySentinel stands in for perplexity when it is undefined or
	// the language model is unavailable.
	PerplexitySentinel = 1000.0
	// HumanProbabilitySentinel is the neutral prior used when the
	// classifier is unavailable.
	HumanProbabilitySentinel = 50.0

	DefaultLMWindow         = 1024
	DefaultClassifierWindow = 512
)

// LanguageModel computes the perplexity of a text
type LanguageModel interface {
	Perplexity(ctx context.Context, text string) (float64, error)
}

// Classifier returns the probability in [0,1] that a text is human-written
type Classifier interface {
	HumanProbability(ctx context.Context, text string) (float64, error)
}

// Bundle holds the loaded models. Build it once at startup and share it;
// it is safe for concurrent use when its backends are.
type Bundle struct {
	lm        LanguageModel
	clf       Classifier
	lmWindow  int
	clfWindow int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Bundle
type Option func(*Bundle)

// WithContextWindows sets the token limits inputs are truncated to
func WithContextWindows(lm, classifier int) Option {
	return func(b *Bundle) {
		if lm > 0 {
			b.lmWindow = lm
		}
		if classifier > 0 {
			b.clfWindow = classifier
		}
	}
}

// WithLogger sets the logger used for fallback warnings
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundle) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics counts fallbacks in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bundle) {
		b.metrics = m
	}
}

// NewBundle creates a bundle. Either model may be nil.
func NewBundle(lm LanguageModel, clf Classifier, opts ...Option) *Bundle {
	b := &Bundle{
		lm:        lm,
		clf:       clf,
		lmWindow:  DefaultLMWindow,
		clfWindow: DefaultClassifierWindow,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// HasLanguageModel reports whether perplexity comes from a real model
func (b *Bundle) HasLanguageModel() bool {
	return b != nil && b.lm != nil
}

// HasClassifier reports whether human probability comes from a real model
func (b *Bundle) HasClassifier() bool {
	return b != nil && b.clf != nil
}

// Perplexity returns the language model perplexity of text, truncated to
// the model window. It returns PerplexitySentinel when the model is
// missing, the text has fewer than two tokens, or the backend fails.
func (b *Bundle) Perplexity(ctx context.Context, text string) float64 {
	if !b.HasLanguageModel() {
		return PerplexitySentinel
	}
	text, tokens := truncateTokens(text, b.lmWindow)
	if tokens < 2 {
		return PerplexitySentinel
	}

	perp, err := b.lm.Perplexity(ctx, text)
	if err != nil {
		b.fallback(ctx, "perplexity", "language model call failed", err)
		return PerplexitySentinel
	}
	if math.IsNaN(perp) || math.IsInf(perp, 0) || perp < 0 {
		b.fallback(ctx, "perplexity", "language model returned invalid perplexity", nil, slog.Float64("value", perp))
		return PerplexitySentinel
	}
	return perp
}

// HumanProbability returns the classifier's human probability scaled to
// [0,100], or HumanProbabilitySentinel when the classifier is missing or
// fails.
func (b *Bundle) HumanProbability(ctx context.Context, text string) float64 {
	if !b.HasClassifier() {
		return HumanProbabilitySentinel
	}
	text, _ = truncateTokens(text, b.clfWindow)

	p, err := b.clf.HumanProbability(ctx, text)
	if err != nil {
		b.fallback(ctx, "human_probability", "classifier call failed", err)
		return HumanProbabilitySentinel
	}
	if math.IsNaN(p) {
		b.fallback(ctx, "human_probability", "classifier returned NaN", nil)
		return HumanProbabilitySentinel
	}
	return math.Max(0, math.Min(p*100, 100))
}

func (b *Bundle) fallback(ctx context.Context, signal, msg string, err error, attrs ...slog.Attr) {
	attrs = append(attrs, slog.String("signal", signal))
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	b.logger.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
	b.metrics.RecordFallback(signal)
}

// charsPerToken bounds the bytes kept per window token. Subword
// tokenizers average about four characters per token on English text, so
// the byte budget holds the window even when words split into many tokens.
const charsPerToken = 4

// truncateTokens keeps the prefix of text spanning at most limit
// whitespace-delimited tokens and at most limit*charsPerToken bytes, and
// reports how many tokens it kept. The prefix is a verbatim substring of
// text that ends on a word boundary unless a single word exceeds the budget.
func truncateTokens(text string, limit int) (string, int) {
	if budget := limit * charsPerToken; len(text) > budget {
		text = cutToBudget(text, budget)
	}

	tokens := 0
	inToken := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			inToken = false
			continue
		}
		if !inToken {
			if tokens == limit {
				return strings.TrimRightFunc(text[:i], unicode.IsSpace), tokens
			}
			tokens++
			inToken = true
		}
	}
	return text, tokens
}

// cutToBudget shortens text to at most budget bytes, backing off to the
// last whitespace so no word is split. len(text) must exceed budget.
func cutToBudget(text string, budget int) string {
	cut := budget
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	if r, _ := utf8.DecodeRuneInString(text[cut:]); !unicode.IsSpace(r) {
		if ws := strings.LastIndexFunc(text[:cut], unicode.IsSpace); ws >= 0 {
			cut = ws
		}
	}
	return strings.TrimRightFunc(text[:cut], unicode.IsSpace)
}

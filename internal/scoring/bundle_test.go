package scoring

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/humanscore/pkg/metrics"
)

type stubLM struct {
	perp  float64
	err   error
	calls []string
}

func (s *stubLM) Perplexity(_ context.Context, text string) (float64, error) {
	s.calls = append(s.calls, text)
	return s.perp, s.err
}

type stubClassifier struct {
	p     float64
	err   error
	calls []string
}

func (s *stubClassifier) HumanProbability(_ context.Context, text string) (float64, error) {
	s.calls = append(s.calls, text)
	return s.p, s.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestNilBundleUsesSentinels(t *testing.T) {
	var b *Bundle
	ctx := context.Background()

	assert.Equal(t, PerplexitySentinel, b.Perplexity(ctx, "some words here"))
	assert.Equal(t, HumanProbabilitySentinel, b.HumanProbability(ctx, "some words here"))
	assert.False(t, b.HasLanguageModel())
	assert.False(t, b.HasClassifier())
}

func TestEmptyBundleUsesSentinels(t *testing.T) {
	b := NewBundle(nil, nil)
	ctx := context.Background()

	assert.Equal(t, PerplexitySentinel, b.Perplexity(ctx, "some words here"))
	assert.Equal(t, HumanProbabilitySentinel, b.HumanProbability(ctx, "some words here"))
}

func TestPerplexity(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		lm       *stubLM
		expected float64
		called   bool
	}{
		{"normal", "this is a sentence", &stubLM{perp: 42.5}, 42.5, true},
		{"single token", "hello", &stubLM{perp: 42.5}, PerplexitySentinel, false},
		{"empty", "", &stubLM{perp: 42.5}, PerplexitySentinel, false},
		{"backend error", "this is a sentence", &stubLM{err: errors.New("oom")}, PerplexitySentinel, true},
		{"nan", "this is a sentence", &stubLM{perp: math.NaN()}, PerplexitySentinel, true},
		{"infinite", "this is a sentence", &stubLM{perp: math.Inf(1)}, PerplexitySentinel, true},
		{"negative", "this is a sentence", &stubLM{perp: -1}, PerplexitySentinel, true},
		{"zero is valid", "this is a sentence", &stubLM{perp: 0}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBundle(tt.lm, nil, WithLogger(quietLogger()))
			got := b.Perplexity(context.Background(), tt.text)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.called, len(tt.lm.calls) > 0)
		})
	}
}

func TestHumanProbability(t *testing.T) {
	tests := []struct {
		name     string
		clf      *stubClassifier
		expected float64
	}{
		{"scaled", &stubClassifier{p: 0.73}, 73},
		{"zero", &stubClassifier{p: 0}, 0},
		{"above one clamps", &stubClassifier{p: 1.7}, 100},
		{"negative clamps", &stubClassifier{p: -0.2}, 0},
		{"nan", &stubClassifier{p: math.NaN()}, HumanProbabilitySentinel},
		{"error", &stubClassifier{err: errors.New("timeout")}, HumanProbabilitySentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBundle(nil, tt.clf, WithLogger(quietLogger()))
			got := b.HumanProbability(context.Background(), "Any text will do here.")
			assert.InDelta(t, tt.expected, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		})
	}
}

func TestTruncationToContextWindow(t *testing.T) {
	lm := &stubLM{perp: 10}
	clf := &stubClassifier{p: 0.5}
	b := NewBundle(lm, clf, WithContextWindows(4, 2))

	b.Perplexity(context.Background(), "a b  c\td e f")
	b.HumanProbability(context.Background(), "one two three four")

	assert.Equal(t, []string{"a b  c\td"}, lm.calls)
	assert.Equal(t, []string{"one two"}, clf.calls)
}

func TestTruncateTokens(t *testing.T) {
	tests := []struct {
		text     string
		limit    int
		expected string
		tokens   int
	}{
		{"a b c", 5, "a b c", 3},
		{"a b c", 2, "a b", 2},
		{"  lead  trail  ", 2, "  lead", 1},
		{"", 3, "", 0},
		{"ünï cödé", 2, "ünï", 1},
		// byte budget binds before the word count
		{"alpha beta gamma", 3, "alpha beta", 2},
		{"supercalifragilistic", 2, "supercal", 1},
		{"ab ünïcödé", 2, "ab", 1},
	}

	for _, tt := range tests {
		got, n := truncateTokens(tt.text, tt.limit)
		assert.Equal(t, tt.expected, got, "text %q", tt.text)
		assert.Equal(t, tt.tokens, n, "text %q", tt.text)
	}
}

func TestLongInputIsTruncatedNotRejected(t *testing.T) {
	lm := &stubLM{perp: 33}
	b := NewBundle(lm, nil)

	long := strings.Repeat("word ", 5000)
	assert.Equal(t, 33.0, b.Perplexity(context.Background(), long))
	assert.LessOrEqual(t, len(lm.calls[0]), DefaultLMWindow*charsPerToken)
	assert.Len(t, strings.Fields(lm.calls[0]), DefaultLMWindow*charsPerToken/len("word "))
}

func TestLongWordsStayWithinContextWindow(t *testing.T) {
	lm := &stubLM{perp: 40}
	clf := &stubClassifier{p: 0.6}
	b := NewBundle(lm, clf)

	// each word is many subword tokens, so a word count alone would let
	// this through untruncated
	long := strings.Repeat("internationalization-counterrevolutionaries, ", 1000)
	assert.Equal(t, 40.0, b.Perplexity(context.Background(), long))
	assert.InDelta(t, 60.0, b.HumanProbability(context.Background(), long), 1e-9)

	require.Len(t, lm.calls, 1)
	require.Len(t, clf.calls, 1)
	assert.LessOrEqual(t, len(lm.calls[0]), DefaultLMWindow*charsPerToken)
	assert.LessOrEqual(t, len(clf.calls[0]), DefaultClassifierWindow*charsPerToken)
	assert.True(t, strings.HasPrefix(long, lm.calls[0]))
	assert.True(t, strings.HasSuffix(lm.calls[0], ","), "cut on a word boundary")
	assert.Less(t, len(strings.Fields(lm.calls[0])), 1000)
}

func TestFallbacksAreLoggedAndCounted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := metrics.New("test", prometheus.NewRegistry())

	b := NewBundle(&stubLM{err: errors.New("boom")}, &stubClassifier{err: errors.New("bang")},
		WithLogger(logger), WithMetrics(m))

	b.Perplexity(context.Background(), "two tokens")
	b.HumanProbability(context.Background(), "two tokens")
	b.HumanProbability(context.Background(), "two tokens")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelFallbacks.WithLabelValues("perplexity")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelFallbacks.WithLabelValues("human_probability")))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "boom")
}

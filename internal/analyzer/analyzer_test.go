package analyzer

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"github.com/zombar/humanscore/internal/models"
	"github.com/zombar/humanscore/internal/scoring"
	"github.com/zombar/humanscore/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fixedLM returns a per-sentence perplexity, or def for unknown input
type fixedLM struct {
	perp map[string]float64
	def  float64
}

func (f fixedLM) Perplexity(_ context.Context, text string) (float64, error) {
	if p, ok := f.perp[text]; ok {
		return p, nil
	}
	return f.def, nil
}

type fixedClassifier float64

func (f fixedClassifier) HumanProbability(context.Context, string) (float64, error) {
	return float64(f), nil
}

func newBundle(def float64, perp map[string]float64) *scoring.Bundle {
	return scoring.NewBundle(fixedLM{perp: perp, def: def}, fixedClassifier(0.8))
}

func TestClassifyFlag(t *testing.T) {
	tests := []struct {
		name       string
		perplexity float64
		sentence   string
		mixed      bool
		expected   models.FlagCategory
	}{
		{"very predictable", 5, "The weather is nice today.", false, models.FlagAIVeryPredictable},
		{"boilerplate beats very predictable", 5, "Furthermore, it saves time.", false, models.FlagBoilerplate},
		{"predictable", 20, "The weather is nice today.", false, models.FlagAIPredictable},
		{"lower bound of predictable band", 15, "The weather is nice today.", false, models.FlagAIPredictable},
		{"mid band without mixed", 40, "The weather is nice today.", false, models.FlagHuman},
		{"mid band with mixed", 40, "The weather is nice today.", true, models.FlagMixed},
		{"lower bound of mid band", 30, "The weather is nice today.", true, models.FlagMixed},
		{"human", 80, "The weather is nice today.", true, models.FlagHuman},
		{"human-min is human", 50, "The weather is nice today.", true, models.FlagHuman},
		{"sentinel perplexity", scoring.PerplexitySentinel, "The weather is nice today.", false, models.FlagHuman},
		{"boilerplate beats human", 200, "In conclusion we won.", false, models.FlagBoilerplate},
		{"case-insensitive", 200, "and thus it ended.", false, models.FlagBoilerplate},
		{"mid-sentence match", 200, "It is, moreover, cheaper.", false, models.FlagBoilerplate},
		{"multi-word phrase", 200, "it is imperative that we act.", false, models.FlagBoilerplate},
		{"no match inside a word", 200, "Her enthusiasm was contagious.", false, models.FlagHuman},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyFlag(tt.perplexity, tt.sentence, tt.mixed)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestComposeScore(t *testing.T) {
	tests := []struct {
		name        string
		perp        float64
		burst       float64
		diversity   float64
		std         float64
		expected    float64
		expectedSub models.SubScores
	}{
		{
			name: "balanced", perp: 50, burst: 0.5, diversity: 0.6, std: 2,
			expected:    67.0,
			expectedSub: models.SubScores{Perplexity: 60, Burstiness: 60, Diversity: 100, ReadabilityUniformity: 50},
		},
		{
			name: "predictable and uniform", perp: 15, burst: 0, diversity: 0.225, std: 0,
			expected:    11.0,
			expectedSub: models.SubScores{Perplexity: 15, Burstiness: 0, Diversity: 25, ReadabilityUniformity: 0},
		},
		{
			name: "mid perplexity band", perp: 40, burst: 0.25, diversity: 0.45, std: 4,
			expected:    47.0,
			expectedSub: models.SubScores{Perplexity: 45, Burstiness: 30, Diversity: 50, ReadabilityUniformity: 100},
		},
		{
			name: "sentinel perplexity saturates", perp: scoring.PerplexitySentinel, burst: 0, diversity: 0, std: 0,
			expected:    40.0,
			expectedSub: models.SubScores{Perplexity: 100},
		},
		{
			name: "everything maxed", perp: 500, burst: 10, diversity: 1, std: 100,
			expected:    100.0,
			expectedSub: models.SubScores{Perplexity: 100, Burstiness: 100, Diversity: 100, ReadabilityUniformity: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, sub := ComposeScore(tt.perp, tt.burst, tt.diversity, tt.std)
			assert.InDelta(t, tt.expected, score, 1e-9)
			assert.InDelta(t, tt.expectedSub.Perplexity, sub.Perplexity, 1e-9)
			assert.InDelta(t, tt.expectedSub.Burstiness, sub.Burstiness, 1e-9)
			assert.InDelta(t, tt.expectedSub.Diversity, sub.Diversity, 1e-9)
			assert.InDelta(t, tt.expectedSub.ReadabilityUniformity, sub.ReadabilityUniformity, 1e-9)
		})
	}
}

func TestComposeScoreAlwaysBounded(t *testing.T) {
	values := []float64{0, -1, -1e9, 0.3, 1, 15, 49.99, 1e9, math.NaN(), math.Inf(1), math.Inf(-1)}

	for _, p := range values {
		for _, b := range values {
			for _, d := range values {
				for _, s := range values {
					score, sub := ComposeScore(p, b, d, s)
					require.False(t, math.IsNaN(score), "NaN for %v %v %v %v", p, b, d, s)
					require.GreaterOrEqual(t, score, 0.0)
					require.LessOrEqual(t, score, 100.0)
					require.Equal(t, math.Round(score*10)/10, score, "not rounded to one decimal")
					for _, v := range []float64{sub.Perplexity, sub.Burstiness, sub.Diversity, sub.ReadabilityUniformity} {
						require.GreaterOrEqual(t, v, 0.0)
						require.LessOrEqual(t, v, 100.0)
					}
				}
			}
		}
	}
}

func TestReadabilityUniformityRewardsVariance(t *testing.T) {
	_, uniform := ComposeScore(60, 0.3, 0.5, 0.2)
	_, varied := ComposeScore(60, 0.3, 0.5, 3.5)
	assert.Less(t, uniform.ReadabilityUniformity, varied.ReadabilityUniformity)
}

func TestAnalyzeScenario(t *testing.T) {
	text := "AI is useful. Furthermore, it saves time. I love it!"
	bundle := newBundle(80, map[string]float64{
		"Furthermore, it saves time.": 5,
		"I love it!":                  12,
	})

	result := Analyze(context.Background(), text, bundle)

	require.Empty(t, result.Error)
	require.Len(t, result.Sentences, 3)

	assert.Equal(t, "AI is useful.", result.Sentences[0].Sentence)
	assert.Equal(t, models.FlagHuman, result.Sentences[0].Flag)

	assert.Equal(t, "Furthermore, it saves time.", result.Sentences[1].Sentence)
	assert.Equal(t, models.FlagBoilerplate, result.Sentences[1].Flag)
	assert.Equal(t, 5.0, result.Sentences[1].Perplexity)

	assert.Equal(t, "I love it!", result.Sentences[2].Sentence)
	assert.Equal(t, 3, result.Sentences[2].WordCount)
	assert.Equal(t, models.FlagAIVeryPredictable, result.Sentences[2].Flag)

	for _, s := range result.Sentences {
		assert.Equal(t, SuggestionFor(s.Flag), s.Suggestion)
	}

	assert.Equal(t, 80.0, result.Perplexity)
	assert.InDelta(t, 80.0, result.HumanProbability, 1e-9)
	assert.GreaterOrEqual(t, result.HumanScore, 0.0)
	assert.LessOrEqual(t, result.HumanScore, 100.0)
}

func TestAnalyzeSkipsShortSentences(t *testing.T) {
	text := "Yes. This sentence is long enough to keep. No way!"
	result := Analyze(context.Background(), text, newBundle(80, nil))

	require.Len(t, result.Sentences, 1)
	assert.Equal(t, "This sentence is long enough to keep.", result.Sentences[0].Sentence)
	assert.Equal(t, 0.0, result.ReadabilityStd)
}

func TestAnalyzeDegenerateInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t\n"} {
		result := Analyze(context.Background(), text, newBundle(80, nil))

		assert.True(t, result.NoSentences())
		assert.Equal(t, models.NoSentencesFound, result.Error)
		assert.Equal(t, 0.0, result.HumanScore)
		assert.NotNil(t, result.Sentences)
		assert.Empty(t, result.Sentences)
	}
}

func TestAnalyzeWithoutModels(t *testing.T) {
	text := "The committee reviewed every proposal in detail. Nobody expected the vote to end in a tie."
	result := Analyze(context.Background(), text, nil)

	assert.Equal(t, scoring.PerplexitySentinel, result.Perplexity)
	assert.Equal(t, scoring.HumanProbabilitySentinel, result.HumanProbability)
	require.Len(t, result.Sentences, 2)
	for _, s := range result.Sentences {
		assert.Equal(t, scoring.PerplexitySentinel, s.Perplexity)
		assert.Equal(t, models.FlagHuman, s.Flag)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	text := "Remote work changed how teams communicate. Meetings got shorter! " +
		"Moreover, asynchronous updates replaced many status calls. I still miss the coffee chats."
	a := New(newBundle(35, map[string]float64{"Meetings got shorter!": 9}), WithOptions(Options{EnableMixed: true}))

	first := a.Analyze(context.Background(), text)
	second := a.Analyze(context.Background(), text)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated analysis differs (-first +second):\n%s", diff)
	}
}

func TestAnalyzeReadabilityUniformityScenario(t *testing.T) {
	uniform := strings.Repeat("The dog ran to the park and sat in the warm sun. ", 3)
	varied := "The dog ran to the park and sat in the warm sun. " +
		"Institutional considerations regarding organizational accountability necessitate comprehensive evaluation methodologies across international regulatory environments. " +
		"I love it a lot."

	bundle := newBundle(60, nil)
	u := Analyze(context.Background(), uniform, bundle)
	v := Analyze(context.Background(), varied, bundle)

	require.Len(t, u.Sentences, 3)
	require.Len(t, v.Sentences, 3)
	assert.Equal(t, 0.0, u.ReadabilityStd)
	assert.Equal(t, 0.0, u.SubScores.ReadabilityUniformity)
	assert.Greater(t, v.ReadabilityStd, u.ReadabilityStd)
	assert.Greater(t, v.SubScores.ReadabilityUniformity, u.SubScores.ReadabilityUniformity)
}

func TestAnalyzeMixedOption(t *testing.T) {
	text := "The results were better than anyone hoped for."

	baseline := Analyze(context.Background(), text, newBundle(40, nil))
	require.Len(t, baseline.Sentences, 1)
	assert.Equal(t, models.FlagHuman, baseline.Sentences[0].Flag)

	mixed := New(newBundle(40, nil), WithOptions(Options{EnableMixed: true})).Analyze(context.Background(), text)
	require.Len(t, mixed.Sentences, 1)
	assert.Equal(t, models.FlagMixed, mixed.Sentences[0].Flag)
	assert.Equal(t, SuggestionFor(models.FlagMixed), mixed.Sentences[0].Suggestion)
}

func TestAnalyzeSectionFlags(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []models.FlagCategory
	}{
		{
			name:     "repeated vocabulary",
			text:     "We like the plan. We like the plan. We like the plan.",
			expected: []models.FlagCategory{models.FlagLowDiversity, models.FlagLowDiversity, models.FlagLowDiversity},
		},
		{
			name:     "uniform rhythm",
			text:     "Rain fell across the valley. Children laughed near old fences. Bakers opened shops before dawn.",
			expected: []models.FlagCategory{models.FlagUniformRhythm, models.FlagUniformRhythm, models.FlagUniformRhythm},
		},
		{
			name: "varied section stays human",
			text: "Rain fell hard. Children laughed near the old wooden fences by the school. " +
				"Bakers in our small town opened their shops long before anyone else was awake and brewing coffee.",
			expected: []models.FlagCategory{models.FlagHuman, models.FlagHuman, models.FlagHuman},
		},
		{
			name:     "boilerplate is kept",
			text:     "We like the plan. Moreover, we like the plan. We like the plan.",
			expected: []models.FlagCategory{models.FlagLowDiversity, models.FlagBoilerplate, models.FlagLowDiversity},
		},
		{
			name:     "fewer sentences than a window",
			text:     "We like the plan. We like the plan.",
			expected: []models.FlagCategory{models.FlagHuman, models.FlagHuman},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(newBundle(80, nil), WithOptions(Options{SectionFlags: true}))
			result := a.Analyze(context.Background(), tt.text)

			got := make([]models.FlagCategory, len(result.Sentences))
			for i, s := range result.Sentences {
				got[i] = s.Flag
				assert.Equal(t, SuggestionFor(s.Flag), s.Suggestion)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestAnalyzeSectionFlagsKeepPerplexityFlags(t *testing.T) {
	text := "We like the plan. We like the plan. We like the plan."
	a := New(newBundle(10, nil), WithOptions(Options{SectionFlags: true}))

	for _, s := range a.Analyze(context.Background(), text).Sentences {
		assert.Equal(t, models.FlagAIVeryPredictable, s.Flag)
	}
}

func TestAnalyzeRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	a := New(newBundle(80, nil), WithTracerProvider(tp))
	result := a.Analyze(context.Background(), "AI is useful. Furthermore, it saves time. I love it!")

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "analyzer.analyze", spans[0].Name)

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(3), attrs["sentences.count"].AsInt64())
	assert.Equal(t, int64(3), attrs["sentences.retained"].AsInt64())
	assert.Equal(t, result.HumanScore, attrs["score.human"].AsFloat64())
}

func TestAnalyzeRecordsMetrics(t *testing.T) {
	m := metrics.New("test", prometheus.NewRegistry())
	a := New(newBundle(80, nil), WithMetrics(m))

	a.Analyze(context.Background(), "AI is useful. Furthermore, it saves time. I love it!")
	a.Analyze(context.Background(), "")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("no_sentences")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SentenceFlags.WithLabelValues("HUMAN")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SentenceFlags.WithLabelValues("BOILERPLATE")))
}

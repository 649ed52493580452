package analyzer

import (
	"math"

	"github.com/zombar/humanscore/internal/models"
)

// Sub-score weights; they sum to 1.
const (
	weightPerplexity  = 0.40
	weightBurstiness  = 0.30
	weightDiversity   = 0.20
	weightReadability = 0.10
)

// ComposeScore combines the overall metrics into the 0-100 human score,
// rounded to one decimal, and returns the clamped sub-scores it used.
// Non-finite inputs count as 0.
func ComposeScore(perplexity, burstiness, diversity, readabilityStd float64) (float64, models.SubScores) {
	sub := models.SubScores{
		Perplexity:            clampScore(perplexityScore(finite(perplexity))),
		Burstiness:            clampScore(finite(burstiness) * 120),
		Diversity:             clampScore(diversityScore(finite(diversity))),
		ReadabilityUniformity: clampScore(finite(readabilityStd) / ReadabilityUniformityThreshold * 100),
	}

	total := weightPerplexity*sub.Perplexity +
		weightBurstiness*sub.Burstiness +
		weightDiversity*sub.Diversity +
		weightReadability*sub.ReadabilityUniformity

	return clampScore(math.Round(total*10) / 10), sub
}

// perplexityScore ramps 0-30 below AIPerpLow, 30-60 up to HumanPerpMin and
// then climbs 0.4 points per unit of perplexity.
func perplexityScore(p float64) float64 {
	switch {
	case p < AIPerpLow:
		return p / AIPerpLow * 30
	case p < HumanPerpMin:
		return 30 + (p-AIPerpLow)/(HumanPerpMin-AIPerpLow)*30
	default:
		return math.Min(60+(p-HumanPerpMin)*0.4, 100)
	}
}

func diversityScore(d float64) float64 {
	if d < LexicalDiversityMin {
		return d / LexicalDiversityMin * 50
	}
	return math.Min(50+(d-LexicalDiversityMin)/(LexicalDiversityGood-LexicalDiversityMin)*50, 100)
}

func clampScore(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

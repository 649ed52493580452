// Package textstats implements the lexical and structural text metrics used
// by the analyzer: burstiness, lexical diversity and readability grade, plus
// the sentence segmenter they share.
package textstats

import (
	"math"
)

// ReadabilitySentinel is returned when a grade cannot be computed reliably.
const ReadabilitySentinel = 50.0

// minReadabilityWords is the smallest sample the grade formula is trusted on.
const minReadabilityWords = 10

// Burstiness returns the coefficient of variation of sentence word counts.
// Fewer than two sentences carry no burstiness signal and yield 0.
func Burstiness(text string) float64 {
	parts := fragments(text)
	if len(parts) < 2 {
		return 0.0
	}

	lengths := make([]float64, len(parts))
	for i, p := range parts {
		lengths[i] = float64(WordCount(p))
	}

	mean, sd := MeanStd(lengths)
	if mean == 0 {
		return 0.0
	}
	return sd / mean
}

// LexicalDiversity returns distinct/total word tokens, in [0,1].
// It is not length-normalized: short texts score higher.
func LexicalDiversity(text string) float64 {
	words := Words(text)
	if len(words) == 0 {
		return 0.0
	}

	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return float64(len(unique)) / float64(len(words))
}

// Readability returns the Flesch-Kincaid grade level of text rounded to one
// decimal, or ReadabilitySentinel for samples under ten words or when the
// formula degenerates.
func Readability(text string) float64 {
	words := Words(text)
	if len(words) < minReadabilityWords {
		return ReadabilitySentinel
	}

	sentenceCount := len(fragments(text))
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	wordsPerSentence := float64(len(words)) / float64(sentenceCount)
	syllablesPerWord := float64(countSyllables(words)) / float64(len(words))

	grade := 0.39*wordsPerSentence + 11.8*syllablesPerWord - 15.59
	if math.IsNaN(grade) || math.IsInf(grade, 0) {
		return ReadabilitySentinel
	}
	return math.Round(grade*10) / 10
}

// MeanStd returns the mean and population standard deviation of values.
func MeanStd(values []float64) (mean, sd float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) == 1 {
		return mean, 0
	}
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}

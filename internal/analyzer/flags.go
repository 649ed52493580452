package analyzer

import (
	"strings"

	"github.com/zombar/humanscore/internal/models"
	"github.com/zombar/humanscore/internal/textstats"
)

// Thresholds shared by the flag classifier and the score aggregator.
const (
	AIPerpVeryLow                  = 15.0
	AIPerpLow                      = 30.0
	HumanPerpMin                   = 50.0
	HumanPerpGood                  = 100.0
	LexicalDiversityMin            = 0.45
	LexicalDiversityGood           = 0.60
	ReadabilityUniformityThreshold = 4.0
)

const (
	// MinSentenceWords is the shortest sentence that gets classified
	MinSentenceWords = 3

	sectionWindow   = 3
	uniformRhythmCV = 0.15
)

// ClassifyFlag assigns the category of a single sentence from its
// perplexity. The perplexity ladder is evaluated first and a boilerplate
// match then overrides whatever it produced. When mixed is false the
// 30-50 band is reported as HUMAN.
func ClassifyFlag(perplexity float64, sentence string, mixed bool) models.FlagCategory {
	flag := models.FlagHuman
	switch {
	case perplexity < AIPerpVeryLow:
		flag = models.FlagAIVeryPredictable
	case perplexity < AIPerpLow:
		flag = models.FlagAIPredictable
	case perplexity < HumanPerpMin && mixed:
		flag = models.FlagMixed
	}

	if IsBoilerplate(sentence) {
		flag = models.FlagBoilerplate
	}
	return flag
}

// applySectionFlags runs the multi-sentence pass over records in place.
// Each window of consecutive sentences is checked for repeated vocabulary
// first, then for uniform sentence length; only sentences still flagged
// HUMAN or MIXED are relabelled, so perplexity and boilerplate flags stand.
func applySectionFlags(records []models.SentenceRecord) {
	if len(records) < sectionWindow {
		return
	}

	for start := 0; start+sectionWindow <= len(records); start++ {
		window := records[start : start+sectionWindow]

		var flag models.FlagCategory
		switch {
		case windowDiversity(window) < LexicalDiversityMin:
			flag = models.FlagLowDiversity
		case windowLengthCV(window) < uniformRhythmCV:
			flag = models.FlagUniformRhythm
		default:
			continue
		}

		for i := range window {
			if window[i].Flag == models.FlagHuman || window[i].Flag == models.FlagMixed {
				window[i].Flag = flag
			}
		}
	}
}

func windowDiversity(window []models.SentenceRecord) float64 {
	texts := make([]string, len(window))
	for i, r := range window {
		texts[i] = r.Sentence
	}
	return textstats.LexicalDiversity(strings.Join(texts, " "))
}

func windowLengthCV(window []models.SentenceRecord) float64 {
	lengths := make([]float64, len(window))
	for i, r := range window {
		lengths[i] = float64(r.WordCount)
	}
	mean, sd := textstats.MeanStd(lengths)
	if mean == 0 {
		return 0
	}
	return sd / mean
}

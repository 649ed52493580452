package analyzer

import (
	"regexp"
	"strings"

	"github.com/zombar/humanscore/internal/models"
)

var catalog = map[models.FlagCategory]models.SuggestionEntry{
	models.FlagAIVeryPredictable: {
		Symbol:     "🔴",
		Short:      "Extremely predictable",
		Suggestion: "This sentence is too generic. Add specific details, personal observations, or sensory language.",
	},
	models.FlagAIPredictable: {
		Symbol:     "🟠",
		Short:      "Predictable phrasing",
		Suggestion: "This reads like a template. Break the pattern with a surprising word or a concrete example.",
	},
	models.FlagUniformRhythm: {
		Symbol:     "🟡",
		Short:      "Robotic sentence rhythm",
		Suggestion: "Sentence lengths are too uniform. Vary the structure by combining short and long sentences.",
	},
	models.FlagBoilerplate: {
		Symbol:     "🟤",
		Short:      "Generic transition",
		Suggestion: "This is a common AI transition phrase. Try to make it more conversational or remove it entirely.",
	},
	models.FlagLowDiversity: {
		Symbol:     "🟣",
		Short:      "Repetitive vocabulary",
		Suggestion: "Vocabulary is repetitive in this section. Use synonyms or restructure sentences to avoid repeating words.",
	},
	models.FlagMixed: {
		Symbol:     "🟢",
		Short:      "Good variation",
		Suggestion: "This shows some human-like qualities. Consider adding one more personal touch to enhance authenticity.",
	},
	models.FlagHuman: {
		Symbol:     "✅",
		Short:      "Natural and authentic",
		Suggestion: "Excellent! This writing has personality and unpredictability that is difficult for AI to replicate.",
	},
}

// SuggestionFor returns the coaching entry for flag. Unknown categories
// get the HUMAN entry.
func SuggestionFor(flag models.FlagCategory) models.SuggestionEntry {
	if entry, ok := catalog[flag]; ok {
		return entry
	}
	return catalog[models.FlagHuman]
}

// Catalog returns a copy of every entry keyed by category
func Catalog() map[models.FlagCategory]models.SuggestionEntry {
	out := make(map[models.FlagCategory]models.SuggestionEntry, len(catalog))
	for k, v := range catalog {
		out[k] = v
	}
	return out
}

var trailingPunct = regexp.MustCompile(`[.?!]+$`)

// RewriteSuggestions returns rule-based rewrite ideas for a flagged
// sentence. It never calls a model.
func RewriteSuggestions(sentence string, flag models.FlagCategory) []models.RewriteIdea {
	switch flag {
	case models.FlagAIVeryPredictable, models.FlagAIPredictable:
		return []models.RewriteIdea{
			{Strategy: "Add concrete details", Rewrite: "[Add a specific example or number here] " + sentence},
			{Strategy: "Make it personal", Rewrite: "In my experience, " + strings.ToLower(sentence)},
			{Strategy: "Add a surprise element", Rewrite: trailingPunct.ReplaceAllString(sentence, "") + "—but the surprising part is [add unexpected insight]."},
		}
	case models.FlagUniformRhythm:
		return []models.RewriteIdea{
			{Strategy: "Vary sentence structure", Rewrite: "Consider breaking this into a shorter and a longer sentence to create a more dynamic rhythm."},
		}
	case models.FlagBoilerplate:
		return []models.RewriteIdea{
			{Strategy: "Remove formal opener", Rewrite: openerPattern.ReplaceAllString(sentence, "")},
		}
	case models.FlagLowDiversity:
		return []models.RewriteIdea{
			{Strategy: "Replace repeated words", Rewrite: "[Identify repeated words and use synonyms like: " + strings.Join(synonymHints, ", ") + "]"},
		}
	default:
		return []models.RewriteIdea{
			{Strategy: "Already strong", Rewrite: "This sentence is well-written and appears authentic."},
		}
	}
}

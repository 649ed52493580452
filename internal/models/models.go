package models

// FlagCategory is the diagnostic category assigned to a single sentence
type FlagCategory string

const (
	FlagAIVeryPredictable FlagCategory = "AI_VERY_PREDICTABLE"
	FlagAIPredictable     FlagCategory = "AI_PREDICTABLE"
	FlagMixed             FlagCategory = "MIXED"
	FlagBoilerplate       FlagCategory = "BOILERPLATE"
	FlagUniformRhythm     FlagCategory = "UNIFORM_RHYTHM"
	FlagLowDiversity      FlagCategory = "LOW_DIVERSITY"
	FlagHuman             FlagCategory = "HUMAN"
)

// AllFlags lists every category in display order
var AllFlags = []FlagCategory{
	FlagAIVeryPredictable,
	FlagAIPredictable,
	FlagUniformRhythm,
	FlagBoilerplate,
	FlagLowDiversity,
	FlagMixed,
	FlagHuman,
}

// Valid reports whether f is one of the known categories
func (f FlagCategory) Valid() bool {
	for _, known := range AllFlags {
		if f == known {
			return true
		}
	}
	return false
}

// NoSentencesFound is carried in AnalysisResult.Error for degenerate input
const NoSentencesFound = "No sentences found."

// SuggestionEntry is the coaching text shown next to a flagged sentence
type SuggestionEntry struct {
	Symbol     string `json:"symbol"`
	Short      string `json:"short"`
	Suggestion string `json:"suggestion"`
}

// SentenceRecord holds the analysis of one retained sentence
type SentenceRecord struct {
	Sentence    string          `json:"sentence"`
	Perplexity  float64         `json:"perplexity"`
	WordCount   int             `json:"length"`
	Readability float64         `json:"readability"`
	Flag        FlagCategory    `json:"flag"`
	Suggestion  SuggestionEntry `json:"suggestion_data"`
}

// SubScores are the clamped 0-100 inputs of the composite score
type SubScores struct {
	Perplexity            float64 `json:"perplexity"`
	Burstiness            float64 `json:"burstiness"`
	Diversity             float64 `json:"diversity"`
	ReadabilityUniformity float64 `json:"readability_uniformity"`
}

// AnalysisResult is the complete output of one analysis call
type AnalysisResult struct {
	Perplexity       float64          `json:"perp_overall"`
	HumanProbability float64          `json:"roberta_detection_score"` // 0-100, classifier probability of human authorship
	Burstiness       float64          `json:"burst_overall"`
	LexicalDiversity float64          `json:"diversity_overall"`
	ReadabilityStd   float64          `json:"readability_std"`
	HumanScore       float64          `json:"composite_human_score"` // 0-100, one decimal
	SubScores        SubScores        `json:"sub_scores"`
	Sentences        []SentenceRecord `json:"sentence_analysis"`
	Error            string           `json:"error,omitempty"`
}

// NoSentences reports whether the input produced no sentences at all
func (r AnalysisResult) NoSentences() bool {
	return r.Error == NoSentencesFound
}

// FlagCounts tallies sentences per category
func (r AnalysisResult) FlagCounts() map[FlagCategory]int {
	counts := make(map[FlagCategory]int)
	for _, s := range r.Sentences {
		counts[s.Flag]++
	}
	return counts
}

// RewriteIdea is one rule-based rewrite strategy for a flagged sentence
type RewriteIdea struct {
	Strategy string `json:"strategy"`
	Rewrite  string `json:"rewrite"`
}

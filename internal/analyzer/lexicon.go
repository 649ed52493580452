package analyzer

import (
	"regexp"
	"strings"
)

// boilerplatePhrases are transitions overrepresented in generated text
var boilerplatePhrases = []string{
	"In conclusion",
	"It is imperative",
	"Furthermore",
	"Moreover",
	"Thus",
	"Hence",
}

// openerPhrases are the transitions a rewrite may strip from the start of
// a sentence
var openerPhrases = []string{
	"In conclusion",
	"Furthermore",
	"Moreover",
	"Thus",
	"Hence",
}

// synonymHints is offered when a section repeats its vocabulary
var synonymHints = []string{"crucial", "vital", "pivotal", "essential"}

var (
	boilerplatePattern = regexp.MustCompile(`(?i)\b(` + alternation(boilerplatePhrases) + `)\b`)
	openerPattern      = regexp.MustCompile(`(?i)^(` + alternation(openerPhrases) + `)[,\s]+`)
)

func alternation(phrases []string) string {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return strings.Join(quoted, "|")
}

// IsBoilerplate reports whether sentence contains a boilerplate transition,
// matched case-insensitively on word boundaries
func IsBoilerplate(sentence string) bool {
	return boilerplatePattern.MatchString(sentence)
}

// BoilerplatePhrases returns a copy of the boilerplate list
func BoilerplatePhrases() []string {
	return append([]string(nil), boilerplatePhrases...)
}

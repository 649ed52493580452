package textstats

import (
	"strings"
	"unicode"
)

// Sentences splits text into sentences at terminal punctuation followed by
// whitespace. Casing and punctuation are kept; surrounding space is trimmed.
func Sentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0

	for i := 0; i < len(runes)-1; i++ {
		if !isTerminal(runes[i]) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(string(runes[start : i+1])); s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}

	if s := strings.TrimSpace(string(runes[start:])); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// fragments splits on every terminal punctuation mark and drops blank pieces.
// Unlike Sentences it does not require trailing whitespace, so "3.5" splits.
func fragments(text string) []string {
	parts := strings.FieldsFunc(text, isTerminal)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

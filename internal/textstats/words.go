package textstats

import (
	"regexp"
	"strings"
)

// wordPattern approximates a Unicode-aware \b\w+\b token.
var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Words returns the word-boundary tokens of text, lowercased
func Words(text string) []string {
	tokens := wordPattern.FindAllString(text, -1)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// WordCount counts whitespace-delimited words, punctuation included
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// countSyllables counts syllables across all word tokens of text
func countSyllables(words []string) int {
	count := 0
	for _, word := range words {
		count += countSyllablesInWord(word)
	}
	return count
}

// countSyllablesInWord counts vowel groups, dropping a trailing silent e
func countSyllablesInWord(word string) int {
	word = strings.ToLower(word)
	if len(word) == 0 {
		return 0
	}

	count := 0
	vowels := "aeiouy"
	prevWasVowel := false

	for _, char := range word {
		isVowel := strings.ContainsRune(vowels, char)
		if isVowel && !prevWasVowel {
			count++
		}
		prevWasVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}

	if count == 0 {
		count = 1
	}

	return count
}

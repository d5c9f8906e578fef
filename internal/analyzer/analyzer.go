// Package analyzer computes derived statistics for text content.
//
// Analyze is pure and total: every input string, including the empty string,
// produces a well-defined result, and repeated calls on identical input
// return identical results.
package analyzer

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Analysis holds the derived statistics for a piece of content.
type Analysis struct {
	Words        int      `json:"words"`
	Characters   int      `json:"characters"`
	Sentences    int      `json:"sentences"`
	Paragraphs   int      `json:"paragraphs"`
	LongestWords []string `json:"longestWords"`
}

// A paragraph boundary is a newline, optional horizontal whitespace, then
// another newline.
var paragraphBoundary = regexp.MustCompile(`\n[ \t\r]*\n`)

// Analyze computes statistics for content. Tokens are maximal runs of
// non-whitespace characters; punctuation stays attached to its token.
func Analyze(content string) Analysis {
	tokens := strings.Fields(content)
	return Analysis{
		Words:        len(tokens),
		Characters:   countCharacters(content),
		Sentences:    countSentences(content),
		Paragraphs:   countParagraphs(content),
		LongestWords: longestWords(tokens),
	}
}

// countCharacters counts non-whitespace runes, so newlines and tabs are
// excluded along with spaces.
func countCharacters(content string) int {
	n := 0
	for _, r := range content {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func countSentences(content string) int {
	segments := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	n := 0
	for _, segment := range segments {
		if strings.TrimSpace(segment) != "" {
			n++
		}
	}
	return n
}

func countParagraphs(content string) int {
	n := 0
	for _, segment := range paragraphBoundary.Split(content, -1) {
		if strings.TrimSpace(segment) != "" {
			n++
		}
	}
	return n
}

// longestWords returns every token whose rune length equals the maximum token
// length, in order of occurrence. A token that appears twice at the maximum
// length appears twice in the result.
func longestWords(tokens []string) []string {
	maxLen := 0
	for _, token := range tokens {
		if l := utf8.RuneCountInString(token); l > maxLen {
			maxLen = l
		}
	}
	longest := []string{}
	for _, token := range tokens {
		if utf8.RuneCountInString(token) == maxLen {
			longest = append(longest, token)
		}
	}
	return longest
}

package analyzer

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestAnalyze_EmptyContent(t *testing.T) {
	a := Analyze("")

	assert.Equal(t, 0, a.Words)
	assert.Equal(t, 0, a.Characters)
	assert.Equal(t, 0, a.Sentences)
	assert.Equal(t, 0, a.Paragraphs)
	require.NotNil(t, a.LongestWords)
	assert.Empty(t, a.LongestWords)
}

func TestAnalyze_WhitespaceOnlyContent(t *testing.T) {
	a := Analyze(" \t\n  \n\n ")

	assert.Equal(t, 0, a.Words)
	assert.Equal(t, 0, a.Characters)
	assert.Equal(t, 0, a.Sentences)
	assert.Equal(t, 0, a.Paragraphs)
	assert.Empty(t, a.LongestWords)
}

func TestAnalyze_MultiSentenceMultiParagraph(t *testing.T) {
	a := Analyze("Hello world. Second sentence!\n\nNew paragraph here.")

	assert.Equal(t, 7, a.Words)
	assert.Equal(t, 43, a.Characters)
	assert.Equal(t, 3, a.Sentences)
	assert.Equal(t, 2, a.Paragraphs)
	// Punctuation counts toward token length, so the 9-rune tokens win.
	assert.Equal(t, []string{"sentence!", "paragraph"}, a.LongestWords)
}

func TestAnalyze_DelimiterRuns(t *testing.T) {
	a := Analyze("One... two!? three")

	// Runs of delimiters end one sentence; the trailing unterminated segment
	// still counts.
	assert.Equal(t, 3, a.Words)
	assert.Equal(t, 3, a.Sentences)
	assert.Equal(t, 1, a.Paragraphs)
}

func TestAnalyze_PunctuationOnlyContent(t *testing.T) {
	a := Analyze("...!!!???")

	assert.Equal(t, 1, a.Words)
	assert.Equal(t, 9, a.Characters)
	assert.Equal(t, 0, a.Sentences)
	assert.Equal(t, 1, a.Paragraphs)
	assert.Equal(t, []string{"...!!!???"}, a.LongestWords)
}

func TestAnalyze_BlankLineWithHorizontalWhitespace(t *testing.T) {
	a := Analyze("first block\n \t \nsecond block\n\n\nthird")

	assert.Equal(t, 3, a.Paragraphs)
}

func TestAnalyze_DuplicateLongestTokens(t *testing.T) {
	a := Analyze("abc xy abc de")

	assert.Equal(t, []string{"abc", "abc"}, a.LongestWords)
}

func TestAnalyze_UnicodeContent(t *testing.T) {
	a := Analyze("héllo wörld\tc'était")

	assert.Equal(t, 3, a.Words)
	assert.Equal(t, 17, a.Characters)
	assert.Equal(t, []string{"c'était"}, a.LongestWords)
}

// =============================================================================
// Property-based tests
// =============================================================================

func contentGenerator() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.Just(""),
		rapid.StringMatching(`[A-Za-z0-9 .,!?\n\t]{0,300}`),
		rapid.String(),
	)
}

func testCharacters_CountsNonWhitespaceRunes(t *rapid.T) {
	content := contentGenerator().Draw(t, "content")

	want := 0
	for _, r := range content {
		if !unicode.IsSpace(r) {
			want++
		}
	}

	if got := Analyze(content).Characters; got != want {
		t.Fatalf("Characters = %d, want %d for %q", got, want, content)
	}
}

func testWords_MatchesWhitespaceTokenization(t *rapid.T) {
	content := contentGenerator().Draw(t, "content")

	if got, want := Analyze(content).Words, len(strings.Fields(content)); got != want {
		t.Fatalf("Words = %d, want %d for %q", got, want, content)
	}
}

func testLongestWords_ExactlyTheMaxLengthTokens(t *rapid.T) {
	content := contentGenerator().Draw(t, "content")
	tokens := strings.Fields(content)

	maxLen := 0
	for _, token := range tokens {
		if l := utf8.RuneCountInString(token); l > maxLen {
			maxLen = l
		}
	}

	longest := Analyze(content).LongestWords
	for _, word := range longest {
		if utf8.RuneCountInString(word) != maxLen {
			t.Fatalf("longest word %q has length %d, max is %d", word, utf8.RuneCountInString(word), maxLen)
		}
	}

	// Every max-length token occurrence must be present, in order.
	want := 0
	for _, token := range tokens {
		if utf8.RuneCountInString(token) == maxLen && maxLen > 0 {
			want++
		}
	}
	if len(longest) != want {
		t.Fatalf("got %d longest words, want %d for %q", len(longest), want, content)
	}
}

func testAnalyze_Deterministic(t *rapid.T) {
	content := contentGenerator().Draw(t, "content")

	first := Analyze(content)
	second := Analyze(content)

	if first.Words != second.Words || first.Characters != second.Characters ||
		first.Sentences != second.Sentences || first.Paragraphs != second.Paragraphs {
		t.Fatalf("repeated analysis diverged: %+v vs %+v", first, second)
	}
	if len(first.LongestWords) != len(second.LongestWords) {
		t.Fatalf("longest words diverged: %v vs %v", first.LongestWords, second.LongestWords)
	}
	for i := range first.LongestWords {
		if first.LongestWords[i] != second.LongestWords[i] {
			t.Fatalf("longest words diverged: %v vs %v", first.LongestWords, second.LongestWords)
		}
	}
}

func TestCharacters_Properties(t *testing.T) {
	rapid.Check(t, testCharacters_CountsNonWhitespaceRunes)
}

func TestWords_Properties(t *testing.T) {
	rapid.Check(t, testWords_MatchesWhitespaceTokenization)
}

func TestLongestWords_Properties(t *testing.T) {
	rapid.Check(t, testLongestWords_ExactlyTheMaxLengthTokens)
}

func TestAnalyze_Determinism_Properties(t *testing.T) {
	rapid.Check(t, testAnalyze_Deterministic)
}

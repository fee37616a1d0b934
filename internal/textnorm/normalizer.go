// Package textnorm turns free text into comparable token streams.
//
// Text is composed to NFC, lowercased with full Unicode case mapping and
// stripped of everything that is not a word character or whitespace. Word
// characters are letters, numbers, combining marks and the underscore, in any
// script, so Cyrillic or Polish text survives intact. Removed characters are
// deleted, not replaced: "node.js" becomes "nodejs".
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes text and drops stopwords. It holds no mutable
// state and is safe for concurrent use.
type Normalizer struct {
	stopwords *Stopwords
}

// New returns a Normalizer that removes the given stopwords. A nil set
// disables stopword removal.
func New(stopwords *Stopwords) *Normalizer {
	return &Normalizer{stopwords: stopwords}
}

// Normalize returns the tokens of text in their original order.
// Empty input yields an empty, non-nil slice.
func (n *Normalizer) Normalize(text string) []string {
	fields := strings.Fields(clean(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if n != nil && n.stopwords.Contains(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

// Lower applies NFC composition and Unicode lowercasing only.
func Lower(text string) string {
	if text == "" {
		return ""
	}
	// cases.Caser keeps state between calls, so it is never shared.
	lower := cases.Lower(language.Und).String(norm.NFC.String(text))
	return norm.NFC.String(lower)
}

// Join renders tokens back into the single-spaced text form used for
// substring checks.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}

func clean(text string) string {
	if text == "" {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, Lower(text))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

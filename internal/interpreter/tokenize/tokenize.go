// Package tokenize normalizes free-form text into stemmed word tokens.
// Everything here is pure and deterministic; the classifier depends on
// identical input producing identical output across calls.
package tokenize

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z0-9']+`)

// Tokens lowercases text, splits it into word tokens and stems each one.
// Empty or non-word input yields an empty, non-nil slice.
func Tokens(text string) []string {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(words))
	for _, w := range words {
		out = append(out, Stem(w))
	}
	return out
}

// Set collapses tokens into a membership set for overlap scoring.
func Set(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Stem applies a fixed-order suffix-stripping stemmer to a single
// lowercase word. It is intentionally lighter than a full Porter stemmer;
// what matters is that a verb and its inflections collapse to the same
// stem on both the message and the catalog phrase side.
func Stem(word string) string {
	w := word

	// possessive
	w = strings.TrimSuffix(w, "'s")
	w = strings.TrimSuffix(w, "'")

	// plural endings
	switch {
	case strings.HasSuffix(w, "sses"):
		w = strings.TrimSuffix(w, "es")
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		w = strings.TrimSuffix(w, "ies") + "i"
	case strings.HasSuffix(w, "ss"):
		// keep
	case strings.HasSuffix(w, "s") && len(w) > 3:
		w = strings.TrimSuffix(w, "s")
	}

	// participle / gerund endings
	switch {
	case strings.HasSuffix(w, "eed") && len(w) > 4:
		w = strings.TrimSuffix(w, "d")
	case strings.HasSuffix(w, "ing") && len(w) > 5:
		w = strings.TrimSuffix(w, "ing")
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		w = strings.TrimSuffix(w, "ed")
	}

	// adverbial ending
	if strings.HasSuffix(w, "ly") && len(w) > 4 {
		w = strings.TrimSuffix(w, "ly")
	}

	// trailing e so that create/created/creating agree
	if strings.HasSuffix(w, "e") && len(w) > 3 {
		w = strings.TrimSuffix(w, "e")
	}

	return w
}

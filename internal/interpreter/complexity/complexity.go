// Package complexity flags how much orchestration a message needs before
// dispatch. Classification precedence is fixed: analytics beats comparison
// beats composite beats dependent beats simple; the first class whose rule
// matches wins.
package complexity

import (
	"regexp"
	"strings"

	"bugtracker-assistant/internal/models"
)

var analyticsPhrases = []string{
	"how many", "count", "total", "sum", "average", "statistics", "stats",
	"trend", "percentage", "breakdown",
}

var comparisonPhrases = []string{
	"more than", "less than", "fewer than", "greater than", "equal to",
	"versus", "compared to", " vs ",
}

// conditional connectives that mark a dependent query.
var conditionalTokens = map[string]bool{
	"if": true, "when": true, "where": true, "that": true, "which": true, "those": true,
}

var backRefRe = regexp.MustCompile(`\b(?:that|this|the|previous|last)\s+(?:bug|team|one)\b`)

// domain-entity noun stems; more than one distinct noun marks a composite.
var domainNouns = map[string]bool{
	"bug": true, "team": true, "user": true, "comment": true, "fil": true,
}

// conjunction boundaries for detection and splitting, longest first so
// "and then" consumes before "and".
var conjunctions = []string{"and then", "and also", "as well as", "then", "and", "also", ";"}

// Classify buckets the parsed query and records the result on it.
func Classify(pq *models.ParsedQuery) models.QueryType {
	lower := strings.ToLower(pq.Raw)

	switch {
	case isAnalytics(lower):
		pq.QueryType = models.QueryTypeAnalytics
	case isComparison(lower, pq):
		pq.QueryType = models.QueryTypeComparison
	case isComposite(lower, pq):
		pq.QueryType = models.QueryTypeComposite
		pq.IsComposite = true
	case isDependent(lower, pq):
		pq.QueryType = models.QueryTypeDependent
		pq.IsDependentQuery = true
	default:
		pq.QueryType = models.QueryTypeSimple
	}
	return pq.QueryType
}

func isAnalytics(lower string) bool {
	for _, p := range analyticsPhrases {
		if containsPhrase(lower, p) {
			return true
		}
	}
	return false
}

func isComparison(lower string, pq *models.ParsedQuery) bool {
	if len(pq.Comparisons) > 0 {
		return true
	}
	for _, p := range comparisonPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

func isComposite(lower string, pq *models.ParsedQuery) bool {
	if hasConjunction(lower) {
		return true
	}
	if len(pq.Actions) > 1 {
		return true
	}
	return distinctNouns(pq.Tokens) > 1
}

func isDependent(lower string, pq *models.ParsedQuery) bool {
	if backRefRe.MatchString(lower) {
		return true
	}
	for _, t := range pq.Tokens {
		if conditionalTokens[t] {
			return true
		}
	}
	return false
}

func hasConjunction(lower string) bool {
	masked := maskQuoted(lower)
	for _, c := range conjunctions {
		if c == ";" {
			if strings.Contains(masked, ";") {
				return true
			}
			continue
		}
		if containsPhrase(masked, c) {
			return true
		}
	}
	return false
}

func distinctNouns(tokens []string) int {
	seen := map[string]bool{}
	for _, t := range tokens {
		if domainNouns[t] {
			seen[t] = true
		}
	}
	return len(seen)
}

// Decompose splits a composite message on top-level conjunction boundaries
// into ordered segments. Quoted regions are never split. Callers should
// fall back to simple handling when fewer than two segments come back.
func Decompose(message string) []string {
	masked := maskQuoted(lowerASCII(message))

	boundaries := []int{}
	lengths := []int{}
	for i := 0; i < len(masked); {
		matched := 0
		for _, c := range conjunctions {
			if c == ";" {
				if masked[i] == ';' {
					matched = 1
				}
			} else if phraseAt(masked, i, c) {
				matched = len(c)
			}
			if matched > 0 {
				break
			}
		}
		if matched > 0 {
			boundaries = append(boundaries, i)
			lengths = append(lengths, matched)
			i += matched
			continue
		}
		i++
	}

	segments := []string{}
	start := 0
	for bi, b := range boundaries {
		seg := strings.TrimSpace(message[start:b])
		if seg != "" {
			segments = append(segments, seg)
		}
		start = b + lengths[bi]
	}
	if tail := strings.TrimSpace(message[start:]); tail != "" {
		segments = append(segments, tail)
	}
	return segments
}

// phraseAt reports whether phrase starts at i on word boundaries.
func phraseAt(s string, i int, phrase string) bool {
	if !strings.HasPrefix(s[i:], phrase) {
		return false
	}
	if i > 0 && isWordChar(s[i-1]) {
		return false
	}
	end := i + len(phrase)
	if end < len(s) && isWordChar(s[end]) {
		return false
	}
	return true
}

func containsPhrase(s, phrase string) bool {
	for i := 0; i+len(phrase) <= len(s); i++ {
		if phraseAt(s, i, phrase) {
			return true
		}
	}
	return false
}

func isWordChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

// lowerASCII lowers only A-Z, keeping every byte offset aligned with the
// input so boundary positions found on the lowered copy slice the
// original correctly. Multi-byte runes pass through untouched; no
// conjunction contains one.
func lowerASCII(s string) string {
	out := []byte(s)
	for i := 0; i < len(out); i++ {
		if out[i] >= 'A' && out[i] <= 'Z' {
			out[i] += 'a' - 'A'
		}
	}
	return string(out)
}

// maskQuoted blanks quoted spans so conjunctions inside titles do not
// trigger splitting.
func maskQuoted(s string) string {
	out := []byte(s)
	inQuote := byte(0)
	for i := 0; i < len(out); i++ {
		c := out[i]
		if inQuote == 0 && (c == '\'' || c == '"') {
			inQuote = c
			continue
		}
		if inQuote != 0 {
			if c == inQuote {
				inQuote = 0
			} else {
				out[i] = '#'
			}
		}
	}
	return string(out)
}

// Package classify scores a message against the static intent catalog and
// computes its lexicon sentiment. Scoring is pure set arithmetic over
// stemmed tokens; there is no randomness anywhere in this package.
package classify

import (
	"bugtracker-assistant/internal/interpreter/tokenize"
	"bugtracker-assistant/internal/models"
	"bugtracker-assistant/pkg/catalog"
)

// DefaultThreshold is the score below which a message degrades to
// general_query.
const DefaultThreshold = 0.3

// FallbackConfidence is the fixed confidence reported for the
// general_query fallback.
const FallbackConfidence = 0.5

// Result is the outcome of classifying one message.
type Result struct {
	Intent     string
	Confidence float64
	Sentiment  models.Sentiment
}

type scoredIntent struct {
	name     string
	patterns []map[string]struct{}
	sizes    []int
}

// Classifier scores messages against a fixed catalog. Build once, use from
// any goroutine.
type Classifier struct {
	intents   []scoredIntent
	threshold float64
}

// New precompiles the catalog's trigger phrases into stemmed token sets.
func New(cat *catalog.Catalog, threshold float64) *Classifier {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	c := &Classifier{threshold: threshold}
	for _, in := range cat.Intents {
		si := scoredIntent{name: in.Name}
		for _, p := range in.Patterns {
			toks := tokenize.Tokens(p)
			si.patterns = append(si.patterns, tokenize.Set(toks))
			si.sizes = append(si.sizes, len(toks))
		}
		c.intents = append(c.intents, si)
	}
	return c
}

// Classify scores the pre-tokenized message. The best-scoring intent wins;
// ties break on catalog order. Below the threshold the message is a
// general_query with fixed confidence.
func (c *Classifier) Classify(tokens []string) Result {
	msgSet := tokenize.Set(tokens)
	msgLen := len(tokens)

	best := ""
	bestScore := 0.0
	for _, in := range c.intents {
		score := in.score(msgSet, msgLen)
		if score > bestScore {
			best = in.name
			bestScore = score
		}
	}

	sentiment := Sentiment(tokens)
	if bestScore < c.threshold {
		return Result{
			Intent:     models.IntentGeneralQuery,
			Confidence: FallbackConfidence,
			Sentiment:  sentiment,
		}
	}
	return Result{Intent: best, Confidence: bestScore, Sentiment: sentiment}
}

// score is the max over the intent's phrases of
// |message ∩ phrase| / max(|message|, |phrase|).
func (in *scoredIntent) score(msgSet map[string]struct{}, msgLen int) float64 {
	best := 0.0
	for i, phrase := range in.patterns {
		overlap := 0
		for tok := range phrase {
			if _, ok := msgSet[tok]; ok {
				overlap++
			}
		}
		denom := msgLen
		if in.sizes[i] > denom {
			denom = in.sizes[i]
		}
		if denom == 0 {
			continue
		}
		if s := float64(overlap) / float64(denom); s > best {
			best = s
		}
	}
	return best
}

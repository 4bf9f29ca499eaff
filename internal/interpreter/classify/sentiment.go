// internal/interpreter/classify/sentiment.go
package classify

import "bugtracker-assistant/internal/models"

// polarity maps stemmed tokens to a sentiment weight. The table is keyed by
// stems so inflections ("failing", "failed") hit the same entry.
var polarity = map[string]float64{
	// positive
	"thank":     1,
	"great":     1,
	"good":      1,
	"awesom":    1,
	"excellent": 1,
	"perfect":   1,
	"nic":       1,
	"lov":       1,
	"work":      0.5,
	"fix":       0.5,
	"resolv":    0.5,
	"don":       0.5,
	"happy":     1,

	// negative
	"fail":     -1,
	"broken":   -1,
	"break":    -1,
	"crash":    -1,
	"error":    -0.5,
	"bad":      -1,
	"terribl":  -1,
	"horribl":  -1,
	"annoy":    -1,
	"slow":     -0.5,
	"wrong":    -0.5,
	"urgent":   -0.5,
	"critical": -0.5,
	"stuck":    -0.5,
	"hat":      -1,
	"frustrat": -1,
}

// Sentiment buckets the mean token polarity: above 0.1 positive, below
// -0.1 negative, otherwise neutral. An empty token list is neutral.
func Sentiment(tokens []string) models.Sentiment {
	if len(tokens) == 0 {
		return models.SentimentNeutral
	}
	total := 0.0
	for _, t := range tokens {
		total += polarity[t]
	}
	mean := total / float64(len(tokens))
	switch {
	case mean > 0.1:
		return models.SentimentPositive
	case mean < -0.1:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

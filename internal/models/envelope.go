// internal/models/envelope.go
package models

import "time"

// Sentiment is the lexicon polarity bucket of a message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Entities is the structured-field map extracted from a message. A missing
// key means the field was not provided; values are never nil placeholders.
type Entities map[string]interface{}

// GetString returns the entity value as a string, with ok=false when the
// key is absent or not a string.
func (e Entities) GetString(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Has reports whether the key was extracted.
func (e Entities) Has(key string) bool {
	if e == nil {
		return false
	}
	_, ok := e[key]
	return ok
}

// Clone returns a shallow copy safe to mutate.
func (e Entities) Clone() Entities {
	out := make(Entities, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// ActionResult is the uniform outcome of a dispatched operation. Collaborator
// failures and missing-context clarifications both land here; the router
// never lets an error escape as a Go error.
type ActionResult struct {
	Success             bool                   `json:"success"`
	Message             string                 `json:"message"`
	Data                map[string]interface{} `json:"data,omitempty"`
	Error               string                 `json:"error,omitempty"`
	NeedsContext        bool                   `json:"needsContext,omitempty"`
	MissingDependencies []string               `json:"missingDependencies,omitempty"`
	CanRetry            bool                   `json:"canRetry,omitempty"`
}

// ResponseEnvelope is the uniform conversational response returned to the
// caller for every message, success or failure.
type ResponseEnvelope struct {
	RequestID    string        `json:"requestId"`
	Intent       string        `json:"intent"`
	Confidence   float64       `json:"confidence"`
	Sentiment    Sentiment     `json:"sentiment"`
	Entities     Entities      `json:"entities"`
	Message      string        `json:"message"`
	Text         string        `json:"text"`
	ActionResult *ActionResult `json:"actionResult"`
	Suggestions  []string      `json:"suggestions"`
	Timestamp    time.Time     `json:"timestamp"`
}

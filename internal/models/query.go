// internal/models/query.go
package models

import "time"

// QueryType is the complexity class of a message.
type QueryType string

const (
	QueryTypeSimple     QueryType = "simple"
	QueryTypeAnalytics  QueryType = "analytics"
	QueryTypeComparison QueryType = "comparison"
	QueryTypeComposite  QueryType = "composite"
	QueryTypeDependent  QueryType = "dependent"
)

// TimeRange is a temporal phrase resolved against the wall clock.
type TimeRange struct {
	Phrase string    `json:"phrase"`
	Days   int       `json:"days"`
	Since  time.Time `json:"since"`
}

// Comparison is an extracted "more/less/equal to N" clause.
type Comparison struct {
	Operator string `json:"operator"` // gt, lt, eq
	Value    int    `json:"value"`
}

// ParsedQuery is the ephemeral per-message parse product flowing through
// the pipeline. SubQueries is populated only for composite messages.
type ParsedQuery struct {
	Raw        string  `json:"raw"`
	Tokens     []string `json:"tokens"`
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Sentiment  Sentiment `json:"sentiment"`

	Entities    Entities               `json:"entities"`
	Actions     []string               `json:"actions"`
	Filters     map[string]interface{} `json:"filters"`
	TimeRanges  []TimeRange            `json:"timeRanges"`
	Comparisons []Comparison           `json:"comparisons"`

	IsComposite      bool          `json:"isComposite"`
	IsDependentQuery bool          `json:"isDependentQuery"`
	QueryType        QueryType     `json:"queryType"`
	SubQueries       []*ParsedQuery `json:"subQueries,omitempty"`
}

// NewParsedQuery returns an empty parse for the given raw message.
func NewParsedQuery(raw string) *ParsedQuery {
	return &ParsedQuery{
		Raw:         raw,
		Tokens:      []string{},
		Entities:    Entities{},
		Actions:     []string{},
		Filters:     map[string]interface{}{},
		TimeRanges:  []TimeRange{},
		Comparisons: []Comparison{},
		QueryType:   QueryTypeSimple,
	}
}

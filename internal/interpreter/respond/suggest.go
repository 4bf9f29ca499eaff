// Package respond turns a routed outcome into the uniform response
// envelope: canned per-intent suggestions with light conditional
// augmentation, plus templated response text.
package respond

import (
	"bugtracker-assistant/internal/models"
	"bugtracker-assistant/pkg/catalog"
)

// MaxSuggestions is the hard cap on suggestions per response.
const MaxSuggestions = 10

// Suggester produces follow-up suggestions from the static catalog table.
type Suggester struct {
	cat *catalog.Catalog
	max int
}

func NewSuggester(cat *catalog.Catalog, max int) *Suggester {
	if max <= 0 || max > MaxSuggestions {
		max = MaxSuggestions
	}
	return &Suggester{cat: cat, max: max}
}

// Suggest is a pure function of the intent, the outcome and the result
// shape. Failure paths get recovery-oriented suggestions ahead of the
// intent's own table.
func (s *Suggester) Suggest(intent string, result *models.ActionResult) []string {
	out := []string{}

	if result != nil && !result.Success {
		if result.NeedsContext {
			out = append(out, "Show all bugs")
		}
		out = append(out, "Help")
	}

	if in, ok := s.cat.Get(intent); ok {
		out = append(out, in.Suggestions...)
	}

	// conditional augmentation based on what the result actually contains
	if result != nil && result.Success {
		if hasUnassignedBug(result.Data) && !contains(out, "Show unassigned bugs") {
			out = append(out, "Show unassigned bugs")
		}
		if _, ok := bugList(result.Data); ok && !contains(out, "Show bug statistics") {
			out = append(out, "Show bug statistics")
		}
	}

	out = dedupe(out)
	if len(out) > s.max {
		out = out[:s.max]
	}
	return out
}

func hasUnassignedBug(data map[string]interface{}) bool {
	bugs, ok := bugList(data)
	if !ok {
		return false
	}
	for _, raw := range bugs {
		bug, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		assignee, present := bug["assignedUserId"]
		if !present || assignee == nil || assignee == "" {
			return true
		}
	}
	return false
}

func bugList(data map[string]interface{}) ([]interface{}, bool) {
	if data == nil {
		return nil, false
	}
	bugs, ok := data["bugs"].([]interface{})
	return bugs, ok
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func dedupe(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

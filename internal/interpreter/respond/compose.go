// internal/interpreter/respond/compose.go
package respond

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"bugtracker-assistant/internal/models"
	"bugtracker-assistant/pkg/catalog"
)

var placeholderRe = regexp.MustCompile(`\{(\w+)\}`)

// Composer assembles the final ResponseEnvelope. Every declared field is
// present on both success and failure paths.
type Composer struct {
	cat *catalog.Catalog
}

func NewComposer(cat *catalog.Catalog) *Composer {
	return &Composer{cat: cat}
}

// Input is everything the composer needs for one envelope.
type Input struct {
	Message    string
	Intent     string
	Confidence float64
	Sentiment  models.Sentiment
	Entities   models.Entities
	Profile    *models.UserProfile
	Result     *models.ActionResult
	// MessageOverride, when set, replaces the catalog response template.
	MessageOverride string
	Suggestions     []string
}

// Compose builds the envelope.
func (c *Composer) Compose(in Input) *models.ResponseEnvelope {
	result := in.Result
	if result == nil {
		result = &models.ActionResult{Success: false, Message: "No action was taken"}
	}

	text := in.MessageOverride
	if text == "" {
		text = c.responseText(in.Intent, result)
	}
	text = c.substitute(text, in)

	entities := in.Entities
	if entities == nil {
		entities = models.Entities{}
	}
	suggestions := in.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}

	return &models.ResponseEnvelope{
		RequestID:    uuid.NewString(),
		Intent:       in.Intent,
		Confidence:   clamp01(in.Confidence),
		Sentiment:    sentimentOrNeutral(in.Sentiment),
		Entities:     entities,
		Message:      text,
		Text:         in.Message,
		ActionResult: result,
		Suggestions:  suggestions,
		Timestamp:    time.Now().UTC(),
	}
}

// responseText picks the first catalog template on success and the action
// result's own message on failure, so users see plain language either way.
func (c *Composer) responseText(intent string, result *models.ActionResult) string {
	if !result.Success && result.Message != "" {
		return result.Message
	}
	if in, ok := c.cat.Get(intent); ok && len(in.Responses) > 0 {
		return in.Responses[0]
	}
	if result.Message != "" {
		return result.Message
	}
	return "Done."
}

// substitute fills {placeholder} slots from entities, the user profile and
// the result payload. Unresolvable placeholders are stripped.
func (c *Composer) substitute(template string, in Input) string {
	out := placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		key := strings.Trim(m, "{}")
		if v, ok := lookupValue(key, in); ok {
			return v
		}
		return ""
	})
	out = strings.Join(strings.Fields(out), " ")
	return strings.TrimSpace(out)
}

func lookupValue(key string, in Input) (string, bool) {
	if key == "name" {
		if in.Profile != nil && in.Profile.Name != "" {
			return in.Profile.Name, true
		}
		return "there", true
	}
	if in.Entities != nil {
		if v, ok := in.Entities[key]; ok {
			return fmt.Sprintf("%v", v), true
		}
	}
	if in.Result != nil && in.Result.Data != nil {
		if key == "count" {
			if bugs, ok := in.Result.Data["bugs"].([]interface{}); ok {
				return fmt.Sprintf("%d", len(bugs)), true
			}
			if n, ok := in.Result.Data["count"]; ok {
				return fmt.Sprintf("%v", n), true
			}
		}
		if v, ok := in.Result.Data[key]; ok {
			return fmt.Sprintf("%v", v), true
		}
	}
	return "", false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func sentimentOrNeutral(s models.Sentiment) models.Sentiment {
	if s == "" {
		return models.SentimentNeutral
	}
	return s
}

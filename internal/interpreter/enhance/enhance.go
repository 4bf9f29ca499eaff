// Package enhance resolves references in an extracted query against the
// caller's conversation context: team and bug back-references, person
// mentions, temporal phrases and comparison clauses. It always runs after
// basic extraction and never overwrites an entity the extractor produced.
package enhance

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bugtracker-assistant/internal/collaborator"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/models"
)

var (
	teamSelfRefRe = regexp.MustCompile(`\b(?:this|my|our|current)\s+team\b`)
	bugNumberRe   = regexp.MustCompile(`\bbug\s*#?(\d+)\b`)
	bugBackRefRe  = regexp.MustCompile(`\b(?:that|this|the|previous|last)\s+bug\b`)
	comparisonRe  = regexp.MustCompile(`\b(more|greater|higher|less|fewer|lower|equal)\s+(?:than|to)\s+(\d+)\b`)
)

// dayOffsets is the fixed temporal table, phrase to days back from now.
// Longest phrases are listed first so "last week" wins over "week".
var dayOffsets = []struct {
	phrase string
	days   int
}{
	{"yesterday", 1},
	{"this week", 7},
	{"last week", 14},
	{"this month", 30},
	{"last month", 60},
	{"today", 0},
}

// Enhancer resolves references using the context store snapshot and a user
// lookup collaborator. The clock is injected so temporal anchoring is
// testable.
type Enhancer struct {
	users collaborator.UserOperations
	clock func() time.Time
	log   logger.Logger
}

func New(users collaborator.UserOperations, log logger.Logger) *Enhancer {
	return &Enhancer{
		users: users,
		clock: time.Now,
		log:   log.WithFields(map[string]interface{}{"stage": "enhance"}),
	}
}

// WithClock overrides the wall clock. Test hook.
func (e *Enhancer) WithClock(clock func() time.Time) *Enhancer {
	e.clock = clock
	return e
}

// Enhance mutates pq in place. callerID is the id behind "me"; conv may be
// a fresh default context for first-time users.
func (e *Enhancer) Enhance(ctx context.Context, callerID string, conv *models.ConversationContext, pq *models.ParsedQuery) {
	lower := strings.ToLower(pq.Raw)

	e.resolveTeam(lower, conv, pq)
	e.resolvePersons(ctx, callerID, pq)
	e.resolveBug(lower, conv, pq)
	e.resolveTime(lower, pq)
	e.resolveComparisons(lower, pq)
}

func (e *Enhancer) resolveTeam(lower string, conv *models.ConversationContext, pq *models.ParsedQuery) {
	if pq.Entities.Has("teamId") {
		return
	}
	if teamSelfRefRe.MatchString(lower) && conv.CurrentTeam != nil {
		pq.Entities["teamId"] = conv.CurrentTeam.ID
		if !pq.Entities.Has("teamName") {
			pq.Entities["teamName"] = conv.CurrentTeam.Name
		}
	}
}

// resolvePersons maps name mentions to user ids. "me"/"myself" is always
// the caller; anything else goes through a collaborator lookup where the
// first match wins. A failed lookup leaves the id absent and records the
// name under unresolvedAssignee / unresolvedTarget so the router can ask
// instead of failing silently.
func (e *Enhancer) resolvePersons(ctx context.Context, callerID string, pq *models.ParsedQuery) {
	e.resolvePerson(ctx, callerID, pq, "assigneeName", "assignedUserId", "unresolvedAssignee")
	e.resolvePerson(ctx, callerID, pq, "targetName", "targetUserId", "unresolvedTarget")
}

func (e *Enhancer) resolvePerson(ctx context.Context, callerID string, pq *models.ParsedQuery, nameKey, idKey, unresolvedKey string) {
	name, ok := pq.Entities.GetString(nameKey)
	if !ok || pq.Entities.Has(idKey) {
		return
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "me", "myself":
		pq.Entities[idKey] = callerID
		return
	}

	res, err := e.users.Search(ctx, callerID, name, nil)
	if err != nil || res == nil || !res.Success {
		e.log.Warn("person lookup failed", map[string]interface{}{"name": name})
		pq.Entities[unresolvedKey] = name
		return
	}
	if id := firstUserID(res); id != "" {
		pq.Entities[idKey] = id
		return
	}
	pq.Entities[unresolvedKey] = name
}

func (e *Enhancer) resolveBug(lower string, conv *models.ConversationContext, pq *models.ParsedQuery) {
	if pq.Entities.Has("bugId") {
		return
	}
	if m := bugNumberRe.FindStringSubmatch(lower); m != nil {
		pq.Entities["bugId"] = m[1]
		return
	}
	if bugBackRefRe.MatchString(lower) {
		if len(conv.RecentBugs) > 0 {
			pq.Entities["bugId"] = conv.RecentBugs[0].ID
			return
		}
		// no recent bug: the router asks for context, or a preceding
		// composite segment fills the reference in
		pq.Entities["unresolvedBugRef"] = true
	}
}

func (e *Enhancer) resolveTime(lower string, pq *models.ParsedQuery) {
	for _, off := range dayOffsets {
		if !strings.Contains(lower, off.phrase) {
			continue
		}
		since := e.clock().AddDate(0, 0, -off.days)
		if off.days == 0 {
			// "today" means since local midnight
			y, m, d := since.Date()
			since = time.Date(y, m, d, 0, 0, 0, 0, since.Location())
		}
		tr := models.TimeRange{Phrase: off.phrase, Days: off.days, Since: since}
		pq.TimeRanges = append(pq.TimeRanges, tr)
		if _, ok := pq.Filters["since"]; !ok {
			pq.Filters["since"] = since.UTC().Format(time.RFC3339)
		}
		return
	}
}

func (e *Enhancer) resolveComparisons(lower string, pq *models.ParsedQuery) {
	for _, m := range comparisonRe.FindAllStringSubmatch(lower, -1) {
		op := "eq"
		switch m[1] {
		case "more", "greater", "higher":
			op = "gt"
		case "less", "fewer", "lower":
			op = "lt"
		}
		value, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		pq.Comparisons = append(pq.Comparisons, models.Comparison{Operator: op, Value: value})
	}
}

// firstUserID digs the first matched user id out of a search result.
func firstUserID(res *collaborator.Result) string {
	if res.Data == nil {
		return ""
	}
	users, ok := res.Data["users"].([]interface{})
	if !ok || len(users) == 0 {
		return ""
	}
	first, ok := users[0].(map[string]interface{})
	if !ok {
		return ""
	}
	if id, ok := first["id"].(string); ok {
		return id
	}
	return ""
}

// internal/interpreter/enhance/enhance_test.go
package enhance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bugtracker-assistant/internal/collaborator"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/models"
)

// fakeUsers returns canned search results keyed by the searched name.
type fakeUsers struct {
	results map[string]*collaborator.Result
	err     error
	calls   []string
}

func (f *fakeUsers) Search(_ context.Context, _ string, text string, _ map[string]interface{}) (*collaborator.Result, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.results[text]; ok {
		return res, nil
	}
	return &collaborator.Result{Success: true, Data: map[string]interface{}{"users": []interface{}{}}}, nil
}

func (f *fakeUsers) Profile(context.Context, string, string) (*collaborator.Result, error) {
	return &collaborator.Result{Success: true}, nil
}

func (f *fakeUsers) TeamMembers(context.Context, string, string) (*collaborator.Result, error) {
	return &collaborator.Result{Success: true}, nil
}

func userResult(ids ...string) *collaborator.Result {
	users := []interface{}{}
	for _, id := range ids {
		users = append(users, map[string]interface{}{"id": id})
	}
	return &collaborator.Result{Success: true, Data: map[string]interface{}{"users": users}}
}

func newQuery(message string) *models.ParsedQuery {
	return models.NewParsedQuery(message)
}

func TestEnhance_TeamSelfReference(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))
	conv := models.NewConversationContext("u1")
	conv.CurrentTeam = &models.TeamRef{ID: "t-9", Name: "Falcons"}

	pq := newQuery("show my team members")
	e.Enhance(context.Background(), "u1", conv, pq)

	assert.Equal(t, "t-9", pq.Entities["teamId"])
	assert.Equal(t, "Falcons", pq.Entities["teamName"])
}

func TestEnhance_TeamSelfReferenceWithoutCurrentTeam(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))
	pq := newQuery("show this team")
	e.Enhance(context.Background(), "u1", models.NewConversationContext("u1"), pq)
	assert.False(t, pq.Entities.Has("teamId"))
}

func TestEnhance_MeResolvesToCaller(t *testing.T) {
	users := &fakeUsers{}
	e := New(users, logger.NewTestLogger(t))

	pq := newQuery("assign bug #4 to me")
	pq.Entities["assigneeName"] = "me"
	e.Enhance(context.Background(), "caller-1", models.NewConversationContext("caller-1"), pq)

	assert.Equal(t, "caller-1", pq.Entities["assignedUserId"])
	assert.Empty(t, users.calls, "no lookup for self references")
}

func TestEnhance_NameResolvesThroughSearch(t *testing.T) {
	users := &fakeUsers{results: map[string]*collaborator.Result{
		"John": userResult("u-john", "u-johnny"),
	}}
	e := New(users, logger.NewTestLogger(t))

	pq := newQuery("assign bug #4 to John")
	pq.Entities["assigneeName"] = "John"
	e.Enhance(context.Background(), "caller-1", models.NewConversationContext("caller-1"), pq)

	// first match wins
	assert.Equal(t, "u-john", pq.Entities["assignedUserId"])
}

func TestEnhance_UnresolvedAssigneeRecorded(t *testing.T) {
	tests := []struct {
		name  string
		users *fakeUsers
	}{
		{name: "no matches", users: &fakeUsers{}},
		{name: "lookup error", users: &fakeUsers{err: errors.New("connection refused")}},
		{name: "domain failure", users: &fakeUsers{results: map[string]*collaborator.Result{
			"Ghost": collaborator.Fail("directory unavailable", "UPSTREAM_DOWN"),
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(tt.users, logger.NewTestLogger(t))
			pq := newQuery("assign bug #4 to Ghost")
			pq.Entities["assigneeName"] = "Ghost"
			e.Enhance(context.Background(), "caller-1", models.NewConversationContext("caller-1"), pq)

			assert.False(t, pq.Entities.Has("assignedUserId"))
			assert.Equal(t, "Ghost", pq.Entities["unresolvedAssignee"])
		})
	}
}

func TestEnhance_BugLiteralBeatsBackReference(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))
	conv := models.NewConversationContext("u1")
	conv.PushRecentBug(models.BugRef{ID: "99"})

	pq := newQuery("close bug #42")
	e.Enhance(context.Background(), "u1", conv, pq)
	assert.Equal(t, "42", pq.Entities["bugId"])
}

func TestEnhance_BugBackReference(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))
	conv := models.NewConversationContext("u1")
	conv.PushRecentBug(models.BugRef{ID: "7"})
	conv.PushRecentBug(models.BugRef{ID: "8"})

	pq := newQuery("close that bug")
	e.Enhance(context.Background(), "u1", conv, pq)

	// most recently mentioned wins
	assert.Equal(t, "8", pq.Entities["bugId"])
}

func TestEnhance_BugBackReferenceWithoutHistory(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))
	pq := newQuery("close that bug")
	e.Enhance(context.Background(), "u1", models.NewConversationContext("u1"), pq)
	assert.False(t, pq.Entities.Has("bugId"))
	assert.Equal(t, true, pq.Entities["unresolvedBugRef"])
}

func TestEnhance_TemporalPhrases(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		phrase string
		days   int
		since  time.Time
	}{
		{phrase: "today", days: 0, since: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{phrase: "yesterday", days: 1, since: now.AddDate(0, 0, -1)},
		{phrase: "this week", days: 7, since: now.AddDate(0, 0, -7)},
		{phrase: "last week", days: 14, since: now.AddDate(0, 0, -14)},
		{phrase: "this month", days: 30, since: now.AddDate(0, 0, -30)},
		{phrase: "last month", days: 60, since: now.AddDate(0, 0, -60)},
	}

	for _, tt := range tests {
		t.Run(tt.phrase, func(t *testing.T) {
			e := New(&fakeUsers{}, logger.NewTestLogger(t)).WithClock(func() time.Time { return now })
			pq := newQuery("show bugs from " + tt.phrase)
			e.Enhance(context.Background(), "u1", models.NewConversationContext("u1"), pq)

			assert.Len(t, pq.TimeRanges, 1)
			assert.Equal(t, tt.phrase, pq.TimeRanges[0].Phrase)
			assert.Equal(t, tt.days, pq.TimeRanges[0].Days)
			assert.Equal(t, tt.since, pq.TimeRanges[0].Since)
			assert.Equal(t, tt.since.UTC().Format(time.RFC3339), pq.Filters["since"])
		})
	}
}

func TestEnhance_Comparisons(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))

	tests := []struct {
		message  string
		operator string
		value    int
	}{
		{message: "teams with more than 5 members", operator: "gt", value: 5},
		{message: "bugs with fewer than 3 comments", operator: "lt", value: 3},
		{message: "teams with members equal to 10", operator: "eq", value: 10},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			pq := newQuery(tt.message)
			e.Enhance(context.Background(), "u1", models.NewConversationContext("u1"), pq)

			assert.Len(t, pq.Comparisons, 1)
			assert.Equal(t, tt.operator, pq.Comparisons[0].Operator)
			assert.Equal(t, tt.value, pq.Comparisons[0].Value)
		})
	}
}

func TestEnhance_ComparisonValueBeyondIntRangeIgnored(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))

	pq := newQuery("teams with more than 99999999999999999999999 members")
	e.Enhance(context.Background(), "u1", models.NewConversationContext("u1"), pq)

	assert.Empty(t, pq.Comparisons)
}

func TestEnhance_DoesNotOverwriteExtractedEntities(t *testing.T) {
	e := New(&fakeUsers{}, logger.NewTestLogger(t))
	conv := models.NewConversationContext("u1")
	conv.PushRecentBug(models.BugRef{ID: "1"})

	pq := newQuery("close that bug")
	pq.Entities["bugId"] = "explicit"
	e.Enhance(context.Background(), "u1", conv, pq)
	assert.Equal(t, "explicit", pq.Entities["bugId"])
}

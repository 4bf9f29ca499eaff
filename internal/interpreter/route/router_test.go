// internal/interpreter/route/router_test.go
package route

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugtracker-assistant/internal/collaborator"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/contextstore"
	"bugtracker-assistant/internal/models"
	"bugtracker-assistant/pkg/catalog"
)

// ==========================
// Test Helper Functions
// ==========================

// call records one collaborator invocation for order/argument assertions.
type call struct {
	op   string
	args map[string]interface{}
}

// fakeOps implements every collaborator contract with canned results.
type fakeOps struct {
	mu      sync.Mutex
	calls   []call
	results map[string]*collaborator.Result
	errs    map[string]error
	delays  map[string]time.Duration
}

func newFakeOps() *fakeOps {
	return &fakeOps{
		results: map[string]*collaborator.Result{},
		errs:    map[string]error{},
		delays:  map[string]time.Duration{},
	}
}

func (f *fakeOps) record(op string, args map[string]interface{}) (*collaborator.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{op: op, args: args})
	delay := f.delays[op]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err := f.errs[op]; err != nil {
		return nil, err
	}
	if res := f.results[op]; res != nil {
		return res, nil
	}
	return collaborator.Ok("ok", map[string]interface{}{}), nil
}

func (f *fakeOps) calledOps() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.op
	}
	return out
}

func (f *fakeOps) List(_ context.Context, userID string, filters map[string]interface{}, opts collaborator.ListOptions) (*collaborator.Result, error) {
	return f.record("bugs.list", map[string]interface{}{"userId": userID, "filters": filters, "limit": opts.Limit})
}
func (f *fakeOps) Create(_ context.Context, data map[string]interface{}, userID string) (*collaborator.Result, error) {
	return f.record("bugs.create", map[string]interface{}{"data": data, "userId": userID})
}
func (f *fakeOps) UpdateStatus(_ context.Context, bugID, status, userID string) (*collaborator.Result, error) {
	return f.record("bugs.updateStatus", map[string]interface{}{"bugId": bugID, "status": status})
}
func (f *fakeOps) Assign(_ context.Context, bugID string, userIDs []string, performerID string) (*collaborator.Result, error) {
	return f.record("bugs.assign", map[string]interface{}{"bugId": bugID, "userIds": userIDs})
}
func (f *fakeOps) Search(_ context.Context, userID, text string) (*collaborator.Result, error) {
	return f.record("bugs.search", map[string]interface{}{"text": text})
}
func (f *fakeOps) Stats(_ context.Context, userID string) (*collaborator.Result, error) {
	return f.record("bugs.stats", map[string]interface{}{"userId": userID})
}

type fakeTeams struct{ *fakeOps }

func (f fakeTeams) ListForUser(_ context.Context, userID string) (*collaborator.Result, error) {
	return f.record("teams.listForUser", map[string]interface{}{"userId": userID})
}
func (f fakeTeams) Create(_ context.Context, data map[string]interface{}, userID string) (*collaborator.Result, error) {
	return f.record("teams.create", map[string]interface{}{"data": data})
}
func (f fakeTeams) Details(_ context.Context, userID, teamID string) (*collaborator.Result, error) {
	return f.record("teams.details", map[string]interface{}{"teamId": teamID})
}
func (f fakeTeams) AddMember(_ context.Context, teamID, identifier, role, performerID string) (*collaborator.Result, error) {
	return f.record("teams.addMember", map[string]interface{}{"teamId": teamID, "identifier": identifier, "role": role})
}
func (f fakeTeams) Search(_ context.Context, userID, text string) (*collaborator.Result, error) {
	return f.record("teams.search", map[string]interface{}{"text": text})
}
func (f fakeTeams) Stats(_ context.Context, userID string) (*collaborator.Result, error) {
	return f.record("teams.stats", map[string]interface{}{"userId": userID})
}

type fakeUsers struct{ *fakeOps }

func (f fakeUsers) Search(_ context.Context, userID, text string, filters map[string]interface{}) (*collaborator.Result, error) {
	return f.record("users.search", map[string]interface{}{"text": text})
}
func (f fakeUsers) Profile(_ context.Context, userID, targetID string) (*collaborator.Result, error) {
	return f.record("users.profile", map[string]interface{}{"targetId": targetID})
}
func (f fakeUsers) TeamMembers(_ context.Context, userID, teamID string) (*collaborator.Result, error) {
	return f.record("users.teamMembers", map[string]interface{}{"teamId": teamID})
}

type fakeComments struct{ *fakeOps }

func (f fakeComments) List(_ context.Context, userID, bugID string) (*collaborator.Result, error) {
	return f.record("comments.list", map[string]interface{}{"bugId": bugID})
}
func (f fakeComments) Create(_ context.Context, bugID, text, userID string) (*collaborator.Result, error) {
	return f.record("comments.create", map[string]interface{}{"bugId": bugID, "text": text})
}
func (f fakeComments) Search(_ context.Context, userID, text string) (*collaborator.Result, error) {
	return f.record("comments.search", map[string]interface{}{"text": text})
}

type fakeFiles struct{ *fakeOps }

func (f fakeFiles) List(_ context.Context, userID, bugID string) (*collaborator.Result, error) {
	return f.record("files.list", map[string]interface{}{"bugId": bugID})
}
func (f fakeFiles) Attach(_ context.Context, bugID, fileName, userID string) (*collaborator.Result, error) {
	return f.record("files.attach", map[string]interface{}{"bugId": bugID, "fileName": fileName})
}
func (f fakeFiles) Search(_ context.Context, userID, text string) (*collaborator.Result, error) {
	return f.record("files.search", map[string]interface{}{"text": text})
}

func newTestRouter(t *testing.T, fake *fakeOps) *Router {
	cat, err := catalog.Load()
	require.NoError(t, err)
	set := &collaborator.Set{
		Bugs:     fake,
		Teams:    fakeTeams{fake},
		Users:    fakeUsers{fake},
		Comments: fakeComments{fake},
		Files:    fakeFiles{fake},
	}
	return New(set, contextstore.NewMemoryStore(), cat, time.Second, logger.NewTestLogger(t))
}

func newRequest(userID string, pq *models.ParsedQuery) *Request {
	return &Request{
		UserID: userID,
		Conv:   models.NewConversationContext(userID),
		Query:  pq,
	}
}

func query(intent string, entities models.Entities) *models.ParsedQuery {
	pq := models.NewParsedQuery("")
	pq.Intent = intent
	for k, v := range entities {
		pq.Entities[k] = v
	}
	return pq
}

// ==========================
// Dispatch tests
// ==========================

func TestDispatch_BugCreate(t *testing.T) {
	fake := newFakeOps()
	r := newTestRouter(t, fake)

	pq := query(models.IntentBugCreate, models.Entities{"title": "Login fails", "priority": "high"})
	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	require.True(t, res.Success)
	require.Len(t, fake.calls, 1)
	data := fake.calls[0].args["data"].(map[string]interface{})
	assert.Equal(t, "Login fails", data["title"])
	assert.Equal(t, "high", data["priority"])
}

func TestDispatch_MissingRequiredEntityAsksInsteadOfFailing(t *testing.T) {
	fake := newFakeOps()
	r := newTestRouter(t, fake)

	pq := query(models.IntentBugCreate, models.Entities{})
	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "For example")
	assert.Empty(t, fake.calls, "no collaborator call without the required entity")
	assert.Equal(t, []string{"title"}, res.Data["missingEntities"])
}

func TestDispatch_UnresolvedBugBackRefNeedsContext(t *testing.T) {
	fake := newFakeOps()
	r := newTestRouter(t, fake)

	pq := query(models.IntentBugClose, models.Entities{"unresolvedBugRef": true})
	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	assert.False(t, res.Success)
	assert.True(t, res.NeedsContext)
	assert.Equal(t, []string{"bugId"}, res.MissingDependencies)
}

func TestDispatch_CollaboratorErrorBecomesResult(t *testing.T) {
	fake := newFakeOps()
	fake.errs["bugs.list"] = errors.New("dial tcp: connection refused")
	r := newTestRouter(t, fake)

	res := r.Dispatch(context.Background(), newRequest("u1", query(models.IntentBugList, nil)))

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Message)
	assert.NotContains(t, res.Message, "dial tcp", "internal detail stays out of user text")
	assert.Contains(t, res.Error, "connection refused")
}

func TestDispatch_PresetListIntents(t *testing.T) {
	tests := []struct {
		intent string
		key    string
		value  interface{}
	}{
		{intent: models.IntentMyBugs, key: "assignedUserId", value: "u1"},
		{intent: models.IntentUnassignedBugs, key: "unassigned", value: true},
		{intent: models.IntentCriticalBugs, key: "priority", value: "high"},
	}
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			fake := newFakeOps()
			r := newTestRouter(t, fake)
			res := r.Dispatch(context.Background(), newRequest("u1", query(tt.intent, nil)))
			require.True(t, res.Success)
			filters := fake.calls[0].args["filters"].(map[string]interface{})
			assert.Equal(t, tt.value, filters[tt.key])
		})
	}
}

func TestDispatch_BugCloseAndReopenUseFixedStatus(t *testing.T) {
	for intent, status := range map[string]string{
		models.IntentBugClose:  "closed",
		models.IntentBugReopen: "open",
	} {
		fake := newFakeOps()
		r := newTestRouter(t, fake)
		res := r.Dispatch(context.Background(), newRequest("u1", query(intent, models.Entities{"bugId": "42"})))
		require.True(t, res.Success)
		assert.Equal(t, status, fake.calls[0].args["status"])
		assert.Equal(t, "42", fake.calls[0].args["bugId"])
	}
}

func TestDispatch_SoleTeamDefault(t *testing.T) {
	fake := newFakeOps()
	fake.results["teams.listForUser"] = &collaborator.Result{
		Success: true,
		Data: map[string]interface{}{"teams": []interface{}{
			map[string]interface{}{"id": "t-1", "name": "Falcons"},
		}},
	}
	r := newTestRouter(t, fake)

	res := r.Dispatch(context.Background(), newRequest("u1", query(models.IntentTeamMembers, nil)))

	require.True(t, res.Success)
	ops := fake.calledOps()
	require.Equal(t, []string{"teams.listForUser", "users.teamMembers"}, ops)
	assert.Equal(t, "t-1", fake.calls[1].args["teamId"])
}

func TestDispatch_SoleTeamDefaultNotAppliedForMultipleTeams(t *testing.T) {
	fake := newFakeOps()
	fake.results["teams.listForUser"] = &collaborator.Result{
		Success: true,
		Data: map[string]interface{}{"teams": []interface{}{
			map[string]interface{}{"id": "t-1"},
			map[string]interface{}{"id": "t-2"},
		}},
	}
	r := newTestRouter(t, fake)

	res := r.Dispatch(context.Background(), newRequest("u1", query(models.IntentTeamMembers, nil)))

	assert.False(t, res.Success)
	assert.Equal(t, []string{"teams.listForUser"}, fake.calledOps(), "ambiguous team asks instead of guessing")
}

func TestDispatch_CurrentTeamBeatsSoleTeamLookup(t *testing.T) {
	fake := newFakeOps()
	r := newTestRouter(t, fake)

	req := newRequest("u1", query(models.IntentTeamMembers, nil))
	req.Conv.CurrentTeam = &models.TeamRef{ID: "t-current", Name: "Falcons"}
	res := r.Dispatch(context.Background(), req)

	require.True(t, res.Success)
	assert.Equal(t, []string{"users.teamMembers"}, fake.calledOps())
	assert.Equal(t, "t-current", fake.calls[0].args["teamId"])
}

func TestDispatch_TeamNameResolvesThroughSearch(t *testing.T) {
	fake := newFakeOps()
	fake.results["teams.search"] = &collaborator.Result{
		Success: true,
		Data: map[string]interface{}{"teams": []interface{}{
			map[string]interface{}{"id": "t-9", "name": "Falcons"},
		}},
	}
	r := newTestRouter(t, fake)

	pq := query(models.IntentTeamSwitch, models.Entities{"teamName": "Falcons"})
	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	require.True(t, res.Success)
	assert.Equal(t, []string{"teams.search", "teams.details"}, fake.calledOps())
	assert.Equal(t, "t-9", fake.calls[1].args["teamId"])
	assert.Equal(t, true, res.Data["switched"])
}

func TestDispatch_ContextClear(t *testing.T) {
	fake := newFakeOps()
	store := contextstore.NewMemoryStore()
	cat, err := catalog.Load()
	require.NoError(t, err)
	set := &collaborator.Set{Bugs: fake, Teams: fakeTeams{fake}, Users: fakeUsers{fake}, Comments: fakeComments{fake}, Files: fakeFiles{fake}}
	r := New(set, store, cat, time.Second, logger.NewTestLogger(t))

	ctx := context.Background()
	require.NoError(t, store.Update(ctx, "u1", func(c *models.ConversationContext) {
		c.CurrentTeam = &models.TeamRef{ID: "t-1"}
	}))

	res := r.Dispatch(ctx, newRequest("u1", query(models.IntentContextClear, nil)))
	require.True(t, res.Success)
	assert.Equal(t, true, res.Data["contextCleared"])

	c, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, c.CurrentTeam)
}

func TestDispatch_UnknownIntentFallsThrough(t *testing.T) {
	fake := newFakeOps()
	r := newTestRouter(t, fake)
	res := r.Dispatch(context.Background(), newRequest("u1", query("no_such_intent", nil)))
	assert.True(t, res.Success)
	assert.Empty(t, fake.calls)
}

// ==========================
// Dashboard fan-out
// ==========================

func TestDispatch_DashboardMergesInInitiationOrder(t *testing.T) {
	fake := newFakeOps()
	// the first-initiated call finishes last; merge order must not change
	fake.delays["bugs.stats"] = 50 * time.Millisecond
	fake.results["bugs.stats"] = &collaborator.Result{Success: true, Data: map[string]interface{}{"total": 12}}
	fake.results["teams.listForUser"] = &collaborator.Result{Success: true, Data: map[string]interface{}{"teams": []interface{}{}}}
	r := newTestRouter(t, fake)

	res := r.Dispatch(context.Background(), newRequest("u1", query(models.IntentDashboard, nil)))

	require.True(t, res.Success)
	stats := res.Data["stats"].(map[string]interface{})
	assert.Equal(t, true, stats["success"])
	assert.Equal(t, 12, stats["total"])
	assert.Contains(t, res.Data, "teams")
	assert.Contains(t, res.Data, "recentBugs")
}

func TestDispatch_DashboardPartialFailure(t *testing.T) {
	fake := newFakeOps()
	fake.errs["bugs.stats"] = errors.New("boom")
	r := newTestRouter(t, fake)

	res := r.Dispatch(context.Background(), newRequest("u1", query(models.IntentDashboard, nil)))

	require.True(t, res.Success, "one healthy section keeps the dashboard usable")
	stats := res.Data["stats"].(map[string]interface{})
	assert.Equal(t, false, stats["success"])
}

// ==========================
// Composite execution
// ==========================

func TestDispatch_CompositeRunsSegmentsInOrder(t *testing.T) {
	fake := newFakeOps()
	r := newTestRouter(t, fake)

	pq := models.NewParsedQuery("create a bug and then show all bugs")
	pq.IsComposite = true
	pq.QueryType = models.QueryTypeComposite
	pq.SubQueries = []*models.ParsedQuery{
		query(models.IntentBugCreate, models.Entities{"title": "Login fails"}),
		query(models.IntentBugList, nil),
	}

	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	require.True(t, res.Success)
	assert.Equal(t, []string{"bugs.create", "bugs.list"}, fake.calledOps())
	segments := res.Data["segments"].([]map[string]interface{})
	require.Len(t, segments, 2)
	assert.Equal(t, models.IntentBugCreate, segments[0]["intent"])
}

func TestDispatch_CompositeThreadsBugIntoDependentSegment(t *testing.T) {
	fake := newFakeOps()
	fake.results["bugs.create"] = &collaborator.Result{
		Success: true,
		Data:    map[string]interface{}{"bug": map[string]interface{}{"id": "bug-77", "title": "Login fails"}},
	}
	r := newTestRouter(t, fake)

	second := query(models.IntentBugAssign, models.Entities{"assignedUserId": "u-john", "unresolvedBugRef": true})
	second.IsDependentQuery = true

	pq := models.NewParsedQuery("create a bug and then assign that bug to John")
	pq.IsComposite = true
	pq.SubQueries = []*models.ParsedQuery{
		query(models.IntentBugCreate, models.Entities{"title": "Login fails"}),
		second,
	}

	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	require.True(t, res.Success)
	var assign *call
	for i := range fake.calls {
		if fake.calls[i].op == "bugs.assign" {
			assign = &fake.calls[i]
		}
	}
	require.NotNil(t, assign)
	assert.Equal(t, "bug-77", assign.args["bugId"])
}

func TestDispatch_CompositeReportsPartialFailure(t *testing.T) {
	fake := newFakeOps()
	fake.errs["bugs.list"] = errors.New("down")
	r := newTestRouter(t, fake)

	pq := models.NewParsedQuery("create a bug and then show all bugs")
	pq.IsComposite = true
	pq.SubQueries = []*models.ParsedQuery{
		query(models.IntentBugCreate, models.Entities{"title": "x"}),
		query(models.IntentBugList, nil),
	}

	res := r.Dispatch(context.Background(), newRequest("u1", pq))

	assert.False(t, res.Success)
	segments := res.Data["segments"].([]map[string]interface{})
	assert.Equal(t, true, segments[0]["success"])
	assert.Equal(t, false, segments[1]["success"])
}

// internal/interpreter/route/handlers.go
package route

import (
	"context"
	"sync"

	"bugtracker-assistant/internal/collaborator"
	"bugtracker-assistant/internal/models"
)

// buildTable returns the full intent dispatch table. Intents without an
// entry fall through to general_query.
func buildTable() map[string]entry {
	return map[string]entry{
		models.IntentGreeting:     {handle: handleLocalAck},
		models.IntentHelp:         {handle: handleLocalAck},
		models.IntentGoodbye:      {handle: handleLocalAck},
		models.IntentGeneralQuery: {handle: handleLocalAck},
		models.IntentContextClear: {handle: handleContextClear},

		models.IntentBugCreate:       {requiredEntities: []string{"title"}, handle: handleBugCreate},
		models.IntentBugList:         {handle: handleBugList},
		models.IntentBugDetails:      {requiredEntities: []string{"bugId"}, handle: handleBugDetails},
		models.IntentBugUpdateStatus: {requiredEntities: []string{"bugId", "status"}, handle: handleBugUpdateStatus},
		models.IntentBugClose:        {requiredEntities: []string{"bugId"}, handle: fixedStatusHandler("closed")},
		models.IntentBugReopen:       {requiredEntities: []string{"bugId"}, handle: fixedStatusHandler("open")},
		models.IntentBugAssign:       {requiredEntities: []string{"bugId", "assignedUserId"}, handle: handleBugAssign},
		models.IntentBugSearch:       {requiredEntities: []string{"query"}, handle: handleBugSearch},
		models.IntentBugStats:        {handle: handleBugStats},
		models.IntentMyBugs:          {handle: presetListHandler(func(req *Request) map[string]interface{} { return map[string]interface{}{"assignedUserId": req.UserID} })},
		models.IntentUnassignedBugs:  {handle: presetListHandler(func(*Request) map[string]interface{} { return map[string]interface{}{"unassigned": true} })},
		models.IntentCriticalBugs:    {handle: presetListHandler(func(*Request) map[string]interface{} { return map[string]interface{}{"priority": "high"} })},
		models.IntentRecentBugs:      {handle: handleRecentBugs},

		models.IntentCommentAdd:    {requiredEntities: []string{"bugId", "text"}, handle: handleCommentAdd},
		models.IntentCommentList:   {requiredEntities: []string{"bugId"}, handle: handleCommentList},
		models.IntentCommentSearch: {requiredEntities: []string{"query"}, handle: handleCommentSearch},

		models.IntentFileAttach: {requiredEntities: []string{"bugId", "fileName"}, handle: handleFileAttach},
		models.IntentFileList:   {requiredEntities: []string{"bugId"}, handle: handleFileList},
		models.IntentFileSearch: {requiredEntities: []string{"query"}, handle: handleFileSearch},

		models.IntentTeamCreate:    {requiredEntities: []string{"teamName"}, handle: handleTeamCreate},
		models.IntentTeamList:      {handle: handleTeamList},
		models.IntentTeamDetails:   {requiredEntities: []string{"teamId"}, handle: handleTeamDetails},
		models.IntentTeamSwitch:    {requiredEntities: []string{"teamId"}, handle: handleTeamSwitch},
		models.IntentTeamAddMember: {requiredEntities: []string{"teamId", "memberIdentifier"}, handle: handleTeamAddMember},
		models.IntentTeamMembers:   {requiredEntities: []string{"teamId"}, handle: handleTeamMembers},
		models.IntentTeamSearch:    {requiredEntities: []string{"query"}, handle: handleTeamSearch},
		models.IntentTeamStats:     {handle: handleTeamStats},

		models.IntentUserSearch:  {requiredEntities: []string{"query"}, handle: handleUserSearch},
		models.IntentUserProfile: {requiredEntities: []string{"targetUserId"}, handle: handleUserProfile},
		models.IntentWhoAmI:      {handle: handleWhoAmI},

		models.IntentDashboard: {handle: handleDashboard},
		models.IntentAnalytics: {handle: handleAnalytics},
	}
}

// ==========================================================================
// Local intents (no collaborator involved)
// ==========================================================================

func handleLocalAck(_ context.Context, _ *Router, _ *Request) *models.ActionResult {
	// text comes from the catalog response templates downstream
	return &models.ActionResult{Success: true}
}

func handleContextClear(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	if err := r.store.Clear(ctx, req.UserID); err != nil {
		r.log.Error("context clear failed", map[string]interface{}{"error": err.Error()})
		return &models.ActionResult{
			Success: false,
			Message: "I couldn't reset our conversation. Please try again.",
			Error:   err.Error(),
		}
	}
	return &models.ActionResult{
		Success: true,
		Message: "Done, I've forgotten our earlier conversation.",
		Data:    map[string]interface{}{"contextCleared": true},
	}
}

// ==========================================================================
// Bug intents
// ==========================================================================

func handleBugCreate(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	data := map[string]interface{}{"title": req.Query.Entities["title"]}
	if p, ok := req.Query.Entities.GetString("priority"); ok {
		data["priority"] = p
	}
	if s, ok := req.Query.Entities.GetString("status"); ok {
		data["status"] = s
	}
	if id, ok := req.Query.Entities.GetString("teamId"); ok {
		data["teamId"] = id
	}
	return r.call(ctx, "bugs.create", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.Create(c, data, req.UserID)
	})
}

func handleBugList(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	return r.call(ctx, "bugs.list", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.List(c, req.UserID, listFilters(req.Query), collaborator.ListOptions{})
	})
}

func presetListHandler(preset func(*Request) map[string]interface{}) handlerFunc {
	return func(ctx context.Context, r *Router, req *Request) *models.ActionResult {
		filters := listFilters(req.Query)
		for k, v := range preset(req) {
			filters[k] = v
		}
		return r.call(ctx, "bugs.list", func(c context.Context) (*collaborator.Result, error) {
			return r.ops.Bugs.List(c, req.UserID, filters, collaborator.ListOptions{})
		})
	}
}

func handleRecentBugs(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	return r.call(ctx, "bugs.list", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.List(c, req.UserID, listFilters(req.Query), collaborator.ListOptions{
			Limit:  10,
			SortBy: "-createdAt",
		})
	})
}

func handleBugDetails(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	return r.call(ctx, "bugs.list", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.List(c, req.UserID, map[string]interface{}{"id": bugID}, collaborator.ListOptions{Limit: 1})
	})
}

func handleBugUpdateStatus(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	status, _ := req.Query.Entities.GetString("status")
	return r.call(ctx, "bugs.updateStatus", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.UpdateStatus(c, bugID, status, req.UserID)
	})
}

func fixedStatusHandler(status string) handlerFunc {
	return func(ctx context.Context, r *Router, req *Request) *models.ActionResult {
		bugID, _ := req.Query.Entities.GetString("bugId")
		return r.call(ctx, "bugs.updateStatus", func(c context.Context) (*collaborator.Result, error) {
			return r.ops.Bugs.UpdateStatus(c, bugID, status, req.UserID)
		})
	}
}

func handleBugAssign(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	assignee, _ := req.Query.Entities.GetString("assignedUserId")
	return r.call(ctx, "bugs.assign", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.Assign(c, bugID, []string{assignee}, req.UserID)
	})
}

func handleBugSearch(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	query, _ := req.Query.Entities.GetString("query")
	return r.call(ctx, "bugs.search", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.Search(c, req.UserID, query)
	})
}

func handleBugStats(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	return r.call(ctx, "bugs.stats", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Bugs.Stats(c, req.UserID)
	})
}

func handleAnalytics(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	res := handleBugStats(ctx, r, req)
	if res.Success {
		if res.Data == nil {
			res.Data = map[string]interface{}{}
		}
		res.Data["analytics"] = true
		if len(req.Query.TimeRanges) > 0 {
			res.Data["timeRange"] = req.Query.TimeRanges[0].Phrase
		}
	}
	return res
}

// listFilters copies extracted filters plus filter-shaped entities into a
// fresh map for a list call.
func listFilters(pq *models.ParsedQuery) map[string]interface{} {
	filters := map[string]interface{}{}
	for k, v := range pq.Filters {
		filters[k] = v
	}
	for _, key := range []string{"status", "priority", "teamId"} {
		if v, ok := pq.Entities[key]; ok {
			filters[key] = v
		}
	}
	return filters
}

// ==========================================================================
// Comment and file intents
// ==========================================================================

func handleCommentAdd(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	text, _ := req.Query.Entities.GetString("text")
	return r.call(ctx, "comments.create", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Comments.Create(c, bugID, text, req.UserID)
	})
}

func handleCommentList(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	return r.call(ctx, "comments.list", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Comments.List(c, req.UserID, bugID)
	})
}

func handleCommentSearch(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	query, _ := req.Query.Entities.GetString("query")
	return r.call(ctx, "comments.search", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Comments.Search(c, req.UserID, query)
	})
}

func handleFileAttach(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	fileName, _ := req.Query.Entities.GetString("fileName")
	return r.call(ctx, "files.attach", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Files.Attach(c, bugID, fileName, req.UserID)
	})
}

func handleFileList(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	bugID, _ := req.Query.Entities.GetString("bugId")
	return r.call(ctx, "files.list", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Files.List(c, req.UserID, bugID)
	})
}

func handleFileSearch(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	query, _ := req.Query.Entities.GetString("query")
	return r.call(ctx, "files.search", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Files.Search(c, req.UserID, query)
	})
}

// ==========================================================================
// Team intents
// ==========================================================================

func handleTeamCreate(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	name, _ := req.Query.Entities.GetString("teamName")
	return r.call(ctx, "teams.create", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.Create(c, map[string]interface{}{"name": name}, req.UserID)
	})
}

func handleTeamList(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	return r.call(ctx, "teams.listForUser", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.ListForUser(c, req.UserID)
	})
}

func handleTeamDetails(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	teamID, _ := req.Query.Entities.GetString("teamId")
	return r.call(ctx, "teams.details", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.Details(c, req.UserID, teamID)
	})
}

// handleTeamSwitch fetches the team so the caller can promote it to the
// conversation's current team from the result data.
func handleTeamSwitch(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	res := handleTeamDetails(ctx, r, req)
	if res.Success {
		if res.Data == nil {
			res.Data = map[string]interface{}{}
		}
		if _, ok := res.Data["team"]; !ok {
			res.Data["team"] = map[string]interface{}{
				"id":   req.Query.Entities["teamId"],
				"name": req.Query.Entities["teamName"],
			}
		}
		res.Data["switched"] = true
	}
	return res
}

func handleTeamAddMember(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	teamID, _ := req.Query.Entities.GetString("teamId")
	identifier, _ := req.Query.Entities.GetString("memberIdentifier")
	return r.call(ctx, "teams.addMember", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.AddMember(c, teamID, identifier, "member", req.UserID)
	})
}

func handleTeamMembers(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	teamID, _ := req.Query.Entities.GetString("teamId")
	return r.call(ctx, "users.teamMembers", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Users.TeamMembers(c, req.UserID, teamID)
	})
}

func handleTeamSearch(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	query, _ := req.Query.Entities.GetString("query")
	return r.call(ctx, "teams.search", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.Search(c, req.UserID, query)
	})
}

func handleTeamStats(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	return r.call(ctx, "teams.stats", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.Stats(c, req.UserID)
	})
}

// ==========================================================================
// User intents
// ==========================================================================

func handleUserSearch(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	query, _ := req.Query.Entities.GetString("query")
	return r.call(ctx, "users.search", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Users.Search(c, req.UserID, query, nil)
	})
}

func handleUserProfile(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	targetID, _ := req.Query.Entities.GetString("targetUserId")
	return r.call(ctx, "users.profile", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Users.Profile(c, req.UserID, targetID)
	})
}

func handleWhoAmI(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	return r.call(ctx, "users.profile", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Users.Profile(c, req.UserID, req.UserID)
	})
}

// ==========================================================================
// Dashboard
// ==========================================================================

// handleDashboard fans out the three dashboard calls concurrently and
// merges them in initiation order, so the summary is stable regardless of
// which call completes first.
func handleDashboard(ctx context.Context, r *Router, req *Request) *models.ActionResult {
	calls := []struct {
		key string
		op  string
		fn  func(context.Context) (*collaborator.Result, error)
	}{
		{"stats", "bugs.stats", func(c context.Context) (*collaborator.Result, error) {
			return r.ops.Bugs.Stats(c, req.UserID)
		}},
		{"teams", "teams.listForUser", func(c context.Context) (*collaborator.Result, error) {
			return r.ops.Teams.ListForUser(c, req.UserID)
		}},
		{"recentBugs", "bugs.list", func(c context.Context) (*collaborator.Result, error) {
			return r.ops.Bugs.List(c, req.UserID, map[string]interface{}{}, collaborator.ListOptions{Limit: 5, SortBy: "-createdAt"})
		}},
	}

	results := make([]*models.ActionResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, op string, fn func(context.Context) (*collaborator.Result, error)) {
			defer wg.Done()
			results[i] = r.call(ctx, op, fn)
		}(i, call.op, call.fn)
	}
	wg.Wait()

	data := map[string]interface{}{}
	anyOK := false
	for i, call := range calls {
		section := map[string]interface{}{"success": results[i].Success}
		if results[i].Success {
			anyOK = true
			for k, v := range results[i].Data {
				section[k] = v
			}
		} else {
			section["error"] = results[i].Message
		}
		data[call.key] = section
	}

	if !anyOK {
		return &models.ActionResult{
			Success: false,
			Message: "I couldn't load your dashboard right now. Please try again.",
			Data:    data,
		}
	}
	return &models.ActionResult{
		Success: true,
		Message: "Here's your dashboard.",
		Data:    data,
	}
}

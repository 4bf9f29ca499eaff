// Package route dispatches a classified, extracted query to the matching
// collaborator call. The dispatch table is data built at init, not a
// branching control structure; the executor validates required entities,
// applies the sole-team default, orchestrates composite and dependent
// queries and converts every collaborator failure into a structured
// ActionResult. No error and no panic crosses this package's boundary
// upward as a Go error.
package route

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bugtracker-assistant/internal/collaborator"
	apperrors "bugtracker-assistant/internal/common/errors"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/common/metrics"
	"bugtracker-assistant/internal/contextstore"
	"bugtracker-assistant/internal/models"
	"bugtracker-assistant/pkg/catalog"
)

// Request is one message's dispatch input.
type Request struct {
	UserID  string
	Profile *models.UserProfile
	Conv    *models.ConversationContext
	Query   *models.ParsedQuery
}

// handlerFunc executes one intent against the collaborators. Handlers
// return results, never errors.
type handlerFunc func(ctx context.Context, r *Router, req *Request) *models.ActionResult

// entry is one row of the dispatch table.
type entry struct {
	requiredEntities []string
	handle           handlerFunc
}

// Router executes the dispatch table.
type Router struct {
	entries map[string]entry
	ops     *collaborator.Set
	store   contextstore.Store
	cat     *catalog.Catalog
	log     logger.Logger
	timeout time.Duration
}

// New builds the router with its full dispatch table.
func New(ops *collaborator.Set, store contextstore.Store, cat *catalog.Catalog, callTimeout time.Duration, log logger.Logger) *Router {
	r := &Router{
		ops:     ops,
		store:   store,
		cat:     cat,
		log:     log.WithFields(map[string]interface{}{"stage": "route"}),
		timeout: callTimeout,
	}
	r.entries = buildTable()
	return r
}

// Dispatch routes one query. Composite queries are decomposed upstream and
// arrive with SubQueries populated; everything else takes the simple path.
func (r *Router) Dispatch(ctx context.Context, req *Request) *models.ActionResult {
	if req.Query.IsComposite && len(req.Query.SubQueries) > 1 {
		return r.dispatchComposite(ctx, req)
	}
	return r.dispatchSimple(ctx, req, req.Query)
}

func (r *Router) dispatchSimple(ctx context.Context, req *Request, pq *models.ParsedQuery) *models.ActionResult {
	en, ok := r.entries[pq.Intent]
	if !ok {
		// unknown intents degrade to the general handler, never an error
		en = r.entries[models.IntentGeneralQuery]
	}

	r.applyTeamDefault(ctx, req, pq, en.requiredEntities)

	if missing := missingEntities(pq.Entities, en.requiredEntities); len(missing) > 0 {
		return r.clarify(pq, missing)
	}

	res := en.handle(ctx, r, &Request{
		UserID:  req.UserID,
		Profile: req.Profile,
		Conv:    req.Conv,
		Query:   pq,
	})

	outcome := "failure"
	if res.Success {
		outcome = "success"
	}
	r.log.Info("dispatched", map[string]interface{}{
		"intent":  pq.Intent,
		"outcome": outcome,
	})
	return res
}

// dispatchComposite executes sub-queries left to right. A later dependent
// segment gets the previous segment's bug results threaded into its
// resolution before execution.
func (r *Router) dispatchComposite(ctx context.Context, req *Request) *models.ActionResult {
	segments := make([]map[string]interface{}, 0, len(req.Query.SubQueries))
	allOK := true
	var lastResult *models.ActionResult

	for i, sub := range req.Query.SubQueries {
		if lastResult != nil {
			threadResult(sub, lastResult)
		}

		res := r.dispatchSimple(ctx, req, sub)
		lastResult = res
		if !res.Success {
			allOK = false
		}
		segments = append(segments, map[string]interface{}{
			"index":   i,
			"query":   sub.Raw,
			"intent":  sub.Intent,
			"success": res.Success,
			"message": res.Message,
			"data":    res.Data,
		})
	}

	msg := fmt.Sprintf("Handled %d requests.", len(segments))
	if !allOK {
		msg = "Some of your requests could not be completed."
	}
	return &models.ActionResult{
		Success: allOK,
		Message: msg,
		Data:    map[string]interface{}{"segments": segments},
	}
}

// threadResult resolves a pending bug back-reference in the next segment
// from the previous segment's result.
func threadResult(sub *models.ParsedQuery, prev *models.ActionResult) {
	if !sub.IsDependentQuery && !sub.Entities.Has("unresolvedBugRef") {
		return
	}
	if sub.Entities.Has("bugId") {
		return
	}
	if id := firstBugID(prev.Data); id != "" {
		sub.Entities["bugId"] = id
		delete(sub.Entities, "unresolvedBugRef")
	}
}

// clarify builds the missing-entity response: plain language, example
// phrasings from the catalog, never a thrown error. A missing entity that
// was an unresolvable back-reference becomes a needs-context response with
// the dependency named.
func (r *Router) clarify(pq *models.ParsedQuery, missing []string) *models.ActionResult {
	if pq.Entities.Has("unresolvedBugRef") && contains(missing, "bugId") {
		return &models.ActionResult{
			Success:             false,
			Message:             "I'm not sure which bug you mean. Mention a bug first, for example with 'show all bugs'.",
			NeedsContext:        true,
			MissingDependencies: []string{"bugId"},
		}
	}
	if name, ok := pq.Entities.GetString("unresolvedAssignee"); ok && contains(missing, "assignedUserId") {
		return &models.ActionResult{
			Success:             false,
			Message:             fmt.Sprintf("I couldn't find a user named '%s'. Try their email address.", name),
			NeedsContext:        true,
			MissingDependencies: []string{"assignedUserId"},
		}
	}

	msg := fmt.Sprintf("I need a bit more detail (%s).", strings.Join(missing, ", "))
	if in, ok := r.cat.Get(pq.Intent); ok && len(in.Examples) > 0 {
		msg = fmt.Sprintf("%s For example: %s", msg, strings.Join(quoteAll(in.Examples), " or "))
	}
	return &models.ActionResult{
		Success: false,
		Message: msg,
		Data:    map[string]interface{}{"missingEntities": missing},
	}
}

// applyTeamDefault fills teamId when it is required but absent: an
// extracted team name resolves through search, the current team applies
// next, and a user who belongs to exactly one team gets that team. This is
// the single documented case where an unresolved entity is guessed.
func (r *Router) applyTeamDefault(ctx context.Context, req *Request, pq *models.ParsedQuery, required []string) {
	if !contains(required, "teamId") || pq.Entities.Has("teamId") {
		return
	}

	if name, ok := pq.Entities.GetString("teamName"); ok {
		res := r.call(ctx, "teams.search", func(c context.Context) (*collaborator.Result, error) {
			return r.ops.Teams.Search(c, req.UserID, name)
		})
		if res.Success {
			if id, teamName := firstTeam(res.Data); id != "" {
				pq.Entities["teamId"] = id
				pq.Entities["teamName"] = teamName
				return
			}
		}
	}

	if req.Conv != nil && req.Conv.CurrentTeam != nil {
		pq.Entities["teamId"] = req.Conv.CurrentTeam.ID
		return
	}

	res := r.call(ctx, "teams.listForUser", func(c context.Context) (*collaborator.Result, error) {
		return r.ops.Teams.ListForUser(c, req.UserID)
	})
	if !res.Success {
		return
	}
	teams, ok := res.Data["teams"].([]interface{})
	if !ok || len(teams) != 1 {
		return
	}
	if team, ok := teams[0].(map[string]interface{}); ok {
		if id, _ := team["id"].(string); id != "" {
			pq.Entities["teamId"] = id
			if name, _ := team["name"].(string); name != "" && !pq.Entities.Has("teamName") {
				pq.Entities["teamName"] = name
			}
		}
	}
}

// call wraps one collaborator invocation with the per-call timeout and
// converts any error into a failed ActionResult at this boundary.
func (r *Router) call(ctx context.Context, op string, fn func(context.Context) (*collaborator.Result, error)) *models.ActionResult {
	cctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := fn(cctx)
	if err != nil {
		cerr := apperrors.NewCollaboratorError(op, err, errors.Is(err, context.DeadlineExceeded))
		metrics.InterpretFailures.WithLabelValues(string(cerr.Code)).Inc()
		r.log.Error("collaborator call failed", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
			"retryable": cerr.Retryable,
		})
		return &models.ActionResult{
			Success: false,
			Message: "Something went wrong talking to the tracker. Please try again.",
			Error:   err.Error(),
		}
	}
	if res == nil {
		return &models.ActionResult{
			Success: false,
			Message: "Something went wrong talking to the tracker. Please try again.",
			Error:   "empty collaborator result",
		}
	}
	return &models.ActionResult{
		Success: res.Success,
		Message: res.Message,
		Data:    res.Data,
		Error:   res.Error,
	}
}

func missingEntities(entities models.Entities, required []string) []string {
	missing := []string{}
	for _, key := range required {
		if !entities.Has(key) {
			missing = append(missing, key)
		}
	}
	return missing
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func quoteAll(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = "'" + s + "'"
	}
	return out
}

func firstBugID(data map[string]interface{}) string {
	if data == nil {
		return ""
	}
	if bug, ok := data["bug"].(map[string]interface{}); ok {
		if id, _ := bug["id"].(string); id != "" {
			return id
		}
	}
	if bugs, ok := data["bugs"].([]interface{}); ok && len(bugs) > 0 {
		if bug, ok := bugs[0].(map[string]interface{}); ok {
			if id, _ := bug["id"].(string); id != "" {
				return id
			}
		}
	}
	return ""
}

func firstTeam(data map[string]interface{}) (string, string) {
	if data == nil {
		return "", ""
	}
	if team, ok := data["team"].(map[string]interface{}); ok {
		id, _ := team["id"].(string)
		name, _ := team["name"].(string)
		return id, name
	}
	if teams, ok := data["teams"].([]interface{}); ok && len(teams) > 0 {
		if team, ok := teams[0].(map[string]interface{}); ok {
			id, _ := team["id"].(string)
			name, _ := team["name"].(string)
			return id, name
		}
	}
	return "", ""
}

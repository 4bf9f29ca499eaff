// Package httpapi implements the collaborator contracts over the hosting
// system's JSON HTTP API. Every operation posts a JSON body and decodes
// the uniform Result shape; read operations are retried, writes are not.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"bugtracker-assistant/internal/collaborator"
	"bugtracker-assistant/internal/common/config"
	"bugtracker-assistant/internal/common/httpclient"
	"bugtracker-assistant/internal/common/logger"
	"bugtracker-assistant/internal/common/metrics"
)

type client struct {
	base string
	http *httpclient.Client
	log  logger.Logger
}

// New builds the full collaborator set against one base URL.
func New(cfg config.CollaboratorsConfig, log logger.Logger) *collaborator.Set {
	c := &client{
		base: cfg.BaseURL,
		http: httpclient.New(
			time.Duration(cfg.Timeout)*time.Millisecond,
			cfg.MaxRetries,
			time.Duration(cfg.RetryDelayMs)*time.Millisecond,
		),
		log: log.WithFields(map[string]interface{}{"component": "collaborator.httpapi"}),
	}
	return &collaborator.Set{
		Bugs:     &bugClient{c},
		Teams:    &teamClient{c},
		Users:    &userClient{c},
		Comments: &commentClient{c},
		Files:    &fileClient{c},
	}
}

func (c *client) call(ctx context.Context, op, path string, body map[string]interface{}, idempotent bool) (*collaborator.Result, error) {
	var out collaborator.Result
	err := c.http.DoJSON(ctx, http.MethodPost, c.base+path, body, &out, idempotent)
	if err != nil {
		metrics.CollaboratorCalls.WithLabelValues(op, "error").Inc()
		c.log.Error("collaborator call failed", map[string]interface{}{
			"operation": op,
			"error":     err.Error(),
		})
		return nil, err
	}
	outcome := "failure"
	if out.Success {
		outcome = "success"
	}
	metrics.CollaboratorCalls.WithLabelValues(op, outcome).Inc()
	return &out, nil
}

type bugClient struct{ *client }

func (b *bugClient) List(ctx context.Context, userID string, filters map[string]interface{}, opts collaborator.ListOptions) (*collaborator.Result, error) {
	return b.call(ctx, "bugs.list", "/bugs/list", map[string]interface{}{
		"userId": userID, "filters": filters, "options": opts,
	}, true)
}

func (b *bugClient) Create(ctx context.Context, data map[string]interface{}, userID string) (*collaborator.Result, error) {
	return b.call(ctx, "bugs.create", "/bugs/create", map[string]interface{}{
		"userId": userID, "data": data,
	}, false)
}

func (b *bugClient) UpdateStatus(ctx context.Context, bugID, status, userID string) (*collaborator.Result, error) {
	return b.call(ctx, "bugs.updateStatus", "/bugs/status", map[string]interface{}{
		"userId": userID, "bugId": bugID, "status": status,
	}, false)
}

func (b *bugClient) Assign(ctx context.Context, bugID string, userIDs []string, performerID string) (*collaborator.Result, error) {
	return b.call(ctx, "bugs.assign", "/bugs/assign", map[string]interface{}{
		"performerId": performerID, "bugId": bugID, "userIds": userIDs,
	}, false)
}

func (b *bugClient) Search(ctx context.Context, userID, text string) (*collaborator.Result, error) {
	return b.call(ctx, "bugs.search", "/bugs/search", map[string]interface{}{
		"userId": userID, "text": text,
	}, true)
}

func (b *bugClient) Stats(ctx context.Context, userID string) (*collaborator.Result, error) {
	return b.call(ctx, "bugs.stats", "/bugs/stats", map[string]interface{}{
		"userId": userID,
	}, true)
}

type teamClient struct{ *client }

func (t *teamClient) ListForUser(ctx context.Context, userID string) (*collaborator.Result, error) {
	return t.call(ctx, "teams.listForUser", "/teams/list", map[string]interface{}{
		"userId": userID,
	}, true)
}

func (t *teamClient) Create(ctx context.Context, data map[string]interface{}, userID string) (*collaborator.Result, error) {
	return t.call(ctx, "teams.create", "/teams/create", map[string]interface{}{
		"userId": userID, "data": data,
	}, false)
}

func (t *teamClient) Details(ctx context.Context, userID, teamID string) (*collaborator.Result, error) {
	return t.call(ctx, "teams.details", "/teams/details", map[string]interface{}{
		"userId": userID, "teamId": teamID,
	}, true)
}

func (t *teamClient) AddMember(ctx context.Context, teamID, identifier, role, performerID string) (*collaborator.Result, error) {
	return t.call(ctx, "teams.addMember", "/teams/members/add", map[string]interface{}{
		"performerId": performerID, "teamId": teamID, "identifier": identifier, "role": role,
	}, false)
}

func (t *teamClient) Search(ctx context.Context, userID, text string) (*collaborator.Result, error) {
	return t.call(ctx, "teams.search", "/teams/search", map[string]interface{}{
		"userId": userID, "text": text,
	}, true)
}

func (t *teamClient) Stats(ctx context.Context, userID string) (*collaborator.Result, error) {
	return t.call(ctx, "teams.stats", "/teams/stats", map[string]interface{}{
		"userId": userID,
	}, true)
}

type userClient struct{ *client }

func (u *userClient) Search(ctx context.Context, userID, text string, filters map[string]interface{}) (*collaborator.Result, error) {
	return u.call(ctx, "users.search", "/users/search", map[string]interface{}{
		"userId": userID, "text": text, "filters": filters,
	}, true)
}

func (u *userClient) Profile(ctx context.Context, userID, targetID string) (*collaborator.Result, error) {
	return u.call(ctx, "users.profile", "/users/profile", map[string]interface{}{
		"userId": userID, "targetId": targetID,
	}, true)
}

func (u *userClient) TeamMembers(ctx context.Context, userID, teamID string) (*collaborator.Result, error) {
	return u.call(ctx, "users.teamMembers", "/users/team-members", map[string]interface{}{
		"userId": userID, "teamId": teamID,
	}, true)
}

type commentClient struct{ *client }

func (c *commentClient) List(ctx context.Context, userID, bugID string) (*collaborator.Result, error) {
	return c.call(ctx, "comments.list", "/comments/list", map[string]interface{}{
		"userId": userID, "bugId": bugID,
	}, true)
}

func (c *commentClient) Create(ctx context.Context, bugID, text, userID string) (*collaborator.Result, error) {
	return c.call(ctx, "comments.create", "/comments/create", map[string]interface{}{
		"userId": userID, "bugId": bugID, "text": text,
	}, false)
}

func (c *commentClient) Search(ctx context.Context, userID, text string) (*collaborator.Result, error) {
	return c.call(ctx, "comments.search", "/comments/search", map[string]interface{}{
		"userId": userID, "text": text,
	}, true)
}

type fileClient struct{ *client }

func (f *fileClient) List(ctx context.Context, userID, bugID string) (*collaborator.Result, error) {
	return f.call(ctx, "files.list", "/files/list", map[string]interface{}{
		"userId": userID, "bugId": bugID,
	}, true)
}

func (f *fileClient) Attach(ctx context.Context, bugID, fileName, userID string) (*collaborator.Result, error) {
	return f.call(ctx, "files.attach", "/files/attach", map[string]interface{}{
		"userId": userID, "bugId": bugID, "fileName": fileName,
	}, false)
}

func (f *fileClient) Search(ctx context.Context, userID, text string) (*collaborator.Result, error) {
	return f.call(ctx, "files.search", "/files/search", map[string]interface{}{
		"userId": userID, "text": text,
	}, true)
}

// internal/collaborator/interfaces.go
package collaborator

import "context"

// ListOptions carries paging and ordering hints for list calls.
type ListOptions struct {
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
	SortBy string `json:"sortBy,omitempty"`
}

// BugOperations is the bug CRUD/query contract.
type BugOperations interface {
	List(ctx context.Context, userID string, filters map[string]interface{}, opts ListOptions) (*Result, error)
	Create(ctx context.Context, data map[string]interface{}, userID string) (*Result, error)
	UpdateStatus(ctx context.Context, bugID, status, userID string) (*Result, error)
	Assign(ctx context.Context, bugID string, userIDs []string, performerID string) (*Result, error)
	Search(ctx context.Context, userID, text string) (*Result, error)
	Stats(ctx context.Context, userID string) (*Result, error)
}

// TeamOperations is the team CRUD/query contract.
type TeamOperations interface {
	ListForUser(ctx context.Context, userID string) (*Result, error)
	Create(ctx context.Context, data map[string]interface{}, userID string) (*Result, error)
	Details(ctx context.Context, userID, teamID string) (*Result, error)
	AddMember(ctx context.Context, teamID, identifier, role, performerID string) (*Result, error)
	Search(ctx context.Context, userID, text string) (*Result, error)
	Stats(ctx context.Context, userID string) (*Result, error)
}

// UserOperations is the user lookup contract.
type UserOperations interface {
	Search(ctx context.Context, userID, text string, filters map[string]interface{}) (*Result, error)
	Profile(ctx context.Context, userID, targetID string) (*Result, error)
	TeamMembers(ctx context.Context, userID, teamID string) (*Result, error)
}

// CommentOperations is the bug-scoped comment contract.
type CommentOperations interface {
	List(ctx context.Context, userID, bugID string) (*Result, error)
	Create(ctx context.Context, bugID, text, userID string) (*Result, error)
	Search(ctx context.Context, userID, text string) (*Result, error)
}

// FileOperations is the bug-scoped file contract.
type FileOperations interface {
	List(ctx context.Context, userID, bugID string) (*Result, error)
	Attach(ctx context.Context, bugID, fileName, userID string) (*Result, error)
	Search(ctx context.Context, userID, text string) (*Result, error)
}

// Set bundles every contract for injection into the router.
type Set struct {
	Bugs     BugOperations
	Teams    TeamOperations
	Users    UserOperations
	Comments CommentOperations
	Files    FileOperations
}

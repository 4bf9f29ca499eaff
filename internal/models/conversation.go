// internal/models/conversation.go
package models

import "time"

// Buffer caps for per-user conversational state. Oldest entries are
// evicted first once a cap is reached.
const (
	MaxRecentBugs     = 10
	MaxRecentEntities = 10
	MaxQueryHistory   = 20
	MaxHistoryEntries = 50
)

// TeamRef is a snapshot of the team a conversation is currently scoped to.
type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BugRef is a lightweight reference to a bug mentioned in a prior turn.
type BugRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// QueryRecord is one entry of the bounded query history ring.
type QueryRecord struct {
	Intent    string    `json:"intent"`
	Message   string    `json:"message"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryEntry is one entry of the bounded conversation history ring.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
}

// ConversationContext is the short-term per-user memory threaded across
// turns. It is created lazily with zero-value defaults and lives only for
// the process lifetime unless an explicit clear removes it earlier.
type ConversationContext struct {
	UserID         string        `json:"userId"`
	CurrentTeam    *TeamRef      `json:"currentTeam,omitempty"`
	RecentBugs     []BugRef      `json:"recentBugs"`
	RecentEntities []Entities    `json:"recentEntities"`
	QueryHistory   []QueryRecord `json:"queryHistory"`

	LastQuery    *ResponseEnvelope `json:"lastQuery,omitempty"`
	LastIntent   string            `json:"lastIntent,omitempty"`
	LastEntities Entities          `json:"lastEntities,omitempty"`
	LastMessage  string            `json:"lastMessage,omitempty"`

	UpdatedAt time.Time `json:"updatedAt"`
}

// NewConversationContext returns the documented defaults for a user seen
// for the first time.
func NewConversationContext(userID string) *ConversationContext {
	return &ConversationContext{
		UserID:         userID,
		RecentBugs:     []BugRef{},
		RecentEntities: []Entities{},
		QueryHistory:   []QueryRecord{},
		UpdatedAt:      time.Now().UTC(),
	}
}

// PushRecentBug prepends a bug reference, deduplicating by id and evicting
// the oldest entry past MaxRecentBugs.
func (c *ConversationContext) PushRecentBug(ref BugRef) {
	kept := make([]BugRef, 0, len(c.RecentBugs)+1)
	kept = append(kept, ref)
	for _, b := range c.RecentBugs {
		if b.ID != ref.ID {
			kept = append(kept, b)
		}
	}
	if len(kept) > MaxRecentBugs {
		kept = kept[:MaxRecentBugs]
	}
	c.RecentBugs = kept
}

// PushRecentEntities prepends an extracted entity map, evicting the oldest
// entry past MaxRecentEntities.
func (c *ConversationContext) PushRecentEntities(e Entities) {
	if len(e) == 0 {
		return
	}
	c.RecentEntities = append([]Entities{e}, c.RecentEntities...)
	if len(c.RecentEntities) > MaxRecentEntities {
		c.RecentEntities = c.RecentEntities[:MaxRecentEntities]
	}
}

// AppendQueryRecord appends to the query history ring, evicting the oldest
// entry past MaxQueryHistory.
func (c *ConversationContext) AppendQueryRecord(r QueryRecord) {
	c.QueryHistory = append(c.QueryHistory, r)
	if len(c.QueryHistory) > MaxQueryHistory {
		c.QueryHistory = c.QueryHistory[len(c.QueryHistory)-MaxQueryHistory:]
	}
}

// UserProfile carries optional display data for templated response text.
type UserProfile struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Package contextstore holds per-user conversational state behind an
// explicit session-store interface so lifetime and concurrency policy are
// injected rather than implied by a package-global map.
package contextstore

import (
	"context"

	"bugtracker-assistant/internal/models"
)

// Store is the per-user session memory contract. Implementations create a
// user's context lazily with the documented defaults on first access, and
// enforce the buffer caps from the models package.
type Store interface {
	// Get returns a copy of the user's context, creating defaults if the
	// user has never been seen.
	Get(ctx context.Context, userID string) (*models.ConversationContext, error)
	// Update applies mutate to the user's context atomically with respect
	// to other Update/Get calls on the same store.
	Update(ctx context.Context, userID string, mutate func(*models.ConversationContext)) error
	// AppendHistory appends one conversation turn, evicting the oldest
	// entry past models.MaxHistoryEntries.
	AppendHistory(ctx context.Context, userID string, entry models.HistoryEntry) error
	// History returns the user's conversation history, oldest first.
	History(ctx context.Context, userID string) ([]models.HistoryEntry, error)
	// Clear removes all state for the user.
	Clear(ctx context.Context, userID string) error
}

// internal/contextstore/memory.go
package contextstore

import (
	"context"
	"sync"

	"bugtracker-assistant/internal/models"
)

// MemoryStore keeps conversational state in process memory. State lives
// for the process lifetime and is dropped only by Clear.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*models.ConversationContext
	history  map[string][]models.HistoryEntry
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contexts: make(map[string]*models.ConversationContext),
		history:  make(map[string][]models.HistoryEntry),
	}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*models.ConversationContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneContext(s.getOrCreate(userID)), nil
}

func (s *MemoryStore) Update(_ context.Context, userID string, mutate func(*models.ConversationContext)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.getOrCreate(userID))
	return nil
}

func (s *MemoryStore) AppendHistory(_ context.Context, userID string, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[userID], entry)
	if len(h) > models.MaxHistoryEntries {
		h = h[len(h)-models.MaxHistoryEntries:]
	}
	s.history[userID] = h
	return nil
}

func (s *MemoryStore) History(_ context.Context, userID string) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.history[userID]
	out := make([]models.HistoryEntry, len(h))
	copy(out, h)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, userID)
	delete(s.history, userID)
	return nil
}

// getOrCreate must be called with the write lock held.
func (s *MemoryStore) getOrCreate(userID string) *models.ConversationContext {
	if c, ok := s.contexts[userID]; ok {
		return c
	}
	c := models.NewConversationContext(userID)
	s.contexts[userID] = c
	return c
}

// cloneContext copies the struct and its slices so callers can read the
// result without holding the store lock.
func cloneContext(c *models.ConversationContext) *models.ConversationContext {
	out := *c
	out.RecentBugs = append([]models.BugRef(nil), c.RecentBugs...)
	out.RecentEntities = append([]models.Entities(nil), c.RecentEntities...)
	out.QueryHistory = append([]models.QueryRecord(nil), c.QueryHistory...)
	if c.LastEntities != nil {
		out.LastEntities = c.LastEntities.Clone()
	}
	return &out
}

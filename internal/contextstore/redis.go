// internal/contextstore/redis.go
package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"bugtracker-assistant/internal/models"
)

const (
	contextKeyPrefix = "assistant:context:"
	historyKeyPrefix = "assistant:history:"
)

// RedisStore keeps conversational state in Redis, one JSON blob per user
// plus a capped list for history. The TTL is an upper bound on idle state,
// not a persistence guarantee; the contract is still ephemeral conversation
// memory. Same-user mutations must be serialized by the caller (the
// interpreter holds a per-user lock), so Update is read-modify-write
// without CAS.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. ttl of zero disables expiry.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, userID string) (*models.ConversationContext, error) {
	raw, err := s.client.Get(ctx, contextKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return models.NewConversationContext(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("context get: %w", err)
	}
	var c models.ConversationContext
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("context decode: %w", err)
	}
	return &c, nil
}

func (s *RedisStore) Update(ctx context.Context, userID string, mutate func(*models.ConversationContext)) error {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	mutate(c)
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("context encode: %w", err)
	}
	if err := s.client.Set(ctx, contextKeyPrefix+userID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("context set: %w", err)
	}
	return nil
}

func (s *RedisStore) AppendHistory(ctx context.Context, userID string, entry models.HistoryEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("history encode: %w", err)
	}
	key := historyKeyPrefix + userID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, int64(-models.MaxHistoryEntries), -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history append: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	raws, err := s.client.LRange(ctx, historyKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history read: %w", err)
	}
	out := make([]models.HistoryEntry, 0, len(raws))
	for _, raw := range raws {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("history decode: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, contextKeyPrefix+userID, historyKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("context clear: %w", err)
	}
	return nil
}

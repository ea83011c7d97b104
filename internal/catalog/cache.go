package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gokatarajesh/practice-engine/internal/practice"
)

const defaultCacheTTL = 10 * time.Minute

// QuestionCache stores hydrated questions keyed by question id.
type QuestionCache interface {
	// GetMany returns the cached subset of ids. Misses are simply absent.
	GetMany(ctx context.Context, ids []string) (map[string]practice.Question, error)
	SetMany(ctx context.Context, qs []practice.Question) error
}

// Cache is the Redis-backed QuestionCache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ QuestionCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(id string) string {
	return "practice:question:" + id
}

func (c *Cache) GetMany(ctx context.Context, ids []string) (map[string]practice.Question, error) {
	if len(ids) == 0 {
		return map[string]practice.Question{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[string]practice.Question, len(ids))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var q practice.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			// corrupt entry, treat as a miss
			continue
		}
		out[ids[i]] = q
	}
	return out, nil
}

func (c *Cache) SetMany(ctx context.Context, qs []practice.Question) error {
	if len(qs) == 0 {
		return nil
	}
	pipe := c.client.Pipeline()
	for _, q := range qs {
		data, err := json.Marshal(q)
		if err != nil {
			return err
		}
		pipe.Set(ctx, c.key(q.ID), data, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

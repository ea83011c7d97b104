package practice

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
)

// ShuffleCache hands out a per-question option order that stays fixed for the
// lifetime of one session instance. Orders are never persisted.
type ShuffleCache struct {
	mu        sync.Mutex
	sessionID uuid.UUID
	orders    map[string][]Option
	intN      func(n int) int
}

// NewShuffleCache returns a cache backed by math/rand/v2.
func NewShuffleCache() *ShuffleCache {
	return NewShuffleCacheWithSource(rand.IntN)
}

// NewShuffleCacheWithSource lets callers supply the index source, which must
// return a uniform value in [0, n).
func NewShuffleCacheWithSource(intN func(n int) int) *ShuffleCache {
	return &ShuffleCache{
		orders: make(map[string][]Option),
		intN:   intN,
	}
}

// OptionsFor returns the cached order for q, creating it on first use.
// Switching to another session id drops every order held for the previous one.
func (c *ShuffleCache) OptionsFor(sessionID uuid.UUID, q Question) []Option {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID != c.sessionID {
		c.resetLocked(sessionID)
	}

	if cached, ok := c.orders[q.ID]; ok {
		return cloneOptions(cached)
	}

	opts := make([]Option, 0, len(q.Options))
	for _, o := range q.Options {
		if o.Empty() {
			continue
		}
		opts = append(opts, o)
	}

	// Fisher-Yates
	for i := len(opts) - 1; i > 0; i-- {
		j := c.intN(i + 1)
		opts[i], opts[j] = opts[j], opts[i]
	}

	c.orders[q.ID] = opts
	return cloneOptions(opts)
}

// Reset scopes the cache to sessionID and forgets all cached orders.
func (c *ShuffleCache) Reset(sessionID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(sessionID)
}

// Bind scopes the cache to sessionID, keeping cached orders when it already is.
func (c *ShuffleCache) Bind(sessionID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sessionID != c.sessionID {
		c.resetLocked(sessionID)
	}
}

// Len reports how many questions currently have a cached order.
func (c *ShuffleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.orders)
}

func (c *ShuffleCache) resetLocked(sessionID uuid.UUID) {
	c.sessionID = sessionID
	c.orders = make(map[string][]Option)
}

func cloneOptions(in []Option) []Option {
	out := make([]Option, len(in))
	copy(out, in)
	return out
}

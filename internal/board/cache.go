package board

import (
	"context"
	"sync"
	"time"
)

// Cache keeps recently built boards so that several viewers of one stop
// share upstream requests. Failed builds are not cached.
type Cache struct {
	builder *Builder
	ttl     time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	board     *Board
	expiresAt time.Time
}

// NewCache wraps builder. A ttl of zero or less disables caching.
func NewCache(builder *Builder, ttl time.Duration) *Cache {
	return &Cache{
		builder: builder,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Build returns a cached board for stopID or builds a new one. Callers must
// not modify the result.
func (c *Cache) Build(ctx context.Context, stopID string) (*Board, error) {
	if c.ttl <= 0 {
		return c.builder.Build(ctx, stopID)
	}
	if b, ok := c.get(stopID); ok {
		return b, nil
	}
	b, err := c.builder.Build(ctx, stopID)
	if err != nil {
		return nil, err
	}
	c.set(stopID, b)
	return b, nil
}

func (c *Cache) get(stopID string) (*Board, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[stopID]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.board, true
}

func (c *Cache) set(stopID string, b *Board) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	// Sweep on write; the map only grows with distinct stops.
	for k, v := range c.entries {
		if !now.Before(v.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[stopID] = cacheEntry{board: b, expiresAt: now.Add(c.ttl)}
}

// Len is the number of entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/mmynk/tripsettle/internal/models"
)

type entry struct {
	summary   *models.Summary
	expiresAt time.Time
}

// MemoryCache is an in-process SummaryCache with a fixed TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache whose entries expire after ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get returns the cached summary for travelID or ErrMiss.
func (c *MemoryCache) Get(_ context.Context, travelID string) (*models.Summary, error) {
	key := makeKey(travelID)

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, ErrMiss
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, ErrMiss
	}
	return e.summary, nil
}

// Set stores summary for travelID.
func (c *MemoryCache) Set(_ context.Context, travelID string, summary *models.Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[makeKey(travelID)] = entry{summary: summary, expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Invalidate drops the entry for travelID.
func (c *MemoryCache) Invalidate(_ context.Context, travelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, makeKey(travelID))
	return nil
}

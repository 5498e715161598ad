package cache

import (
	"context"
	"sync"
	"time"
)

// Dedup is the recent-alert cache consulted by the dispatcher. Seen records
// the key and reports whether it was already present within the retention
// window; a present key means the alert was already notified.
type Dedup interface {
	Seen(ctx context.Context, key string) (bool, error)
}

// Memory is a bounded in-memory TTL dedup cache. Entries expire after the
// retention window; when the bound is hit the oldest entry is evicted so a
// long-running process cannot grow without limit.
type Memory struct {
	retention time.Duration
	maxSize   int
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	order   []string             // insertion order for eviction
}

// NewMemory creates a memory dedup cache with the given retention window and
// maximum entry count.
func NewMemory(retention time.Duration, maxSize int) *Memory {
	return &Memory{
		retention: retention,
		maxSize:   maxSize,
		now:       time.Now,
		entries:   make(map[string]time.Time),
	}
}

// Seen implements Dedup.
func (c *Memory) Seen(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expiry, ok := c.entries[key]; ok {
		if now.Before(expiry) {
			return true, nil
		}
		// Expired: the condition may alert again.
		delete(c.entries, key)
	}

	c.evict(now)
	c.entries[key] = now.Add(c.retention)
	c.order = append(c.order, key)
	return false, nil
}

// evict drops expired entries and, if still full, the oldest one.
// Caller holds the lock.
func (c *Memory) evict(now time.Time) {
	if len(c.entries) < c.maxSize {
		return
	}

	kept := c.order[:0]
	for _, key := range c.order {
		expiry, ok := c.entries[key]
		if !ok {
			continue
		}
		if !now.Before(expiry) {
			delete(c.entries, key)
			continue
		}
		kept = append(kept, key)
	}
	c.order = kept

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// Len returns the number of live entries.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

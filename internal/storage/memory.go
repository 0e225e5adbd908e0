package storage

import (
	"context"
	"sync"
	"time"

	"github.com/lumehealth/intake/internal/profile"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// MemoryCache is the in-process cache tier used when Redis is not configured.
// Entries expire after the TTL and are dropped lazily on read.
type MemoryCache struct {
	clock Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	p        profile.Profile
	storedAt time.Time
}

// NewMemoryCache creates a MemoryCache with the given TTL (1 hour when <= 0).
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return NewMemoryCacheWithClock(realClock{}, ttl)
}

// NewMemoryCacheWithClock creates a MemoryCache with a custom clock (for testing).
func NewMemoryCacheWithClock(clock Clock, ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryCache{
		clock:   clock,
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(ctx context.Context, userID string) (profile.Profile, error) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok {
		return profile.Profile{}, ErrNotFound
	}

	if c.clock.Now().After(e.storedAt.Add(c.ttl)) {
		c.mu.Lock()
		// Re-check under the write lock; a fresh Set may have raced in.
		if cur, ok := c.entries[userID]; ok && cur.storedAt.Equal(e.storedAt) {
			delete(c.entries, userID)
		}
		c.mu.Unlock()
		return profile.Profile{}, ErrNotFound
	}

	return e.p.Clone(), nil
}

// Set implements Cache. The profile is copied so later caller mutations do
// not leak into the cache.
func (c *MemoryCache) Set(ctx context.Context, p profile.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[p.UserID] = memoryEntry{p: p.Clone(), storedAt: c.clock.Now()}
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

// Close implements Cache. It is a no-op for the in-process cache.
func (c *MemoryCache) Close() error { return nil }

// Len reports the number of live entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

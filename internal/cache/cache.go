package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Store holds generated text keyed by prompt hash.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type CacheItem struct {
	Value     string
	ExpiresAt time.Time
}

// Cache is the in-process Store.
type Cache struct {
	mu    sync.RWMutex
	items map[string]CacheItem
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

var _ Store = (*Cache)(nil)

func New() *Cache {
	c := &Cache{
		items: make(map[string]CacheItem),
		now:   time.Now,
		stop:  make(chan struct{}),
	}

	// Cleanup expired items every hour
	go c.cleanupLoop(time.Hour)

	return c
}

func (c *Cache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = CacheItem{
		Value:     value,
		ExpiresAt: c.now().Add(ttl),
	}
	return nil
}

func (c *Cache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	item, exists := c.items[key]
	c.mu.RUnlock()
	if !exists {
		return "", false, nil
	}

	if c.now().After(item.ExpiresAt) {
		c.mu.Lock()
		// A Set may have refreshed the key since the read lock was released.
		if cur, ok := c.items[key]; ok && c.now().After(cur.ExpiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return "", false, nil
	}

	return item.Value, true, nil
}

// Len counts entries, expired ones included until the next cleanup.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// GenerateKey hashes the parts of a request into a stable cache key.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *Cache) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, item := range c.items {
		if now.After(item.ExpiresAt) {
			delete(c.items, key)
		}
	}
}

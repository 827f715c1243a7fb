// Package cache implements the daemon's result cache: TTL-expiring entries
// keyed by search parameters or listing parameters, with LRU eviction once
// capacity is exceeded. Grounded on the TTL-map pattern used by the
// retrieval package's keyword hit cache, generalized to an ordered LRU list
// so capacity eviction removes the oldest entry rather than a random one.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/gofer-dev/gofer/internal/logging"
)

// SearchKey identifies a cached hybrid-search result.
type SearchKey struct {
	Query string
	Limit int
}

// String returns the cache key's string form.
func (k SearchKey) String() string {
	return "search:" + k.Query + ":" + fmt.Sprint(k.Limit)
}

// ListingKey identifies a cached listing result.
type ListingKey struct {
	FileFilter string
	KindFilter string
	Offset     int
	Limit      int
}

// String returns the cache key's string form.
func (k ListingKey) String() string {
	return fmt.Sprintf("listing:%s:%s:%d:%d", k.FileFilter, k.KindFilter, k.Offset, k.Limit)
}

// hashKey shortens a long key string into a fixed-length cache identifier
// while remaining deterministic and collision-resistant for practical
// purposes.
func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:16])
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
	elem      *list.Element
}

// Cache is a TTL + LRU cache. Search results are stored as pre-serialized
// JSON strings; listing results are stored as opaque binary blobs for
// zero-copy deserialization by the caller.
type Cache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	capacity int
	entries  map[string]*entry
	order    *list.List // front = most recently used
}

// New creates a cache with the given TTL and capacity.
func New(ttl time.Duration, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Cache{
		ttl:      ttl,
		capacity: capacity,
		entries:  make(map[string]*entry),
		order:    list.New(),
	}
}

// GetSearch retrieves a cached search result for the given key.
func (c *Cache) GetSearch(key SearchKey) ([]byte, bool) {
	return c.get(hashKey(key.String()))
}

// PutSearch stores a search result. Only non-degraded results should ever
// be passed here; the caller (the hybrid search engine) enforces that.
func (c *Cache) PutSearch(key SearchKey, value []byte) {
	c.put(hashKey(key.String()), value)
}

// GetListing retrieves a cached listing result.
func (c *Cache) GetListing(key ListingKey) ([]byte, bool) {
	return c.get(hashKey(key.String()))
}

// PutListing stores a listing result.
func (c *Cache) PutListing(key ListingKey, value []byte) {
	c.put(hashKey(key.String()), value)
}

func (c *Cache) get(hashed string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[hashed]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		c.removeLocked(e)
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.order.MoveToFront(e.elem)
	c.mu.Unlock()

	return e.value, true
}

func (c *Cache) put(hashed string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[hashed]; ok {
		existing.value = value
		existing.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(existing.elem)
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictOldestLocked()
	}

	e := &entry{key: hashed, value: value, expiresAt: time.Now().Add(c.ttl)}
	e.elem = c.order.PushFront(e)
	c.entries[hashed] = e
}

// evictOldestLocked removes the least-recently-used entry. Must be called
// with c.mu held.
func (c *Cache) evictOldestLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	evicted := back.Value.(*entry)
	c.removeLocked(evicted)
	logging.RetrievalDebug("cache: evicted %s at capacity %d", evicted.key, c.capacity)
}

func (c *Cache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order = list.New()
}

// Len returns the number of live (non-expired) entries, sweeping expired
// ones as a side effect.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for e := c.order.Back(); e != nil; {
		prev := e.Prev()
		ent := e.Value.(*entry)
		if now.After(ent.expiresAt) {
			c.removeLocked(ent)
		}
		e = prev
	}
	return len(c.entries)
}

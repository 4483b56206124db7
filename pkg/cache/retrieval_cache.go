// Package cache provides the retrieval cache for Muninn.
//
// Expensive retrievals (personalized ranking, multi-hop expansion) are
// memoized under canonicalized parameter keys with TTL expiration and LRU
// eviction.
//
// Usage:
//
//	c := cache.NewRetrievalCache(1000, 5*time.Minute)
//
//	v, err := c.GetOrCompute(ctx, cache.Kwargs{"seeds": seeds, "alpha": 0.15},
//		func(ctx context.Context) (any, error) {
//			return ranker.Rank(ctx, seeds, 10)
//		})
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/orneryd/muninn/pkg/metrics"
)

// Kwargs are keyword parameters identifying a cached computation. Two Kwargs
// maps with the same contents produce the same cache key regardless of the
// order they were built in.
type Kwargs map[string]any

// Compute produces a value on a cache miss. It runs without any cache lock
// held, so it may block on store I/O freely. A nil Compute on a miss yields
// a nil value without error.
type Compute func(ctx context.Context) (any, error)

// Key is a canonical cache key.
type Key [32]byte

// KeyFor builds the canonical key for a set of keyword parameters: entries
// are rendered as k=v, sorted, joined and hashed. Argument order never
// affects the result.
func KeyFor(kwargs Kwargs) Key {
	parts := make([]string, 0, len(kwargs))
	for k, v := range kwargs {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return blake2b.Sum256([]byte(strings.Join(parts, "&")))
}

// KeyForString builds a key from an explicit string, bypassing kwargs
// canonicalization but sharing the same table.
func KeyForString(s string) Key {
	return blake2b.Sum256([]byte(s))
}

// entry holds a cached value with its insertion timestamp.
type entry struct {
	key      Key
	value    any
	storedAt time.Time
}

// RetrievalCache is a thread-safe TTL + LRU cache for retrieval results.
//
// The internal map and LRU list are the engine's only cross-call mutable
// state. A single mutex guards every read-modify-write sequence (lookup,
// expiry check, promotion, eviction, insertion); the mutex is never held
// across a Compute call, so store-bound computes block without holding any
// engine lock. Cached values are treated as immutable once stored.
type RetrievalCache struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration

	list  *list.List
	items map[Key]*list.Element

	hits   uint64
	misses uint64
}

// NewRetrievalCache creates a cache holding up to maxSize entries, each
// valid for ttl (0 = no expiration).
func NewRetrievalCache(maxSize int, ttl time.Duration) *RetrievalCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &RetrievalCache{
		maxSize: maxSize,
		ttl:     ttl,
		list:    list.New(),
		items:   make(map[Key]*list.Element, maxSize),
	}
}

// GetOrCompute returns the cached value for kwargs if present and fresh,
// otherwise runs compute, stores its result, and returns it.
//
// A failed compute propagates to the caller and is never cached. Two
// concurrent misses for the same key may both compute; the later insert
// wins. There are no lost updates.
func (c *RetrievalCache) GetOrCompute(ctx context.Context, kwargs Kwargs, compute Compute) (any, error) {
	return c.GetOrComputeKey(ctx, KeyFor(kwargs), compute)
}

// GetOrComputeKey is GetOrCompute with a pre-built key.
func (c *RetrievalCache) GetOrComputeKey(ctx context.Context, key Key, compute Compute) (any, error) {
	if v, ok := c.lookup(key); ok {
		return v, nil
	}

	if compute == nil {
		return nil, nil
	}
	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	c.insert(key, value)
	return value, nil
}

// lookup returns a fresh cached value and promotes it, or records a miss.
func (c *RetrievalCache) lookup(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if ok {
		ent := elem.Value.(*entry)
		if c.ttl > 0 && time.Since(ent.storedAt) > c.ttl {
			c.removeElement(elem)
		} else {
			c.list.MoveToFront(elem)
			c.hits++
			metrics.Default().IncCacheHit()
			return ent.value, true
		}
	}

	c.misses++
	metrics.Default().IncCacheMiss()
	return nil, false
}

func (c *RetrievalCache) insert(key Key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		ent := elem.Value.(*entry)
		ent.value = value
		ent.storedAt = time.Now()
		c.list.MoveToFront(elem)
		return
	}

	for c.list.Len() >= c.maxSize {
		if oldest := c.list.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}

	elem := c.list.PushFront(&entry{key: key, value: value, storedAt: time.Now()})
	c.items[key] = elem
}

// Invalidate removes the entry for kwargs if present.
func (c *RetrievalCache) Invalidate(kwargs Kwargs) {
	c.InvalidateKey(KeyFor(kwargs))
}

// InvalidateKey removes the entry for a pre-built key if present.
func (c *RetrievalCache) InvalidateKey(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries. Counters are preserved.
func (c *RetrievalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[Key]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *RetrievalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Stats holds cache performance statistics.
type Stats struct {
	Hits          uint64        `json:"hits"`
	Misses        uint64        `json:"misses"`
	TotalRequests uint64        `json:"total_requests"`
	HitRate       float64       `json:"hit_rate"`
	Size          int           `json:"size"`
	MaxSize       int           `json:"max_size"`
	TTL           time.Duration `json:"ttl"`
}

// GetStats returns a snapshot of the cache counters. HitRate is 0.0 before
// the first request.
func (c *RetrievalCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		TotalRequests: total,
		HitRate:       hitRate,
		Size:          c.list.Len(),
		MaxSize:       c.maxSize,
		TTL:           c.ttl,
	}
}

// removeElement removes an element. Caller must hold the lock.
func (c *RetrievalCache) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}

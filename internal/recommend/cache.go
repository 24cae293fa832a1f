package recommend

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CacheKey identifies one cached page: a user, a result kind, and a hash
// of the normalized request options.
type CacheKey struct {
	UserID string
	Kind   string
	Hash   uint64
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%s:%016x", k.Kind, k.UserID, k.Hash)
}

// Result kinds used as the cache key namespace.
const (
	KindPeople     = "people"
	KindActivities = "activities"
)

// NewCacheKey hashes the option fields that affect the result set.
// ForceRefresh is deliberately left out; it changes behavior, not identity.
func NewCacheKey(userID, kind string, opts Options) CacheKey {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	write(strconv.Itoa(opts.Limit))
	write(strconv.FormatFloat(opts.MaxDistanceKm, 'f', -1, 64))
	write(strconv.FormatFloat(opts.MinScore, 'f', -1, 64))
	write(opts.Category)
	if opts.AgeRange != nil {
		write(strconv.Itoa(opts.AgeRange.Min))
		write(strconv.Itoa(opts.AgeRange.Max))
	}
	return CacheKey{UserID: userID, Kind: kind, Hash: h.Sum64()}
}

type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// RecommendationCache is an in-process TTL cache with request collapsing:
// concurrent misses on one key run the compute function exactly once.
// A per-user key index makes feedback invalidation O(keys held for that
// user) instead of a full scan. A per-user generation counter fences
// in-flight computes: a store whose generation predates an invalidation
// is discarded, so feedback landing mid-compute cannot be overwritten by
// the pre-feedback page.
type RecommendationCache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry[V]
	byUser  map[string]map[string]struct{}
	gens    map[string]uint64
	flight  singleflight.Group
	now     func() time.Time

	// Optional observation hooks, called outside the lock.
	OnHit  func()
	OnMiss func()
}

func NewRecommendationCache[V any](ttl time.Duration) *RecommendationCache[V] {
	return &RecommendationCache[V]{
		ttl:     ttl,
		entries: make(map[string]cacheEntry[V]),
		byUser:  make(map[string]map[string]struct{}),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
}

// GetOrCompute returns the cached value for key or runs compute to build
// it. compute reports whether its result may be cached; partial results
// pass false and are served without being stored.
func (c *RecommendationCache[V]) GetOrCompute(ctx context.Context, key CacheKey, compute func(ctx context.Context) (V, bool, error)) (V, error) {
	if v, ok := c.get(key); ok {
		c.observe(c.OnHit)
		return v, nil
	}
	c.observe(c.OnMiss)

	res, err, _ := c.flight.Do(key.String(), func() (interface{}, error) {
		// A concurrent flight may have stored the value between our miss
		// and acquiring the flight slot.
		if v, ok := c.get(key); ok {
			return v, nil
		}
		gen := c.generation(key.UserID)
		v, cacheable, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if cacheable {
			c.put(key, v, gen)
		}
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Remove drops a single key. Used by force-refresh before recomputing.
// Bumps the user's generation so an in-flight compute cannot restore the
// dropped page.
func (c *RecommendationCache[V]) Remove(key CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key.UserID]++
	c.drop(key.String(), key.UserID)
}

// Invalidate drops every key held for userID and returns the count.
// Computes already in flight for that user store nothing; their pages
// predate the invalidation.
func (c *RecommendationCache[V]) Invalidate(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	keys := c.byUser[userID]
	for k := range keys {
		delete(c.entries, k)
	}
	delete(c.byUser, userID)
	return len(keys)
}

// Sweep evicts expired entries and returns how many were dropped.
// Expiry is otherwise lazy, checked on read.
func (c *RecommendationCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	dropped := 0
	for userID, keys := range c.byUser {
		for k := range keys {
			entry, ok := c.entries[k]
			if !ok || now.After(entry.expiresAt) {
				c.drop(k, userID)
				dropped++
			}
		}
	}
	return dropped
}

// Len reports the number of live entries, counting expired ones that have
// not been swept yet.
func (c *RecommendationCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *RecommendationCache[V]) get(key CacheKey) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key.String()]
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(entry.expiresAt) {
		c.drop(key.String(), key.UserID)
		var zero V
		return zero, false
	}
	return entry.value, true
}

func (c *RecommendationCache[V]) generation(userID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID]
}

// put stores v unless the user's generation moved past gen while the
// compute ran.
func (c *RecommendationCache[V]) put(key CacheKey, v V, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key.UserID] != gen {
		return
	}
	k := key.String()
	c.entries[k] = cacheEntry[V]{value: v, expiresAt: c.now().Add(c.ttl)}
	if c.byUser[key.UserID] == nil {
		c.byUser[key.UserID] = make(map[string]struct{})
	}
	c.byUser[key.UserID][k] = struct{}{}
}

// drop removes one entry and its index slot. Caller holds the lock.
func (c *RecommendationCache[V]) drop(k, userID string) {
	delete(c.entries, k)
	if keys := c.byUser[userID]; keys != nil {
		delete(keys, k)
		if len(keys) == 0 {
			delete(c.byUser, userID)
		}
	}
}

func (c *RecommendationCache[V]) observe(fn func()) {
	if fn != nil {
		fn()
	}
}

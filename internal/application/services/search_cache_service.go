package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/entities"
	"github.com/Charliemcfish/MyThirdPlace-sub002/internal/domain/providers"
)

const (
	defaultCacheTTL        = 30 * time.Minute
	defaultCacheMaxEntries = 100
	remoteCacheTimeout     = 500 * time.Millisecond

	// generationKey holds the shared-tier generation; Clear replaces it so
	// entries written before the clear are never read again
	generationKey = "search:generation"
)

type cacheEntry struct {
	response *entities.SearchResponse
	storedAt time.Time
	hitCount int
}

// remoteCacheEntry is the payload written to the shared cache tier
type remoteCacheEntry struct {
	Response *entities.SearchResponse `json:"response"`
	StoredAt time.Time                `json:"stored_at"`
}

// CacheStats is a snapshot of the cache counters
type CacheStats struct {
	Entries    int           `json:"entries"`
	MaxEntries int           `json:"max_entries"`
	TTL        time.Duration `json:"ttl"`
	Hits       int64         `json:"hits"`
	Misses     int64         `json:"misses"`
	Evictions  int64         `json:"evictions"`
}

// CacheOption configures a SearchCacheService
type CacheOption func(*SearchCacheService)

// WithCacheClock replaces the clock used for TTL checks
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *SearchCacheService) {
		c.now = now
	}
}

// WithRemoteCache adds a shared tier consulted on local misses and written on every put
func WithRemoteCache(remote providers.CacheProvider) CacheOption {
	return func(c *SearchCacheService) {
		c.remote = remote
	}
}

// SearchCacheService is the TTL- and size-bounded search result cache.
// Stored payloads are deep copies; callers never share a response with the cache.
type SearchCacheService struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	remote     providers.CacheProvider
	generation string
	closed     bool

	hits      int64
	misses    int64
	evictions int64
}

// NewSearchCacheService creates a cache; non-positive arguments fall back to 30 minutes and 100 entries
func NewSearchCacheService(ttl time.Duration, maxEntries int, opts ...CacheOption) *SearchCacheService {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	c := &SearchCacheService{
		entries:    make(map[string]*cacheEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateKey builds the cache key of a search. Filter keys are serialized in
// sorted order, so maps with equal contents always produce the same key, and
// the query is quoted so no two distinct inputs share a key.
func (c *SearchCacheService) GenerateKey(query string, filters map[string]any, contentType entities.ContentType) string {
	if contentType == "" {
		contentType = entities.ContentTypeAll
	}
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")

	// encoding/json writes map keys sorted, recursively
	encoded, err := json.Marshal(filters)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%v", filters))
	}
	if len(filters) == 0 {
		encoded = []byte("{}")
	}

	return "search:" + string(contentType) + ":" + strconv.Quote(normalized) + ":" + string(encoded)
}

// Get returns the cached response for key, counting the hit. Entries at or past the TTL are evicted and reported as misses.
func (c *SearchCacheService) Get(ctx context.Context, key string) (*entities.CachedSearch, bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false
	}

	entry, ok := c.entries[key]
	if ok && c.expired(entry) {
		delete(c.entries, key)
		c.evictions++
		addCount(ctx, metrics().cacheEvictions)
		ok = false
	}
	if ok {
		entry.hitCount++
		c.hits++
		hit := &entities.CachedSearch{
			Response: entry.response.Clone(),
			StoredAt: entry.storedAt,
			HitCount: entry.hitCount,
		}
		c.mu.Unlock()
		addCount(ctx, metrics().cacheHits)
		return hit, true
	}
	c.mu.Unlock()

	if hit, ok := c.getRemote(ctx, key); ok {
		return hit, true
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	addCount(ctx, metrics().cacheMisses)
	return nil, false
}

// Put stores a copy of response under key. Expired entries are purged first,
// then the oldest entries are evicted until the cache is within its bound.
func (c *SearchCacheService) Put(ctx context.Context, key string, response *entities.SearchResponse) {
	if response == nil {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	now := c.now()
	stored := response.Clone()
	stored.FromCache = false
	c.insertLocked(key, stored, now)
	generation := c.generation
	c.mu.Unlock()

	c.putRemote(ctx, generation, key, stored, now)
}

// Clear drops every local entry and moves the shared tier to a new generation,
// which orphans every shared entry written before the call
func (c *SearchCacheService) Clear() {
	generation := uuid.NewString()

	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.generation = generation
	c.mu.Unlock()

	if c.remote == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteCacheTimeout)
	defer cancel()
	if err := c.remote.Set(ctx, generationKey, []byte(generation), 0); err != nil {
		log.Warn().Err(err).Msg("failed to publish shared search cache generation")
	}
}

// Shutdown clears the cache and turns every later call into a no-op
func (c *SearchCacheService) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.closed = true
}

// Stats returns a snapshot of the cache counters
func (c *SearchCacheService) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
		TTL:        c.ttl,
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
	}
}

func (c *SearchCacheService) expired(entry *cacheEntry) bool {
	return c.now().Sub(entry.storedAt) >= c.ttl
}

// insertLocked must be called with mu held
func (c *SearchCacheService) insertLocked(key string, response *entities.SearchResponse, storedAt time.Time) {
	for k, e := range c.entries {
		if c.expired(e) {
			delete(c.entries, k)
			c.evictions++
		}
	}

	c.entries[key] = &cacheEntry{response: response, storedAt: storedAt, hitCount: 1}

	for len(c.entries) > c.maxEntries {
		oldestKey := ""
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.storedAt.Before(oldest) || (e.storedAt.Equal(oldest) && k < oldestKey) {
				oldestKey, oldest = k, e.storedAt
			}
		}
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

func (c *SearchCacheService) getRemote(ctx context.Context, key string) (*entities.CachedSearch, bool) {
	if c.remote == nil {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, remoteCacheTimeout)
	defer cancel()

	generation, ok := c.syncGeneration(ctx)
	if !ok {
		return nil, false
	}

	data, err := c.remote.Get(ctx, remoteKey(generation, key))
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			log.Warn().Err(err).Msg("shared search cache read failed")
		}
		return nil, false
	}

	var payload remoteCacheEntry
	if err := json.Unmarshal(data, &payload); err != nil || payload.Response == nil {
		log.Warn().Err(err).Msg("discarding undecodable shared cache entry")
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.generation != generation || c.now().Sub(payload.StoredAt) >= c.ttl {
		return nil, false
	}
	c.insertLocked(key, payload.Response, payload.StoredAt)
	c.hits++
	addCount(ctx, metrics().cacheHits)

	hit := &entities.CachedSearch{
		Response: payload.Response.Clone(),
		StoredAt: payload.StoredAt,
		HitCount: 2,
	}
	// the shared entry may be older than everything held locally and already evicted
	if entry, ok := c.entries[key]; ok {
		entry.hitCount++
		hit.HitCount = entry.hitCount
	}
	return hit, true
}

// syncGeneration reads the shared generation. A generation changed by another
// instance's Clear drops the local entries as well.
func (c *SearchCacheService) syncGeneration(ctx context.Context) (string, bool) {
	var generation string
	data, err := c.remote.Get(ctx, generationKey)
	switch {
	case err == nil:
		generation = string(data)
	case errors.Is(err, providers.ErrCacheMiss):
	default:
		log.Warn().Err(err).Msg("shared search cache read failed")
		return "", false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		c.entries = make(map[string]*cacheEntry)
		c.generation = generation
	}
	return generation, true
}

func (c *SearchCacheService) putRemote(ctx context.Context, generation, key string, response *entities.SearchResponse, storedAt time.Time) {
	if c.remote == nil {
		return
	}

	data, err := json.Marshal(remoteCacheEntry{Response: response, StoredAt: storedAt})
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode search response for shared cache")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, remoteCacheTimeout)
	defer cancel()

	if err := c.remote.Set(ctx, remoteKey(generation, key), data, c.ttl); err != nil {
		log.Warn().Err(err).Msg("shared search cache write failed")
	}
}

// remoteKey hashes the generation and local key so shared-tier keys have a bounded length
func remoteKey(generation, key string) string {
	sum := sha256.Sum256([]byte(generation + "\x00" + key))
	return "search:" + hex.EncodeToString(sum[:])
}

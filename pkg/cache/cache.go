/*
Package cache stores tool-call results keyed by provider, tool and
canonical arguments. Entries carry a type-aware TTL that adapts to the
observed hit rate, and the cache evicts least-recently-used entries when
full.
*/
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultMaxSize bounds the number of live entries unless overridden.
const DefaultMaxSize = 1000

// TTL bounds enforced by the adaptive adjustment.
const (
	minTTL = 60 * time.Second
	maxTTL = time.Hour
)

// Tool name fragments that mark a result as inherently volatile.
var volatileNameFragments = []string{"random", "uuid", "current_time", "now"}

// Argument fragments that mark a call as time-dependent.
var volatileArgFragments = []string{"timestamp", "current"}

type entry struct {
	value      string
	toolType   string
	expiryAt   time.Time
	createdAt  time.Time
	lastAccess time.Time
	hitCount   int64
}

// Stats is the snapshot returned by GetStats.
type Stats struct {
	Size            int                      `json:"size"`
	HitRate         float64                  `json:"hitRate"`
	TotalRequests   int64                    `json:"totalRequests"`
	TotalHits       int64                    `json:"totalHits"`
	AvgHitCount     float64                  `json:"avgHitCount"`
	OldestEntry     time.Time                `json:"oldestEntry,omitzero"`
	NewestEntry     time.Time                `json:"newestEntry,omitzero"`
	TypeRequests    map[string]int64         `json:"toolTypeRequests"`
	TypeTTLs        map[string]time.Duration `json:"toolTypeTTLs"`
	Recommendations []string                 `json:"recommendations"`
}

// Cache is the process-wide result cache.
type Cache struct {
	mu            sync.Mutex
	entries       map[string]*entry
	maxSize       int
	ttls          map[string]time.Duration
	totalRequests int64
	totalHits     int64
	typeRequests  map[string]int64
}

func New(maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	return &Cache{
		entries:      make(map[string]*entry),
		maxSize:      maxSize,
		ttls:         defaultTTLs(),
		typeRequests: make(map[string]int64),
	}
}

// Key builds the canonical cache key for a call.
func Key(providerID, toolName, canonicalArgs string) string {
	return providerID + ":" + toolName + ":" + canonicalArgs
}

// ShouldCache reports whether a call's result is safe to cache at all.
// Tools whose names or arguments look time- or randomness-dependent are
// always fetched fresh.
func ShouldCache(toolName, argsJSON string) bool {
	name := strings.ToLower(toolName)
	for _, fragment := range volatileNameFragments {
		if strings.Contains(name, fragment) {
			return false
		}
	}

	args := strings.ToLower(argsJSON)
	for _, fragment := range volatileArgFragments {
		if strings.Contains(args, fragment) {
			return false
		}
	}

	return true
}

// Set inserts a result under the given key, evicting the least recently
// used entry when the cache is full. Uncacheable calls are a no-op.
// Returns whether the value was stored.
func (cache *Cache) Set(key, value, toolName, argsJSON string) bool {
	return cache.SetWithTTL(key, value, toolName, argsJSON, 0)
}

// SetWithTTL is Set with an explicit TTL override; zero means the tool
// type's current TTL.
func (cache *Cache) SetWithTTL(key, value, toolName, argsJSON string, ttl time.Duration) bool {
	if !ShouldCache(toolName, argsJSON) {
		return false
	}

	toolType := ClassifyToolType(toolName)

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if ttl <= 0 {
		ttl = cache.ttls[toolType]
	}

	if _, exists := cache.entries[key]; !exists && len(cache.entries) >= cache.maxSize {
		cache.evictOldest()
	}

	now := time.Now()
	cache.entries[key] = &entry{
		value:      value,
		toolType:   toolType,
		expiryAt:   now.Add(ttl),
		createdAt:  now,
		lastAccess: now,
	}

	return true
}

// Get looks a key up, counting the request. Expired entries are deleted
// on sight.
func (cache *Cache) Get(key string) (string, bool) {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.totalRequests++

	e, ok := cache.entries[key]
	if !ok {
		return "", false
	}

	if !e.expiryAt.After(time.Now()) {
		delete(cache.entries, key)
		return "", false
	}

	e.hitCount++
	e.lastAccess = time.Now()
	cache.totalHits++
	cache.typeRequests[e.toolType]++

	return e.value, true
}

// Size returns the number of live entries.
func (cache *Cache) Size() int {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return len(cache.entries)
}

// TTL returns the current TTL for a tool type.
func (cache *Cache) TTL(toolType string) time.Duration {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	return cache.ttls[toolType]
}

// GetStats snapshots the cache counters, runs the adaptive TTL
// adjustment, and derives operator recommendations.
func (cache *Cache) GetStats() Stats {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	cache.adjustTTLs()

	stats := Stats{
		Size:          len(cache.entries),
		TotalRequests: cache.totalRequests,
		TotalHits:     cache.totalHits,
		TypeRequests:  make(map[string]int64, len(cache.typeRequests)),
		TypeTTLs:      make(map[string]time.Duration, len(cache.ttls)),
	}

	for toolType, count := range cache.typeRequests {
		stats.TypeRequests[toolType] = count
	}
	for toolType, ttl := range cache.ttls {
		stats.TypeTTLs[toolType] = ttl
	}

	if cache.totalRequests > 0 {
		stats.HitRate = float64(cache.totalHits) / float64(cache.totalRequests)
	}

	var hitSum int64
	for _, e := range cache.entries {
		hitSum += e.hitCount

		if stats.OldestEntry.IsZero() || e.createdAt.Before(stats.OldestEntry) {
			stats.OldestEntry = e.createdAt
		}
		if e.createdAt.After(stats.NewestEntry) {
			stats.NewestEntry = e.createdAt
		}
	}

	if len(cache.entries) > 0 {
		stats.AvgHitCount = float64(hitSum) / float64(len(cache.entries))
	}

	stats.Recommendations = cache.recommendations(stats)

	return stats
}

// Sweep removes expired entries and re-runs the adaptive TTL adjustment.
func (cache *Cache) Sweep() {
	cache.mu.Lock()
	defer cache.mu.Unlock()

	now := time.Now()
	for key, e := range cache.entries {
		if !e.expiryAt.After(now) {
			delete(cache.entries, key)
		}
	}

	cache.adjustTTLs()
}

// Run sweeps the cache on the given interval until the context ends.
func (cache *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cache.Sweep()
			log.Debug("cache sweep complete", "size", len(cache.entries))
		}
	}
}

// adjustTTLs grows the TTL of tool types that hit often and shrinks the
// TTL of types that rarely do. Caller must hold the lock.
func (cache *Cache) adjustTTLs() {
	hitCounts := make(map[string]int64)
	liveEntries := make(map[string]int64)

	for _, e := range cache.entries {
		hitCounts[e.toolType] += e.hitCount
		liveEntries[e.toolType]++
	}

	for toolType, requests := range cache.typeRequests {
		if requests == 0 {
			continue
		}

		avgHits := 0.0
		if liveEntries[toolType] > 0 {
			avgHits = float64(hitCounts[toolType]) / float64(liveEntries[toolType])
		}

		hitRate := avgHits / float64(requests)

		switch {
		case hitRate > 0.7:
			cache.ttls[toolType] = minDuration(maxTTL, time.Duration(float64(cache.ttls[toolType])*1.2))
		case hitRate < 0.2:
			cache.ttls[toolType] = maxDuration(minTTL, time.Duration(float64(cache.ttls[toolType])*0.8))
		}
	}
}

// evictOldest drops the entry with the oldest last access. Caller must
// hold the lock.
func (cache *Cache) evictOldest() {
	var oldestKey string
	var oldest time.Time

	for key, e := range cache.entries {
		if oldestKey == "" || e.lastAccess.Before(oldest) {
			oldestKey = key
			oldest = e.lastAccess
		}
	}

	if oldestKey != "" {
		delete(cache.entries, oldestKey)
	}
}

func (cache *Cache) recommendations(stats Stats) []string {
	var recs []string

	if stats.HitRate < 0.3 {
		recs = append(recs, "Low cache hit rate - consider increasing TTL values or reviewing caching strategy")
	}
	if float64(stats.Size)/float64(cache.maxSize) > 0.9 {
		recs = append(recs, "Cache is near capacity - consider increasing max size")
	}
	if stats.HitRate > 0.8 {
		recs = append(recs, "Excellent cache performance - current configuration is working well")
	}
	if stats.TotalRequests < 10 {
		recs = append(recs, "Insufficient data for meaningful statistics - more usage needed")
	}

	return recs
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

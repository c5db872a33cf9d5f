// Package cache implements a bounded, TTL-aware in-memory store of
// Fragments keyed by their own content hash.
package cache

import (
	"time"

	"github.com/coldvault/coldvault/digest"
	"github.com/coldvault/coldvault/fragment"
	"github.com/coldvault/coldvault/internal/clock"
	"github.com/coldvault/coldvault/internal/option"
	"github.com/coldvault/coldvault/version"
)

// EvictionStrategy selects which entry Cache.Insert evicts when the
// cache is at capacity.
type EvictionStrategy int

const (
	// LRU evicts the entry with the oldest LastAccessed time.
	LRU EvictionStrategy = iota
	// FIFO evicts an arbitrary entry from the current set. The current
	// implementation walks the underlying map, so which entry is
	// evicted under FIFO is unspecified beyond "some current entry" —
	// callers must not rely on strict insertion order.
	FIFO
)

// String returns the strategy's name.
func (s EvictionStrategy) String() string {
	switch s {
	case LRU:
		return "lru"
	case FIFO:
		return "fifo"
	default:
		return "unknown"
	}
}

// DefaultCapacity effectively disables capacity-based eviction, leaving
// TTL as the primary bound; tests rely on this default.
const DefaultCapacity = 1 << 30

// DefaultTTL is the default entry lifetime before EvictExpired removes
// it.
const DefaultTTL = 300 * time.Second

// Config configures a Cache. The zero value is not meaningful; build one
// with NewConfig.
type Config struct {
	Capacity int
	TTL      time.Duration
	Strategy EvictionStrategy
}

// NewConfig builds a Config from the documented defaults, applying opts
// in order.
func NewConfig(opts ...option.Option[*Config]) (Config, error) {
	cfg := &Config{
		Capacity: DefaultCapacity,
		TTL:      DefaultTTL,
		Strategy: LRU,
	}
	if err := option.Apply(cfg, opts...); err != nil {
		return Config{}, err
	}

	return *cfg, nil
}

// WithCapacity sets the maximum number of entries the Cache retains.
func WithCapacity(n int) option.Option[*Config] {
	return option.NoError(func(c *Config) { c.Capacity = n })
}

// WithTTL sets the entry lifetime EvictExpired enforces.
func WithTTL(d time.Duration) option.Option[*Config] {
	return option.NoError(func(c *Config) { c.TTL = d })
}

// WithEvictionStrategy sets which strategy Insert uses when the cache is
// full.
func WithEvictionStrategy(s EvictionStrategy) option.Option[*Config] {
	return option.NoError(func(c *Config) { c.Strategy = s })
}

type entry struct {
	fragment     *fragment.Fragment
	lastAccessed time.Time
}

// Cache is a bounded, TTL-aware store of Fragments keyed by their own
// content hash (not by any caller-chosen key).
//
// Cache is not safe for concurrent use.
type Cache struct {
	entries map[digest.Digest]*entry
	config  Config
	clock   clock.Clock
}

// New creates an empty Cache under cfg, using clk for LastAccessed
// bookkeeping. A nil clk defaults to clock.System{}.
func New(cfg Config, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.System{}
	}

	return &Cache{
		entries: make(map[digest.Digest]*entry),
		config:  cfg,
		clock:   clk,
	}
}

// Insert stores f under its own content hash, evicting one entry first
// if the cache is already at capacity.
func (c *Cache) Insert(f *fragment.Fragment) {
	key := f.Hash()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.config.Capacity {
		c.evictOne()
	}

	c.entries[key] = &entry{fragment: f, lastAccessed: c.clock.Now()}
}

func (c *Cache) evictOne() {
	if len(c.entries) == 0 {
		return
	}

	switch c.config.Strategy {
	case LRU:
		var oldestKey digest.Digest
		var oldestTime time.Time
		first := true
		for k, e := range c.entries {
			if first || e.lastAccessed.Before(oldestTime) {
				oldestKey = k
				oldestTime = e.lastAccessed
				first = false
			}
		}
		delete(c.entries, oldestKey)
	default: // FIFO: evict an arbitrary current entry.
		for k := range c.entries {
			delete(c.entries, k)
			return
		}
	}
}

// Get returns the Fragment stored under key, refreshing its
// LastAccessed time on a hit.
func (c *Cache) Get(key digest.Digest) (*fragment.Fragment, bool) {
	e, found := c.entries[key]
	if !found {
		return nil, false
	}
	e.lastAccessed = c.clock.Now()

	return e.fragment, true
}

// Remove deletes key, returning its Fragment if present.
func (c *Cache) Remove(key digest.Digest) (*fragment.Fragment, bool) {
	e, found := c.entries[key]
	if !found {
		return nil, false
	}
	delete(c.entries, key)

	return e.fragment, true
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.entries = make(map[digest.Digest]*entry)
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int { return len(c.entries) }

// EvictExpired removes every entry whose age (now - LastAccessed) is at
// least the configured TTL.
func (c *Cache) EvictExpired() int {
	now := c.clock.Now()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.lastAccessed) >= c.config.TTL {
			delete(c.entries, k)
			removed++
		}
	}

	return removed
}

// LoadFromBackup inserts log's latest Fragment under its content hash.
// It is a no-op if log has no latest Version.
func LoadFromBackup(c *Cache, log *version.Log) {
	latest, ok := log.GetLatest()
	if !ok {
		return
	}
	c.Insert(latest.Fragment)
}

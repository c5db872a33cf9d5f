// Package coldvault provides a versioned, compressing, content-addressed
// storage engine: every write produces a new immutable Version, values
// are addressed by their SHA-256 digest, and a bounded in-memory Cache
// sits in front of a durable on-disk Backup.
//
// # Core Features
//
//   - Content-addressed values: keys default to SHA-256(value)
//   - Per-engine compression policy (zstd, lz4, s2, or none), with
//     optional pre-trained dictionary mode
//   - Linear version history with rollback and retention trimming
//   - A bounded, TTL-evicting Cache in front of the durable Backup
//   - A two-file on-disk format (metadata.json + versions.bin)
//
// # Basic Usage
//
// Creating a store and inserting a value:
//
//	import "github.com/coldvault/coldvault"
//
//	store, err := coldvault.New(coldvault.Options{})
//	_, _, err = store.Insert([]byte("hello"), digest.Digest{})
//
//	value, err := store.Get(digest.New([]byte("hello")))
//
// Persisting and reloading:
//
//	err = store.SaveToDisk("/var/lib/coldvault", 3)
//	reopened, err := coldvault.Open("/var/lib/coldvault", coldvault.Options{})
//
// # Package Structure
//
// This package provides convenient top-level wrappers around index.Index,
// the engine's public façade. For fine-grained control over compression
// policy, retention, and cache configuration, construct the underlying
// packages (codec, fragment, cache, index) directly.
package coldvault

import (
	"github.com/coldvault/coldvault/cache"
	"github.com/coldvault/coldvault/codec"
	"github.com/coldvault/coldvault/fragment"
	"github.com/coldvault/coldvault/index"
	"github.com/coldvault/coldvault/internal/clock"
)

// Options configures New and Open. The zero value uses the engine's
// documented defaults: zstd compression at the default level, no
// dictionary, unbounded version retention, and the default Cache config
// (1<<30 entry capacity, 300s TTL, LRU).
type Options struct {
	Policy      fragment.Policy
	MaxVersions *int
	CacheConfig *cache.Config
	Clock       clock.Clock
}

func (o Options) cacheConfig() (cache.Config, error) {
	if o.CacheConfig != nil {
		return *o.CacheConfig, nil
	}

	return cache.NewConfig()
}

// New creates an empty store under opts.
func New(opts Options) (*index.Index, error) {
	cfg, err := opts.cacheConfig()
	if err != nil {
		return nil, err
	}

	return index.New(opts.Policy, opts.MaxVersions, cfg, opts.Clock), nil
}

// Open loads a store previously persisted with Index.SaveToDisk from
// path, rebuilding its Cache and shadow version history from the loaded
// Backup.
func Open(path string, opts Options) (*index.Index, error) {
	cfg, err := opts.cacheConfig()
	if err != nil {
		return nil, err
	}

	return index.LoadFromDisk(path, cfg, opts.Clock)
}

// DefaultPolicy is the compression policy New uses when Options.Policy
// is the zero value: zstd at codec.DefaultLevel, no dictionary.
var DefaultPolicy = fragment.Policy{Algorithm: codec.AlgorithmZstd, Level: codec.DefaultLevel}

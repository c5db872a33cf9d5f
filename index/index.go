// Package index implements the public façade over Backup, Cache, and a
// shadow VersionLog: the single entry point through which callers
// insert, fetch, remove, and version-manage content-addressed values.
package index

import (
	"fmt"

	"github.com/coldvault/coldvault/backup"
	"github.com/coldvault/coldvault/cache"
	"github.com/coldvault/coldvault/digest"
	"github.com/coldvault/coldvault/errs"
	"github.com/coldvault/coldvault/fragment"
	"github.com/coldvault/coldvault/internal/clock"
	"github.com/coldvault/coldvault/version"
)

// Index is not safe for concurrent use; callers that need concurrent
// access must wrap it in their own mutual-exclusion primitive.
type Index struct {
	backup *backup.Backup
	cache  *cache.Cache
	shadow *version.Log
	clock  clock.Clock
}

// New creates an Index with a fresh, empty Fragment as its first
// tracked state.
func New(policy fragment.Policy, maxVersions *int, cacheConfig cache.Config, clk clock.Clock) *Index {
	if clk == nil {
		clk = clock.System{}
	}

	initial := fragment.New(policy, clk)
	b := backup.New(initial, maxVersions, clk)
	c := cache.New(cacheConfig, clk)
	shadow := version.New(maxVersions, clk)
	shadow.AddVersion(initial.Clone())

	return &Index{backup: b, cache: c, shadow: shadow, clock: clk}
}

// LoadFromDisk rebuilds an Index from a Backup directory previously
// written by SaveToDisk: the Backup and a fresh Cache (primed with the
// loaded latest Fragment) and shadow log are reconstructed from it.
func LoadFromDisk(path string, cacheConfig cache.Config, clk clock.Clock) (*Index, error) {
	if clk == nil {
		clk = clock.System{}
	}

	b, err := backup.LoadFromDisk(path, clk)
	if err != nil {
		return nil, err
	}

	c := cache.New(cacheConfig, clk)
	cache.LoadFromBackup(c, b.Log)

	latest, ok := b.Log.GetLatest()
	if !ok {
		return nil, errs.ErrNoVersionsFound
	}

	shadow := version.New(b.Log.GetMaxVersions(), clk)
	shadow.AddVersion(latest.Fragment.Clone())

	return &Index{backup: b, cache: c, shadow: shadow, clock: clk}, nil
}

func (idx *Index) latestFragment() (*fragment.Fragment, error) {
	latest, ok := idx.backup.Log.GetLatest()
	if !ok {
		return nil, errs.ErrVersionNotFound
	}

	return latest.Fragment.Clone(), nil
}

// Insert stores value under key, defaulting key to SHA-256(value) when
// the caller passes the zero Digest. It returns the previous compressed
// slot, if the key already existed in the prior Fragment.
func (idx *Index) Insert(value []byte, key digest.Digest) ([]byte, bool, error) {
	if key.IsZero() {
		key = digest.New(value)
	}

	next, err := idx.latestFragment()
	if err != nil {
		return nil, false, err
	}

	prev, had, err := next.Insert(value, key)
	if err != nil {
		return nil, false, err
	}

	idx.cache.Insert(next.Clone())
	idx.backup.AddVersion(next.Clone())
	idx.shadow.AddVersion(next)

	return prev, had, nil
}

// Get returns the value stored under key. Because the Cache is keyed by
// Fragment content hash rather than by entry key, the initial
// cache.Get(key) lookup below is effectively always a miss in ordinary
// operation — this is a documented peculiarity of the design, preserved
// rather than silently re-keyed to entry-key lookups.
func (idx *Index) Get(key digest.Digest) ([]byte, error) {
	latest, err := idx.latestFragment()
	if err != nil {
		return nil, err
	}

	if cached, found := idx.cache.Get(key); found {
		value, found, err := cached.Get(key)
		if err != nil {
			return nil, err
		}
		if found {
			return value, nil
		}
	}

	idx.cache.Insert(latest.Clone())

	value, found, err := latest.Get(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", errs.ErrKeyNotFound, key)
	}

	return value, nil
}

// Remove deletes key from the latest Fragment and appends a new Version
// reflecting the removal, returning the decompressed value that was
// removed.
func (idx *Index) Remove(key digest.Digest) ([]byte, error) {
	next, err := idx.latestFragment()
	if err != nil {
		return nil, err
	}

	value, found, err := next.Remove(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", errs.ErrKeyNotFound, key)
	}

	idx.cache.Insert(next.Clone())
	idx.backup.AddVersion(next.Clone())
	idx.shadow.AddVersion(next)

	return value, nil
}

// CreateNewVersion appends a clone of the current latest Fragment as a
// fresh, observationally no-op Version: its content is unchanged, only
// its version number advances.
func (idx *Index) CreateNewVersion() error {
	latest, err := idx.latestFragment()
	if err != nil {
		return err
	}

	idx.backup.AddVersion(latest.Clone())
	idx.shadow.AddVersion(latest)

	return nil
}

// Rollback restores the Version numbered n: it asks the Backup to roll
// back, clears the Cache, installs the restored Fragment in the Cache,
// rolls the shadow log back to match, and returns the restored Fragment
// data. It fails with errs.ErrVersionNotFound when no such version
// exists.
func (idx *Index) Rollback(n uint64) (*fragment.Fragment, error) {
	restored, ok := idx.backup.Rollback(n)
	if !ok {
		return nil, fmt.Errorf("%w: version %d", errs.ErrVersionNotFound, n)
	}

	idx.cache.Clear()
	idx.cache.Insert(restored.Clone())

	if _, ok := idx.shadow.Rollback(n); !ok {
		return nil, fmt.Errorf("%w: version %d", errs.ErrVersionNotFound, n)
	}

	return restored, nil
}

// SaveToDisk persists the Backup to path at the given compression level.
func (idx *Index) SaveToDisk(path string, level int32) error {
	return idx.backup.SaveToDisk(path, level)
}

// GetMetadata returns the latest Fragment's Metadata.
func (idx *Index) GetMetadata() (fragment.Metadata, error) {
	latest, ok := idx.backup.Log.GetLatest()
	if !ok {
		return fragment.Metadata{}, errs.ErrVersionNotFound
	}

	return latest.Fragment.GetMetadata(), nil
}

// GetVersionHistory returns every retained Version from the shadow log,
// oldest first.
func (idx *Index) GetVersionHistory() []version.Version {
	return idx.shadow.GetHistory()
}

// ClearCache empties the Cache.
func (idx *Index) ClearCache() { idx.cache.Clear() }

// EvictExpiredCache removes every Cache entry past its TTL, returning
// the number removed.
func (idx *Index) EvictExpiredCache() int { return idx.cache.EvictExpired() }

// SetMaxVersions updates the retention bound on both the Backup's
// VersionLog and the shadow log.
func (idx *Index) SetMaxVersions(max *int) {
	idx.backup.Log.SetMaxVersions(max)
	idx.shadow.SetMaxVersions(max)
}

// GetMaxVersions returns the Backup's VersionLog retention bound.
func (idx *Index) GetMaxVersions() *int { return idx.backup.Log.GetMaxVersions() }

// ClearHistory retains only the latest Version in both the Backup's
// VersionLog and the shadow log.
func (idx *Index) ClearHistory() {
	idx.backup.Log.ClearHistory()
	idx.shadow.ClearHistory()
}

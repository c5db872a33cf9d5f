package index

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/coldvault/coldvault/cache"
	"github.com/coldvault/coldvault/digest"
	"github.com/coldvault/coldvault/errs"
	"github.com/coldvault/coldvault/fragment"
	"github.com/coldvault/coldvault/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) (*Index, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	cfg, err := cache.NewConfig()
	require.NoError(t, err)

	return New(fragment.Policy{}, nil, cfg, fc), fc
}

func TestIndex_InsertThenGetRoundTrips(t *testing.T) {
	idx, _ := newTestIndex(t)

	value := []byte("payload")
	key := digest.New(value)

	_, had, err := idx.Insert(value, digest.Digest{})
	require.NoError(t, err)
	assert.False(t, had)

	got, err := idx.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestIndex_InsertDefaultsKeyToValueHash(t *testing.T) {
	idx, _ := newTestIndex(t)

	value := []byte("auto-keyed")
	_, _, err := idx.Insert(value, digest.Digest{})
	require.NoError(t, err)

	got, err := idx.Get(digest.New(value))
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestIndex_GetMissingKeyReturnsKeyNotFound(t *testing.T) {
	idx, _ := newTestIndex(t)

	_, err := idx.Get(digest.New([]byte("absent")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrKeyNotFound))
}

func TestIndex_RemoveReturnsPlaintextAndAdvancesVersion(t *testing.T) {
	idx, _ := newTestIndex(t)

	value := []byte("to-remove")
	key := digest.New(value)
	_, _, err := idx.Insert(value, digest.Digest{})
	require.NoError(t, err)

	historyBefore := len(idx.GetVersionHistory())

	removed, err := idx.Remove(key)
	require.NoError(t, err)
	assert.Equal(t, value, removed)

	_, err = idx.Get(key)
	assert.True(t, errors.Is(err, errs.ErrKeyNotFound))
	assert.Len(t, idx.GetVersionHistory(), historyBefore+1)
}

func TestIndex_RemoveMissingKeyReturnsKeyNotFound(t *testing.T) {
	idx, _ := newTestIndex(t)

	_, err := idx.Remove(digest.New([]byte("absent")))
	assert.True(t, errors.Is(err, errs.ErrKeyNotFound))
}

func TestIndex_CreateNewVersionIsObservationallyNoOp(t *testing.T) {
	idx, _ := newTestIndex(t)

	value := []byte("stable")
	key := digest.New(value)
	_, _, err := idx.Insert(value, digest.Digest{})
	require.NoError(t, err)

	metaBefore, err := idx.GetMetadata()
	require.NoError(t, err)
	historyBefore := len(idx.GetVersionHistory())

	require.NoError(t, idx.CreateNewVersion())

	metaAfter, err := idx.GetMetadata()
	require.NoError(t, err)
	assert.Equal(t, metaBefore.Size, metaAfter.Size)
	assert.Len(t, idx.GetVersionHistory(), historyBefore+1)

	got, err := idx.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestIndex_RollbackRestoresPriorContent(t *testing.T) {
	idx, _ := newTestIndex(t)

	a, b := []byte("a"), []byte("b")
	_, _, err := idx.Insert(a, digest.Digest{})
	require.NoError(t, err)
	_, _, err = idx.Insert(b, digest.Digest{})
	require.NoError(t, err)

	history := idx.GetVersionHistory()
	targetVersion := history[len(history)-2].Number

	restored, err := idx.Rollback(targetVersion)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Len())

	_, err = idx.Get(digest.New(b))
	assert.True(t, errors.Is(err, errs.ErrKeyNotFound))

	got, err := idx.Get(digest.New(a))
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestIndex_RollbackMissingVersionReturnsVersionNotFound(t *testing.T) {
	idx, _ := newTestIndex(t)

	_, err := idx.Rollback(999)
	assert.True(t, errors.Is(err, errs.ErrVersionNotFound))
}

func TestIndex_CacheOperationsSurviveClear(t *testing.T) {
	idx, fc := newTestIndex(t)

	value := []byte("cached")
	key := digest.New(value)
	_, _, err := idx.Insert(value, digest.Digest{})
	require.NoError(t, err)

	idx.ClearCache()

	got, err := idx.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	fc.Advance(10 * time.Minute)
	removed := idx.EvictExpiredCache()
	assert.GreaterOrEqual(t, removed, 0)

	got, err = idx.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestIndex_SetMaxVersionsTrimsBothLogs(t *testing.T) {
	idx, _ := newTestIndex(t)

	for _, s := range []string{"a", "b", "c"} {
		_, _, err := idx.Insert([]byte(s), digest.Digest{})
		require.NoError(t, err)
	}

	max := 2
	idx.SetMaxVersions(&max)
	assert.Len(t, idx.GetVersionHistory(), max)
	require.NotNil(t, idx.GetMaxVersions())
	assert.Equal(t, max, *idx.GetMaxVersions())
}

func TestIndex_ClearHistoryRetainsLatestOnly(t *testing.T) {
	idx, _ := newTestIndex(t)

	for _, s := range []string{"a", "b"} {
		_, _, err := idx.Insert([]byte(s), digest.Digest{})
		require.NoError(t, err)
	}

	idx.ClearHistory()
	assert.Len(t, idx.GetVersionHistory(), 1)

	got, err := idx.Get(digest.New([]byte("b")))
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func TestIndex_SaveThenLoadFromDiskPreservesContent(t *testing.T) {
	idx, fc := newTestIndex(t)

	value := []byte("persisted")
	key := digest.New(value)
	_, _, err := idx.Insert(value, digest.Digest{})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, idx.SaveToDisk(dir, 3))

	cfg, err := cache.NewConfig()
	require.NoError(t, err)
	loaded, err := LoadFromDisk(dir, cfg, fc)
	require.NoError(t, err)

	got, err := loaded.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestIndex_EndToEndScenario_InsertRemoveRollbackPersist(t *testing.T) {
	idx, _ := newTestIndex(t)

	values := []string{"alpha", "beta", "gamma"}
	for _, s := range values {
		_, _, err := idx.Insert([]byte(s), digest.Digest{})
		require.NoError(t, err)
	}

	_, err := idx.Remove(digest.New([]byte("beta")))
	require.NoError(t, err)

	history := idx.GetVersionHistory()
	require.GreaterOrEqual(t, len(history), 3)

	// history[0] is genesis and history[1] the initial empty Fragment;
	// history[2] is the first Version that holds "alpha".
	rollbackTarget := history[2].Number
	_, err = idx.Rollback(rollbackTarget)
	require.NoError(t, err)

	got, err := idx.Get(digest.New([]byte("alpha")))
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), got)

	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, idx.SaveToDisk(dir, 3))

	cfg, err := cache.NewConfig()
	require.NoError(t, err)
	reloaded, err := LoadFromDisk(dir, cfg, nil)
	require.NoError(t, err)

	got, err = reloaded.Get(digest.New([]byte("alpha")))
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), got)
}

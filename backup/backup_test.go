package backup

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/coldvault/coldvault/digest"
	"github.com/coldvault/coldvault/fragment"
	"github.com/coldvault/coldvault/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fragmentWith(fc clock.Clock, values ...string) *fragment.Fragment {
	f := fragment.New(fragment.Policy{}, fc)
	for _, v := range values {
		_, _, err := f.Insert([]byte(v), digest.New([]byte(v)))
		if err != nil {
			panic(err)
		}
	}

	return f
}

func TestNewSeedsLogAndComputesHash(t *testing.T) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	f := fragmentWith(fc, "a")

	b := New(f, nil, fc)
	assert.Equal(t, 2, b.Log.GetVersionCount(), "genesis plus the seeded fragment")
	assert.Equal(t, digest.New(f.ToBytes()), b.Hash)
	assert.Equal(t, b.Log.GetVersionCount(), b.Metadata.FragmentCount)
	assert.Equal(t, b.Log.GetVersionCount(), b.Metadata.VersionCount)
	assert.Equal(t, f.Len(), b.Metadata.TotalSize)
}

func TestAddVersionAccumulatesTotalSizeAndRefreshesHash(t *testing.T) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	b := New(fragmentWith(fc, "a"), nil, fc)

	before := b.Metadata.TotalSize
	next := fragmentWith(fc, "a", "b")
	b.AddVersion(next)

	assert.Equal(t, before+next.Len(), b.Metadata.TotalSize)
	assert.Equal(t, digest.New(next.ToBytes()), b.Hash)
	assert.Equal(t, 3, b.Metadata.VersionCount)
}

func TestRollbackRefreshesMetadataAndHash(t *testing.T) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	b := New(fragmentWith(fc, "a"), nil, fc)
	b.AddVersion(fragmentWith(fc, "a", "b"))

	restored, ok := b.Rollback(1)
	require.True(t, ok)
	assert.Equal(t, restored.Len(), b.Metadata.TotalSize)
	assert.Equal(t, digest.New(restored.ToBytes()), b.Hash)
	assert.Equal(t, 2, b.Metadata.VersionCount)
}

func TestRollbackToMissingVersionReportsFailure(t *testing.T) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	b := New(fragmentWith(fc, "a"), nil, fc)

	_, ok := b.Rollback(99)
	assert.False(t, ok)
}

func TestSaveToDiskRecordsActualCompressionLevel(t *testing.T) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	b := New(fragmentWith(fc, "a"), nil, fc)

	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, b.SaveToDisk(dir, 7))

	require.NotNil(t, b.Metadata.CompressionLevel)
	assert.Equal(t, int32(7), *b.Metadata.CompressionLevel)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	fc := clock.NewFake(time.Unix(1_700_000_000, 0))
	max := 5
	b := New(fragmentWith(fc, "a"), &max, fc)
	b.AddVersion(fragmentWith(fc, "a", "b"))

	dir := filepath.Join(t.TempDir(), "store")
	require.NoError(t, b.SaveToDisk(dir, 3))

	loaded, err := LoadFromDisk(dir, fc)
	require.NoError(t, err)

	assert.Equal(t, b.Metadata.VersionCount, loaded.Metadata.VersionCount)
	assert.Equal(t, b.Metadata.TotalSize, loaded.Metadata.TotalSize)
	assert.Equal(t, b.Hash, loaded.Hash)

	originalLatest, _ := b.Log.GetLatest()
	loadedLatest, _ := loaded.Log.GetLatest()
	assert.Equal(t, originalLatest.Fragment.Hash(), loadedLatest.Fragment.Hash())

	value, found, err := loadedLatest.Fragment.Get(digest.New([]byte("b")))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("b"), value)
}

func TestLoadFromDiskMissingDirectoryFails(t *testing.T) {
	_, err := LoadFromDisk(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	assert.Error(t, err)
}

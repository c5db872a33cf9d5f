package fragment

import "github.com/coldvault/coldvault/digest"

// MutCursor exposes raw compressed slots for in-place editing. It is a
// deliberately narrow "unsafe edit" scope: every method bypasses
// refreshInvariants, so hash, last_modified, and size go stale the
// moment a caller edits through it.
//
// Callers MUST call Recompute before the owning Fragment is next
// observed by VersionLog.AddVersion, Backup.AddVersion, or any other
// snapshot point — otherwise the Fragment's hash will not match
// SHA-256(table.ToBytes()), violating the engine's core invariant.
// It stands in for the source implementation's mutating iterators
// (iter_mut/range_mut/values_mut/first_entry/last_entry), gated here
// behind an explicit type instead of being exposed as bare methods on
// Fragment. The cursor offers per-key access (MutValue) and whole-table
// iteration (All); it has no range-bounded or first/last-entry variants.
type MutCursor struct {
	fragment *Fragment
}

// Edit opens a MutCursor over f. The cursor holds no lock; f must not
// be used from another goroutine while a MutCursor is open.
func (f *Fragment) Edit() *MutCursor {
	return &MutCursor{fragment: f}
}

// MutValue returns a pointer to the raw compressed slot for key,
// without decompressing it and without refreshing invariants.
func (c *MutCursor) MutValue(key digest.Digest) (*[]byte, bool) {
	return c.fragment.table.MutValue(key)
}

// All iterates every raw (key, compressed value) pair in key order,
// allowing in-place edits to the value slice. It does not refresh
// invariants.
func (c *MutCursor) All(yield func(digest.Digest, *[]byte) bool) {
	c.fragment.table.All(func(k digest.Digest, _ []byte) bool {
		ptr, _ := c.fragment.table.MutValue(k)
		return yield(k, ptr)
	})
}

// Recompute re-establishes the Fragment's invariants after edits made
// through this cursor: hash, last_modified, and size are refreshed from
// the Table's current contents. Callers must invoke this before the
// Fragment is snapshotted into a Version or Backup.
func (c *MutCursor) Recompute() {
	c.fragment.refreshInvariants()
}

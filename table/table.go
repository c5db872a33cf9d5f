// Package table implements the ordered, content-addressed mapping that
// backs every Fragment. A Table never holds plaintext: its values are
// always the compressed bytes a Fragment produced.
package table

import (
	"sort"

	"github.com/coldvault/coldvault/digest"
	"github.com/coldvault/coldvault/internal/binformat"
	"github.com/coldvault/coldvault/internal/pool"
)

// entry is one key/value pair, kept sorted by Key.
type entry struct {
	Key   digest.Digest
	Value []byte
}

// Table is an ordered mapping from Digest to compressed bytes, sorted
// by the Digest's lexicographic order.
//
// The zero value is an empty, ready-to-use Table.
//
// Table is implemented as a sorted slice rather than a balanced tree:
// at the entry counts this engine targets (single Fragments holding
// thousands to low millions of keys), a sorted slice with binary
// search has better cache locality than a pointer-chasing tree, at the
// cost of O(n) insert/remove instead of O(log n). See the design notes
// for why this trade was made instead of importing a B-tree.
type Table struct {
	entries []entry
}

// New creates an empty Table.
func New() *Table {
	return &Table{}
}

func (t *Table) search(key digest.Digest) (int, bool) {
	i := sort.Search(len(t.entries), func(i int) bool {
		return !t.entries[i].Key.Less(key)
	})
	if i < len(t.entries) && t.entries[i].Key.Equal(key) {
		return i, true
	}

	return i, false
}

// Insert stores value under key, returning the previous value if one
// existed.
func (t *Table) Insert(key digest.Digest, value []byte) (prev []byte, hadPrev bool) {
	i, found := t.search(key)
	if found {
		prev = t.entries[i].Value
		t.entries[i].Value = value

		return prev, true
	}

	t.entries = append(t.entries, entry{})
	copy(t.entries[i+1:], t.entries[i:])
	t.entries[i] = entry{Key: key, Value: value}

	return nil, false
}

// Get returns the value stored under key, if any.
func (t *Table) Get(key digest.Digest) ([]byte, bool) {
	i, found := t.search(key)
	if !found {
		return nil, false
	}

	return t.entries[i].Value, true
}

// Remove deletes key from the table, returning its value if present.
func (t *Table) Remove(key digest.Digest) ([]byte, bool) {
	i, found := t.search(key)
	if !found {
		return nil, false
	}

	v := t.entries[i].Value
	t.entries = append(t.entries[:i], t.entries[i+1:]...)

	return v, true
}

// ContainsKey reports whether key exists in the table.
func (t *Table) ContainsKey(key digest.Digest) bool {
	_, found := t.search(key)
	return found
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.entries) }

// IsEmpty reports whether the table has no entries.
func (t *Table) IsEmpty() bool { return len(t.entries) == 0 }

// Clear removes every entry.
func (t *Table) Clear() { t.entries = nil }

// All iterates every (key, value) pair in key order.
func (t *Table) All(yield func(digest.Digest, []byte) bool) {
	for _, e := range t.entries {
		if !yield(e.Key, e.Value) {
			return
		}
	}
}

// Range iterates every (key, value) pair with key in [from, to),
// in key order. hasTo=false means "no upper bound" and to is ignored.
func (t *Table) Range(from, to digest.Digest, hasTo bool, yield func(digest.Digest, []byte) bool) {
	i, _ := t.search(from)
	for ; i < len(t.entries); i++ {
		if hasTo && !t.entries[i].Key.Less(to) {
			return
		}
		if !yield(t.entries[i].Key, t.entries[i].Value) {
			return
		}
	}
}

// FirstKeyValue returns the lowest-keyed entry, if any.
func (t *Table) FirstKeyValue() (digest.Digest, []byte, bool) {
	if len(t.entries) == 0 {
		return digest.Digest{}, nil, false
	}

	return t.entries[0].Key, t.entries[0].Value, true
}

// LastKeyValue returns the highest-keyed entry, if any.
func (t *Table) LastKeyValue() (digest.Digest, []byte, bool) {
	if len(t.entries) == 0 {
		return digest.Digest{}, nil, false
	}
	last := t.entries[len(t.entries)-1]

	return last.Key, last.Value, true
}

// PopFirst removes and returns the lowest-keyed entry, if any.
func (t *Table) PopFirst() (digest.Digest, []byte, bool) {
	if len(t.entries) == 0 {
		return digest.Digest{}, nil, false
	}
	first := t.entries[0]
	t.entries = t.entries[1:]

	return first.Key, first.Value, true
}

// PopLast removes and returns the highest-keyed entry, if any.
func (t *Table) PopLast() (digest.Digest, []byte, bool) {
	if len(t.entries) == 0 {
		return digest.Digest{}, nil, false
	}
	last := t.entries[len(t.entries)-1]
	t.entries = t.entries[:len(t.entries)-1]

	return last.Key, last.Value, true
}

// Append merges other's entries into t, clearing other. Keys present in
// both tables take other's value, matching BTreeMap::append semantics
// in the original implementation this engine is modeled on.
func (t *Table) Append(other *Table) {
	for _, e := range other.entries {
		t.Insert(e.Key, e.Value)
	}
	other.entries = nil
}

// MutValue returns a pointer to the stored value slice for key, for
// callers performing an in-place edit. It does not refresh any owning
// Fragment's invariants; see fragment.MutCursor.
func (t *Table) MutValue(key digest.Digest) (*[]byte, bool) {
	i, found := t.search(key)
	if !found {
		return nil, false
	}

	return &t.entries[i].Value, true
}

// ToBytes produces the deterministic serialization that defines a
// Fragment's content hash: for each entry in key order, 32 raw key
// bytes, a big-endian uint32 value length, then the value bytes.
func (t *Table) ToBytes() []byte {
	size := 0
	for _, e := range t.entries {
		size += digest.Size + 4 + len(e.Value)
	}

	bb := pool.Default.Get()
	defer pool.Default.Put(bb)
	bb.Reset()

	if cap(bb.B) < size {
		bb.B = make([]byte, 0, size)
	}

	for _, e := range t.entries {
		bb.B = append(bb.B, e.Key[:]...)
		bb.B = appendUint32(bb.B, uint32(len(e.Value)))
		bb.B = append(bb.B, e.Value...)
	}

	out := make([]byte, len(bb.B))
	copy(out, bb.B)

	return out
}

func appendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// EncodeBinary writes a reversible encoding of t to w: an entry count
// followed by each entry's 32 raw key bytes and length-prefixed value,
// in key order. Unlike ToBytes, this encoding round-trips through
// Decode and is used for persistence rather than content hashing.
func (t *Table) EncodeBinary(w *binformat.Writer) {
	w.Uint64(uint64(len(t.entries)))
	for _, e := range t.entries {
		w.Bytes32(e.Key[:])
		w.Bytes(e.Value)
	}
}

// Decode reads a Table previously written by EncodeBinary.
func Decode(r *binformat.Reader) (*Table, error) {
	count, err := r.Uint64()
	if err != nil {
		return nil, err
	}

	tbl := &Table{entries: make([]entry, 0, count)}
	for i := uint64(0); i < count; i++ {
		keyBytes, err := r.Bytes32()
		if err != nil {
			return nil, err
		}
		value, err := r.Bytes()
		if err != nil {
			return nil, err
		}

		var key digest.Digest
		copy(key[:], keyBytes)
		tbl.entries = append(tbl.entries, entry{Key: key, Value: value})
	}

	return tbl, nil
}

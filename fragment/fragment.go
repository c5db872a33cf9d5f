// Package fragment implements the compressing snapshot wrapper around a
// Table. A Fragment transparently compresses values on write and
// decompresses them on read, while maintaining a content hash and
// metadata that must stay consistent after every successful mutation.
package fragment

import (
	"fmt"
	"time"

	"github.com/coldvault/coldvault/codec"
	"github.com/coldvault/coldvault/digest"
	"github.com/coldvault/coldvault/errs"
	"github.com/coldvault/coldvault/internal/binformat"
	"github.com/coldvault/coldvault/internal/clock"
	"github.com/coldvault/coldvault/table"
)

// Policy describes how a Fragment compresses the values it stores. All
// Fragments produced by one engine instance share a Policy; it is
// carried inside the Fragment itself so a Fragment loaded from disk
// self-describes which codec and dictionary produced its bytes.
type Policy struct {
	// Algorithm names the compression codec. The zero value resolves
	// to codec.AlgorithmZstd.
	Algorithm codec.Algorithm
	// Level is the compression level passed to the codec. Zero
	// resolves to codec.DefaultLevel.
	Level int32
	// Dictionary, when non-nil, switches the Fragment into
	// dictionary-trained compression mode for every value it stores.
	Dictionary []byte
}

func (p Policy) normalized() Policy {
	if p.Algorithm == "" {
		p.Algorithm = codec.AlgorithmZstd
	}
	if p.Level == 0 {
		p.Level = codec.DefaultLevel
	}

	return p
}

func (p Policy) codec() (codec.Codec, error) {
	return codec.ForAlgorithm(p.Algorithm)
}

// Metadata describes a Fragment's compression policy and bookkeeping
// fields. LastModified and Size are refreshed on every mutation.
type Metadata struct {
	CreationDate     time.Time
	LastModified     time.Time
	Compression      string
	CompressionLevel int32
	CompressionDict  []byte
	// Size is the number of entries in the Fragment's Table, not a
	// byte count.
	Size int
}

// EncodeBinary appends Metadata's deterministic binary encoding to w.
func (m Metadata) EncodeBinary(w *binformat.Writer) {
	w.Int64(m.CreationDate.UnixNano())
	w.Int64(m.LastModified.UnixNano())
	w.String(m.Compression)
	w.Int64(int64(m.CompressionLevel))
	w.OptionalBytes(m.CompressionDict)
	w.Uint64(uint64(m.Size))
}

// DecodeMetadata reads a Metadata value previously written by
// EncodeBinary.
func DecodeMetadata(r *binformat.Reader) (Metadata, error) {
	var m Metadata

	created, err := r.Int64()
	if err != nil {
		return m, fmt.Errorf("%w: metadata creation date: %w", errs.ErrDeserialization, err)
	}
	modified, err := r.Int64()
	if err != nil {
		return m, fmt.Errorf("%w: metadata last modified: %w", errs.ErrDeserialization, err)
	}
	compression, err := r.String()
	if err != nil {
		return m, fmt.Errorf("%w: metadata compression: %w", errs.ErrDeserialization, err)
	}
	level, err := r.Int64()
	if err != nil {
		return m, fmt.Errorf("%w: metadata level: %w", errs.ErrDeserialization, err)
	}
	dict, err := r.OptionalBytes()
	if err != nil {
		return m, fmt.Errorf("%w: metadata dictionary: %w", errs.ErrDeserialization, err)
	}
	size, err := r.Uint64()
	if err != nil {
		return m, fmt.Errorf("%w: metadata size: %w", errs.ErrDeserialization, err)
	}

	m.CreationDate = time.Unix(0, created).UTC()
	m.LastModified = time.Unix(0, modified).UTC()
	m.Compression = compression
	m.CompressionLevel = int32(level)
	m.CompressionDict = dict
	m.Size = int(size)

	return m, nil
}

// Fragment is an immutable-by-convention snapshot of a key/value map at
// one logical point in time: a Table of compressed bytes, a content
// hash of that Table's serialization, and Metadata describing the
// compression policy in effect.
//
// Fragment is not safe for concurrent use.
type Fragment struct {
	table    *table.Table
	hash     digest.Digest
	metadata Metadata
	clock    clock.Clock
}

// New creates an empty Fragment under policy, using clk for timestamps.
// A nil clk defaults to clock.System{}.
func New(policy Policy, clk clock.Clock) *Fragment {
	if clk == nil {
		clk = clock.System{}
	}
	policy = policy.normalized()

	tbl := table.New()
	now := clk.Now()

	return &Fragment{
		table: tbl,
		hash:  digest.New(tbl.ToBytes()),
		metadata: Metadata{
			CreationDate:     now,
			LastModified:     now,
			Compression:      string(policy.Algorithm),
			CompressionLevel: policy.Level,
			CompressionDict:  policy.Dictionary,
			Size:             0,
		},
		clock: clk,
	}
}

// Hash returns the Fragment's current content hash.
func (f *Fragment) Hash() digest.Digest { return f.hash }

// GetMetadata returns the Fragment's Metadata.
func (f *Fragment) GetMetadata() Metadata { return f.metadata }

func (f *Fragment) policy() Policy {
	return Policy{
		Algorithm:  codec.Algorithm(f.metadata.Compression),
		Level:      f.metadata.CompressionLevel,
		Dictionary: f.metadata.CompressionDict,
	}
}

func (f *Fragment) compress(value []byte) ([]byte, error) {
	c, err := f.policy().codec()
	if err != nil {
		return nil, err
	}

	var out []byte
	if f.metadata.CompressionDict != nil {
		out, err = c.CompressDict(value, int(f.metadata.CompressionLevel), f.metadata.CompressionDict)
	} else {
		out, err = c.Compress(value, int(f.metadata.CompressionLevel))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCompression, err)
	}

	return out, nil
}

func (f *Fragment) decompress(compressed []byte) ([]byte, error) {
	c, err := f.policy().codec()
	if err != nil {
		return nil, err
	}

	var out []byte
	if f.metadata.CompressionDict != nil {
		out, err = c.DecompressDict(compressed, f.metadata.CompressionDict)
	} else {
		out, err = c.Decompress(compressed)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrDecompression, err)
	}

	return out, nil
}

// refreshInvariants recomputes hash and last_modified/size after a
// mutation, per the Fragment invariant: hash == SHA-256(table.ToBytes())
// and metadata.Size == table.Len().
func (f *Fragment) refreshInvariants() {
	f.hash = digest.New(f.table.ToBytes())
	f.metadata.LastModified = f.clock.Now()
	f.metadata.Size = f.table.Len()
}

// Insert compresses value under the Fragment's policy, stores it under
// key, refreshes the Fragment's invariants, and returns the previous
// *compressed* slot if one existed. Callers that need the previous
// plaintext should call Get or Remove instead.
func (f *Fragment) Insert(value []byte, key digest.Digest) ([]byte, bool, error) {
	compressed, err := f.compress(value)
	if err != nil {
		return nil, false, err
	}

	prev, had := f.table.Insert(key, compressed)
	f.refreshInvariants()

	return prev, had, nil
}

// Get decompresses and returns the value stored under key.
func (f *Fragment) Get(key digest.Digest) ([]byte, bool, error) {
	compressed, found := f.table.Get(key)
	if !found {
		return nil, false, nil
	}

	value, err := f.decompress(compressed)
	if err != nil {
		return nil, true, err
	}

	return value, true, nil
}

// Remove deletes key, refreshes invariants, and returns its decompressed
// value if it existed.
func (f *Fragment) Remove(key digest.Digest) ([]byte, bool, error) {
	compressed, found := f.table.Remove(key)
	f.refreshInvariants()
	if !found {
		return nil, false, nil
	}

	value, err := f.decompress(compressed)
	if err != nil {
		return nil, true, err
	}

	return value, true, nil
}

// ContainsKey reports whether key exists in the Fragment.
func (f *Fragment) ContainsKey(key digest.Digest) bool { return f.table.ContainsKey(key) }

// Len returns the number of entries in the Fragment.
func (f *Fragment) Len() int { return f.table.Len() }

// IsEmpty reports whether the Fragment has no entries.
func (f *Fragment) IsEmpty() bool { return f.table.IsEmpty() }

// Clear removes every entry and refreshes invariants.
func (f *Fragment) Clear() {
	f.table.Clear()
	f.refreshInvariants()
}

// Item is one decompressed (key, value) pair yielded by an iterator, or
// a decompression error for that position. Iteration does not abort on
// a bad entry; the error is reported per-item.
type Item struct {
	Key   digest.Digest
	Value []byte
	Err   error
}

// All iterates every entry in key order, decompressing each value.
func (f *Fragment) All(yield func(Item) bool) {
	f.table.All(func(k digest.Digest, compressed []byte) bool {
		value, err := f.decompress(compressed)
		return yield(Item{Key: k, Value: value, Err: err})
	})
}

// Range iterates entries with key in [from, to) in key order,
// decompressing each value. hasTo=false means "no upper bound".
func (f *Fragment) Range(from, to digest.Digest, hasTo bool, yield func(Item) bool) {
	f.table.Range(from, to, hasTo, func(k digest.Digest, compressed []byte) bool {
		value, err := f.decompress(compressed)
		return yield(Item{Key: k, Value: value, Err: err})
	})
}

// FirstKeyValue returns the lowest-keyed entry, decompressed.
func (f *Fragment) FirstKeyValue() (digest.Digest, []byte, bool, error) {
	k, compressed, ok := f.table.FirstKeyValue()
	if !ok {
		return digest.Digest{}, nil, false, nil
	}
	value, err := f.decompress(compressed)

	return k, value, true, err
}

// LastKeyValue returns the highest-keyed entry, decompressed.
func (f *Fragment) LastKeyValue() (digest.Digest, []byte, bool, error) {
	k, compressed, ok := f.table.LastKeyValue()
	if !ok {
		return digest.Digest{}, nil, false, nil
	}
	value, err := f.decompress(compressed)

	return k, value, true, err
}

// PopFirst removes and returns the lowest-keyed entry, decompressed,
// refreshing invariants.
func (f *Fragment) PopFirst() (digest.Digest, []byte, bool, error) {
	k, compressed, ok := f.table.PopFirst()
	f.refreshInvariants()
	if !ok {
		return digest.Digest{}, nil, false, nil
	}
	value, err := f.decompress(compressed)

	return k, value, true, err
}

// PopLast removes and returns the highest-keyed entry, decompressed,
// refreshing invariants.
func (f *Fragment) PopLast() (digest.Digest, []byte, bool, error) {
	k, compressed, ok := f.table.PopLast()
	f.refreshInvariants()
	if !ok {
		return digest.Digest{}, nil, false, nil
	}
	value, err := f.decompress(compressed)

	return k, value, true, err
}

// Append merges other's entries into f, destructively emptying other's
// table, then refreshes invariants.
func (f *Fragment) Append(other *Fragment) {
	f.table.Append(other.table)
	f.refreshInvariants()
}

// Clone returns a deep copy of f, independent of f's Table. VersionLog
// and Backup snapshot Fragments by cloning, since Versions are
// immutable once appended.
func (f *Fragment) Clone() *Fragment {
	clonedTable := table.New()
	f.table.All(func(k digest.Digest, v []byte) bool {
		valueCopy := make([]byte, len(v))
		copy(valueCopy, v)
		clonedTable.Insert(k, valueCopy)

		return true
	})

	metaCopy := f.metadata
	if f.metadata.CompressionDict != nil {
		metaCopy.CompressionDict = make([]byte, len(f.metadata.CompressionDict))
		copy(metaCopy.CompressionDict, f.metadata.CompressionDict)
	}

	return &Fragment{
		table:    clonedTable,
		hash:     f.hash,
		metadata: metaCopy,
		clock:    f.clock,
	}
}

// ToBytes concatenates the Table serialization, the raw hash bytes, and
// the binary-encoded Metadata into a stable envelope used for backup
// digest computation and checksumming. It is not reversible; callers
// that need to reconstruct a Fragment should use EncodeBinary/Decode
// instead.
func (f *Fragment) ToBytes() []byte {
	w := binformat.NewWriter(f.table.Len()*48 + 64)
	w.Write(f.table.ToBytes())
	w.Write(f.hash.Bytes())
	f.metadata.EncodeBinary(w)

	return w.Bytes()
}

// EncodeBinary writes a reversible encoding of f to w: the Table, the
// hash, then the Metadata. Used by VersionLog and Backup persistence.
func (f *Fragment) EncodeBinary(w *binformat.Writer) {
	f.table.EncodeBinary(w)
	w.Bytes32(f.hash.Bytes())
	f.metadata.EncodeBinary(w)
}

// Decode reads a Fragment previously written by EncodeBinary. A nil clk
// defaults to clock.System{}.
func Decode(r *binformat.Reader, clk clock.Clock) (*Fragment, error) {
	tbl, err := table.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: fragment table: %w", errs.ErrDeserialization, err)
	}

	hashBytes, err := r.Bytes32()
	if err != nil {
		return nil, fmt.Errorf("%w: fragment hash: %w", errs.ErrDeserialization, err)
	}
	hash, err := digest.FromBytes(hashBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: fragment hash: %w", errs.ErrDeserialization, err)
	}

	meta, err := DecodeMetadata(r)
	if err != nil {
		return nil, err
	}

	if clk == nil {
		clk = clock.System{}
	}

	return &Fragment{
		table:    tbl,
		hash:     hash,
		metadata: meta,
		clock:    clk,
	}, nil
}

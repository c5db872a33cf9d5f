// Package version implements the linear, bounded-retention history of
// Fragments that backs rollback and version queries.
package version

import (
	"fmt"
	"time"

	"github.com/coldvault/coldvault/codec"
	"github.com/coldvault/coldvault/errs"
	"github.com/coldvault/coldvault/fragment"
	"github.com/coldvault/coldvault/internal/binformat"
	"github.com/coldvault/coldvault/internal/clock"
)

// Version is one immutable point in a Log's history.
type Version struct {
	Number    uint64
	CreatedAt time.Time
	Fragment  *fragment.Fragment
}

// Log is a linear, oldest-first sequence of Versions with an optional
// retention bound. A Log always contains at least one Version: the
// genesis Version (Number == 0), seeded with an empty Fragment.
//
// Log is not safe for concurrent use.
type Log struct {
	versions    []Version
	maxVersions *int
	clock       clock.Clock
}

// New creates a Log seeded with a genesis Version. maxVersions, when
// non-nil, bounds the number of retained Versions; oldest entries are
// dropped on overflow. A nil clk defaults to clock.System{}.
func New(maxVersions *int, clk clock.Clock) *Log {
	if clk == nil {
		clk = clock.System{}
	}

	genesis := Version{
		Number:    0,
		CreatedAt: clk.Now(),
		Fragment:  fragment.New(fragment.Policy{Algorithm: codec.AlgorithmZstd}, clk),
	}

	return &Log{
		versions:    []Version{genesis},
		maxVersions: maxVersions,
		clock:       clk,
	}
}

// AddVersion appends a new Version wrapping f, numbered one past the
// current latest. f is taken as-is; the caller is responsible for
// passing a Fragment it owns (typically a Clone of the mutated latest
// Fragment), since Versions are never mutated after creation.
func (l *Log) AddVersion(f *fragment.Fragment) {
	next := uint64(0)
	if len(l.versions) > 0 {
		next = l.versions[len(l.versions)-1].Number + 1
	}

	l.versions = append(l.versions, Version{
		Number:    next,
		CreatedAt: l.clock.Now(),
		Fragment:  f,
	})

	l.trim()
}

func (l *Log) trim() {
	if l.maxVersions == nil {
		return
	}
	max := *l.maxVersions
	for len(l.versions) > max {
		l.versions = l.versions[1:]
	}
}

// GetVersion returns the Version numbered n, if any.
func (l *Log) GetVersion(n uint64) (Version, bool) {
	for _, v := range l.versions {
		if v.Number == n {
			return v, true
		}
	}

	return Version{}, false
}

// GetLatest returns the most recently appended Version.
func (l *Log) GetLatest() (Version, bool) {
	if len(l.versions) == 0 {
		return Version{}, false
	}

	return l.versions[len(l.versions)-1], true
}

// GetHistory returns every retained Version, oldest first. The returned
// slice is a copy; mutating it does not affect the Log.
func (l *Log) GetHistory() []Version {
	out := make([]Version, len(l.versions))
	copy(out, l.versions)

	return out
}

// GetVersionCount returns the number of retained Versions.
func (l *Log) GetVersionCount() int { return len(l.versions) }

// Rollback truncates the log so the Version numbered n becomes the new
// latest, returning a clone of that Version's Fragment. If n does not
// exist, the log is left unchanged and the second return is false.
//
// After a successful rollback, the next AddVersion resumes numbering at
// n+1.
func (l *Log) Rollback(n uint64) (*fragment.Fragment, bool) {
	idx := -1
	for i, v := range l.versions {
		if v.Number == n {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}

	target := l.versions[idx]
	l.versions = l.versions[:idx+1]

	return target.Fragment.Clone(), true
}

// SetMaxVersions updates the retention bound, trimming oldest Versions
// if the new bound is tighter than the current length.
func (l *Log) SetMaxVersions(max *int) {
	l.maxVersions = max
	l.trim()
}

// GetMaxVersions returns the current retention bound, or nil if
// unbounded.
func (l *Log) GetMaxVersions() *int { return l.maxVersions }

// ClearHistory discards every Version except the latest.
func (l *Log) ClearHistory() {
	if len(l.versions) == 0 {
		return
	}
	latest := l.versions[len(l.versions)-1]
	l.versions = []Version{latest}
}

// EncodeBinary writes the Log's deterministic binary encoding: the
// optional max_versions bound followed by each Version in order.
func (l *Log) EncodeBinary() []byte {
	w := binformat.NewWriter(256 * len(l.versions))
	w.OptionalBytes(maxVersionsBytes(l.maxVersions))
	w.Uint64(uint64(len(l.versions)))
	for _, v := range l.versions {
		w.Uint64(v.Number)
		w.Int64(v.CreatedAt.UnixNano())
		v.Fragment.EncodeBinary(w)
	}

	return w.Bytes()
}

func maxVersionsBytes(max *int) []byte {
	if max == nil {
		return nil
	}
	w := binformat.NewWriter(8)
	w.Uint64(uint64(*max))

	return w.Bytes()
}

// DecodeLog reads a Log previously written by EncodeBinary.
func DecodeLog(data []byte, clk clock.Clock) (*Log, error) {
	r := binformat.NewReader(data)

	maxBytes, err := r.OptionalBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: version log max_versions: %w", errs.ErrDeserialization, err)
	}
	var maxVersions *int
	if maxBytes != nil {
		mr := binformat.NewReader(maxBytes)
		v, err := mr.Uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: version log max_versions value: %w", errs.ErrDeserialization, err)
		}
		m := int(v)
		maxVersions = &m
	}

	count, err := r.Uint64()
	if err != nil {
		return nil, fmt.Errorf("%w: version log count: %w", errs.ErrDeserialization, err)
	}

	if clk == nil {
		clk = clock.System{}
	}

	versions := make([]Version, 0, count)
	for i := uint64(0); i < count; i++ {
		number, err := r.Uint64()
		if err != nil {
			return nil, fmt.Errorf("%w: version number: %w", errs.ErrDeserialization, err)
		}
		createdNano, err := r.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: version created_at: %w", errs.ErrDeserialization, err)
		}
		f, err := fragment.Decode(r, clk)
		if err != nil {
			return nil, err
		}

		versions = append(versions, Version{
			Number:    number,
			CreatedAt: time.Unix(0, createdNano).UTC(),
			Fragment:  f,
		})
	}

	if len(versions) == 0 {
		return nil, errs.ErrNoVersionsFound
	}

	return &Log{versions: versions, maxVersions: maxVersions, clock: clk}, nil
}

// Package binformat implements the deterministic binary encoding used
// to serialize Fragment metadata and VersionLogs.
//
// The encoding is intentionally simple (big-endian length-prefixed
// fields) rather than a general-purpose scheme like gob or protobuf:
// the storage engine only needs the encoding to round-trip stably
// within a single build, not to be portable across independent
// implementations.
package binformat

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer accumulates a deterministic binary encoding. The zero value is
// an empty Writer; NewWriter additionally preallocates capacity.
type Writer struct {
	buf []byte
}

// NewWriter creates a Writer with the given starting capacity hint.
func NewWriter(capacityHint int) *Writer {
	return &Writer{buf: make([]byte, 0, capacityHint)}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// Uint8 appends a single byte.
func (w *Writer) Uint8(v uint8) { w.buf = append(w.buf, v) }

// Uint32 appends a big-endian uint32.
func (w *Writer) Uint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// Uint64 appends a big-endian uint64.
func (w *Writer) Uint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// Int64 appends a big-endian int64.
func (w *Writer) Int64(v int64) { w.Uint64(uint64(v)) }

// Bool appends a single byte, 1 for true and 0 for false.
func (w *Writer) Bool(v bool) {
	if v {
		w.Uint8(1)
	} else {
		w.Uint8(0)
	}
}

// Bytes32 appends exactly 32 raw bytes without a length prefix. The
// caller guarantees b has that length (used for Digests).
func (w *Writer) Bytes32(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes appends a uint32 length prefix followed by b's contents.
func (w *Writer) Bytes(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// OptionalBytes appends a presence byte followed by Bytes(b) when b is
// non-nil.
func (w *Writer) OptionalBytes(b []byte) {
	w.Bool(b != nil)
	if b != nil {
		w.Bytes(b)
	}
}

// String appends a length-prefixed UTF-8 string.
func (w *Writer) String(s string) { w.Bytes([]byte(s)) }

// Reader decodes a Writer's output, consuming it sequentially.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential decoding.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return fmt.Errorf("binformat: unexpected end of data, need %d bytes, have %d", n, len(r.buf)-r.pos)
	}

	return nil
}

// Uint8 reads a single byte.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++

	return v, nil
}

// Uint32 reads a big-endian uint32.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4

	return v, nil
}

// Uint64 reads a big-endian uint64.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8

	return v, nil
}

// Int64 reads a big-endian int64.
func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Bool reads a single presence/flag byte.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint8()
	return v != 0, err
}

// Bytes32 reads exactly 32 raw bytes.
func (r *Reader) Bytes32() ([]byte, error) {
	if err := r.need(32); err != nil {
		return nil, err
	}
	out := make([]byte, 32)
	copy(out, r.buf[r.pos:r.pos+32])
	r.pos += 32

	return out, nil
}

// Bytes reads a uint32-length-prefixed byte slice.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)

	return out, nil
}

// OptionalBytes reads a presence byte followed by Bytes when present.
// It returns a nil slice when the field was absent.
func (r *Reader) OptionalBytes() ([]byte, error) {
	present, err := r.Bool()
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, nil
	}

	return r.Bytes()
}

// String reads a length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Done reports whether the Reader has reached the end of buf, which
// callers can use to detect trailing garbage after decoding a known
// schema.
func (r *Reader) Done() bool { return r.pos >= len(r.buf) }

var _ io.Writer = (*Writer)(nil)

// Write implements io.Writer, appending p verbatim without a length
// prefix, for callers assembling a Writer through the standard
// io.Writer interface (e.g. json.NewEncoder).
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

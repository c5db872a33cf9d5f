// Package digest provides the content hash primitive used to address
// every value and Fragment in coldvault's storage engine.
//
// A Digest is the SHA-256 of some byte sequence. It has a stable 32-byte
// encoding, a total lexicographic order, and is suitable for use as a
// map key.
package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Size is the length in bytes of a Digest.
const Size = sha256.Size

// Digest is a 32-byte SHA-256 content hash.
//
// The zero Digest is the hash of no input having been computed; it is
// distinct from New(nil), which is the SHA-256 of the empty byte slice.
// Callers that need "no digest yet" semantics should use a pointer or a
// separate boolean rather than relying on the zero value.
type Digest [Size]byte

// New computes the Digest of data.
func New(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// FromBytes constructs a Digest from an existing 32-byte slice, copying
// it so the returned Digest is independent of the caller's buffer.
//
// It returns an error if b is not exactly Size bytes long.
func FromBytes(b []byte) (Digest, error) {
	var d Digest
	if len(b) != Size {
		return d, fmt.Errorf("digest: expected %d bytes, got %d", Size, len(b))
	}
	copy(d[:], b)

	return d, nil
}

// Bytes returns the raw 32-byte representation of d.
//
// The returned slice is a copy; mutating it does not affect d.
func (d Digest) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, d[:])

	return out
}

// Compare returns -1, 0, or 1 depending on whether d is lexicographically
// less than, equal to, or greater than other. This defines the Table's
// iteration order.
func (d Digest) Compare(other Digest) int {
	return bytes.Compare(d[:], other[:])
}

// Less reports whether d sorts before other.
func (d Digest) Less(other Digest) bool {
	return d.Compare(other) < 0
}

// Equal reports whether d and other are the same hash.
func (d Digest) Equal(other Digest) bool {
	return d == other
}

// IsZero reports whether d is the all-zero Digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// String returns the lowercase hex encoding of d, suitable for logging
// and for on-disk JSON representations that go through encoding/json's
// TextMarshaler path.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalBinary implements encoding.BinaryMarshaler, returning the raw
// 32 bytes. This is the stable byte form referenced throughout the
// storage engine's on-disk format.
func (d Digest) MarshalBinary() ([]byte, error) {
	return d.Bytes(), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (d *Digest) UnmarshalBinary(b []byte) error {
	decoded, err := FromBytes(b)
	if err != nil {
		return err
	}
	*d = decoded

	return nil
}

// MarshalText implements encoding.TextMarshaler so a Digest can be used
// directly as a JSON object key or string value.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Digest) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("digest: invalid hex: %w", err)
	}

	decoded, err := FromBytes(b)
	if err != nil {
		return err
	}
	*d = decoded

	return nil
}

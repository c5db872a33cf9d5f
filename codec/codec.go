// Package codec provides the byte-compression abstraction that
// Fragments use to store values in their Table without ever holding
// plaintext. Every codec supports a plain mode and a dictionary-trained
// mode; the two are not interchangeable, and a value compressed with
// one cannot be decompressed with the other.
package codec

import (
	"fmt"

	"github.com/coldvault/coldvault/errs"
)

// Algorithm names a compression implementation. The value is recorded
// verbatim in a Fragment's Metadata so a loaded Fragment self-describes
// which codec produced its bytes.
type Algorithm string

// Canonical algorithm names understood by ForAlgorithm.
// AlgorithmZstd is the recommended default; the others are available
// for callers who want a different space/speed trade-off while staying
// self-consistent within one engine instance.
const (
	AlgorithmZstd Algorithm = "zstd"
	AlgorithmLZ4  Algorithm = "lz4"
	AlgorithmS2   Algorithm = "s2"
	AlgorithmNone Algorithm = "none"
)

// String implements fmt.Stringer.
func (a Algorithm) String() string {
	return string(a)
}

// DefaultLevel is the compression level used when a CompressionPolicy
// does not override it.
const DefaultLevel = 3

// Codec compresses and decompresses byte slices, in both a plain mode
// and a dictionary-trained mode. Implementations must be safe for
// concurrent use: Fragments sharing a Codec may call it from whatever
// goroutine happens to own them, even though no single Fragment is
// itself concurrency-safe.
type Codec interface {
	// Compress compresses data at the given level.
	Compress(data []byte, level int) ([]byte, error)
	// Decompress reverses Compress.
	Decompress(data []byte) ([]byte, error)
	// CompressDict compresses data at the given level using a
	// pre-trained dictionary.
	CompressDict(data []byte, level int, dict []byte) ([]byte, error)
	// DecompressDict reverses CompressDict using the same dictionary.
	DecompressDict(data []byte, dict []byte) ([]byte, error)
}

// ForAlgorithm returns the Codec implementation registered under name.
func ForAlgorithm(name Algorithm) (Codec, error) {
	switch name {
	case AlgorithmZstd, "":
		return Zstd{}, nil
	case AlgorithmLZ4:
		return LZ4{}, nil
	case AlgorithmS2:
		return S2{}, nil
	case AlgorithmNone:
		return NoOp{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownAlgorithm, name)
	}
}

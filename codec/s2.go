package codec

import "github.com/klauspost/compress/s2"

// S2 is an alternate Codec trading compression ratio for very high
// throughput, useful for CompressionPolicy configurations that favor
// write latency over storage footprint.
type S2 struct{}

var _ Codec = S2{}

// Compress compresses data with S2. The level parameter is accepted for
// interface symmetry with Zstd but is not used: S2's block format does
// not expose a tunable level.
func (S2) Compress(data []byte, _ int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress reverses Compress.
func (S2) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}

// CompressDict always fails: S2 has no dictionary mode.
func (S2) CompressDict([]byte, int, []byte) ([]byte, error) {
	return nil, errNoDictionarySupport
}

// DecompressDict always fails: S2 has no dictionary mode.
func (S2) DecompressDict([]byte, []byte) ([]byte, error) {
	return nil, errNoDictionarySupport
}

package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// LZ4 is an alternate Codec for callers who prefer LZ4's speed over
// zstd's ratio. A CompressionPolicy may name "lz4" as its algorithm;
// the engine stays self-consistent as long as every Fragment built
// under that policy uses the same codec.
type LZ4 struct{}

var _ Codec = LZ4{}

var lz4CompressorPool = sync.Pool{
	New: func() any { return &lz4.Compressor{} },
}

// errNoDictionarySupport is returned by LZ4/S2's dictionary methods:
// neither format has a trained-dictionary mode comparable to zstd's.
var errNoDictionarySupport = errors.New("codec: algorithm does not support dictionaries")

// Compress compresses data with LZ4. The level parameter is accepted
// for interface symmetry with Zstd but is not used: lz4's block
// compressor does not expose a tunable level knob.
func (LZ4) Compress(data []byte, _ int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	c, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(c)

	n, err := c.CompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("codec: lz4 compress: %w", err)
	}

	return dst[:n], nil
}

// Decompress reverses Compress, growing its scratch buffer until the
// block fits or a safety ceiling is hit.
func (LZ4) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	const maxSize = 128 * 1024 * 1024
	size := len(data) * 4
	for size <= maxSize {
		buf := make([]byte, size)
		n, err := lz4.UncompressBlock(data, buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
			return nil, fmt.Errorf("codec: lz4 decompress: %w", err)
		}
		size *= 2
	}

	return nil, fmt.Errorf("codec: lz4 decompress: %w", lz4.ErrInvalidSourceShortBuffer)
}

// CompressDict always fails: LZ4 has no dictionary mode in this codec.
func (LZ4) CompressDict([]byte, int, []byte) ([]byte, error) {
	return nil, errNoDictionarySupport
}

// DecompressDict always fails: LZ4 has no dictionary mode in this codec.
func (LZ4) DecompressDict([]byte, []byte) ([]byte, error) {
	return nil, errNoDictionarySupport
}

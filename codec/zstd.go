package codec

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Zstd is the recommended Codec, backed by the pure-Go
// github.com/klauspost/compress/zstd implementation. It is chosen over
// a cgo-based zstd binding because dictionary-trained compression must
// work identically on every platform the engine runs on, without a
// cgo toolchain being part of the deployment story.
type Zstd struct{}

var _ Codec = Zstd{}

// zstdEncoderPools pools plain (no-dictionary) encoders keyed by level,
// since encoders are expensive to construct but stateless to reuse
// across calls via EncodeAll.
var zstdEncoderPools sync.Map // map[int]*sync.Pool

func encoderPool(level int) *sync.Pool {
	if p, ok := zstdEncoderPools.Load(level); ok {
		return p.(*sync.Pool)
	}

	p := &sync.Pool{
		New: func() any {
			enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
			if err != nil {
				panic(fmt.Sprintf("codec: failed to create zstd encoder: %v", err))
			}

			return enc
		},
	}
	actual, _ := zstdEncoderPools.LoadOrStore(level, p)

	return actual.(*sync.Pool)
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("codec: failed to create zstd decoder: %v", err))
		}

		return dec
	},
}

// Compress compresses data at the given zstd level using a pooled
// encoder.
func (Zstd) Compress(data []byte, level int) ([]byte, error) {
	pool := encoderPool(level)
	enc := pool.Get().(*zstd.Encoder)
	defer pool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

// Decompress reverses Compress using a pooled decoder.
func (Zstd) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(dec)

	return dec.DecodeAll(data, nil)
}

// rawDictID is the dictionary ID recorded in frames produced by
// CompressDict. It is non-zero so a frame compressed with a dictionary
// is rejected by Decompress instead of being decoded without it.
const rawDictID = 1

// CompressDict compresses data at the given level using a pre-trained
// dictionary. The dictionary bytes are used as raw content, so any byte
// sequence works as a dictionary. Dictionary encoders are not pooled: a
// Fragment's dictionary rarely changes within its lifetime, but pooling
// per-dict encoders adds bookkeeping this engine doesn't need at its scale.
func (Zstd) CompressDict(data []byte, level int, dict []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderDictRaw(rawDictID, dict),
	)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd dict encoder: %w", err)
	}
	defer enc.Close()

	return enc.EncodeAll(data, nil), nil
}

// DecompressDict reverses CompressDict using the same dictionary.
func (Zstd) DecompressDict(data []byte, dict []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderDictRaw(rawDictID, dict), zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("codec: zstd dict decoder: %w", err)
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}

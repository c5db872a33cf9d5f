package codec

// NoOp bypasses compression entirely. It exists for tests that need to
// assert the storage engine's correctness independent of any real
// compression algorithm, and for callers who already store
// pre-compressed or incompressible values.
type NoOp struct{}

var _ Codec = NoOp{}

// Compress returns data unchanged.
func (NoOp) Compress(data []byte, _ int) ([]byte, error) { return data, nil }

// Decompress returns data unchanged.
func (NoOp) Decompress(data []byte) ([]byte, error) { return data, nil }

// CompressDict returns data unchanged; the dictionary is ignored.
func (NoOp) CompressDict(data []byte, _ int, _ []byte) ([]byte, error) { return data, nil }

// DecompressDict returns data unchanged; the dictionary is ignored.
func (NoOp) DecompressDict(data []byte, _ []byte) ([]byte, error) { return data, nil }

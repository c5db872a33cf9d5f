// Package pool provides a reusable byte-buffer pool to cut allocation
// overhead in the hot path that serializes Tables for content hashing
// (this happens on every write, so buffer reuse matters).
package pool

import "sync"

// Default and ceiling sizes for the shared buffer pool. Buffers larger
// than the threshold are discarded on Put rather than retained, so a
// single oversized backup serialization doesn't pin memory forever.
const (
	DefaultSize = 16 * 1024  // 16KiB, fits most Fragment serializations
	MaxThreshold = 1024 * 1024 // 1MiB
)

// ByteBuffer is a growable byte slice wrapper designed for pooled reuse.
type ByteBuffer struct {
	B []byte
}

// NewByteBuffer creates a ByteBuffer with the given starting capacity.
func NewByteBuffer(defaultSize int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, defaultSize)}
}

// Bytes returns the buffer's current contents.
func (bb *ByteBuffer) Bytes() []byte { return bb.B }

// Len returns the number of bytes currently held.
func (bb *ByteBuffer) Len() int { return len(bb.B) }

// Reset empties the buffer while retaining its backing array.
func (bb *ByteBuffer) Reset() { bb.B = bb.B[:0] }

// Write appends data, growing the backing array as needed. It always
// succeeds, satisfying io.Writer.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

// Pool is a sync.Pool of ByteBuffers with an eviction ceiling so
// outlier-sized buffers don't permanently bloat the pool.
type Pool struct {
	pool         sync.Pool
	maxThreshold int
}

// New creates a Pool whose buffers start at defaultSize and are
// discarded on Put once they grow past maxThreshold.
func New(defaultSize, maxThreshold int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any { return NewByteBuffer(defaultSize) },
		},
		maxThreshold: maxThreshold,
	}
}

// Get retrieves a ByteBuffer from the pool, ready for use.
func (p *Pool) Get() *ByteBuffer {
	bb, _ := p.pool.Get().(*ByteBuffer)
	return bb
}

// Put returns bb to the pool for reuse, discarding it instead if it has
// grown beyond the pool's threshold.
func (p *Pool) Put(bb *ByteBuffer) {
	if bb == nil {
		return
	}
	if p.maxThreshold > 0 && cap(bb.B) > p.maxThreshold {
		return
	}
	bb.Reset()
	p.pool.Put(bb)
}

// Default is the shared pool used by table.Table.ToBytes.
var Default = New(DefaultSize, MaxThreshold)

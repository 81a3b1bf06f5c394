package pool

import "sync"

// BufferPool hands out fixed-size read buffers.
type BufferPool struct {
	sync.Pool
	size int
}

func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		Pool: sync.Pool{
			New: func() any {
				return make([]byte, size)
			},
		},
		size: size,
	}
}

func (b *BufferPool) Size() int {
	return b.size
}

func (b *BufferPool) GetBuffer() []byte {
	return b.Get().([]byte)
}

// PutBuffer returns p to the pool at full length. Buffers of the wrong
// size are dropped.
func (b *BufferPool) PutBuffer(p []byte) {
	if cap(p) != b.size {
		return
	}
	b.Put(p[:b.size])
}

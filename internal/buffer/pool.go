package buffer

import (
	"sync"
)

// FramePool manages reusable element-sized scratch buffers so producers and
// consumers can stage elements without allocating per element. Buffers travel
// as *[]byte so that returning one to the pool does not allocate.
type FramePool struct {
	size int
	pool sync.Pool
}

// NewFramePool creates a pool of buffers of exactly size bytes.
func NewFramePool(size int) *FramePool {
	p := &FramePool{size: size}
	p.pool.New = func() interface{} {
		b := make([]byte, size)
		return &b
	}
	return p
}

// Get retrieves a zeroed buffer of the pool's size.
func (p *FramePool) Get() *[]byte {
	b := p.pool.Get().(*[]byte)
	clear(*b)
	return b
}

// Put returns b to the pool. Nil buffers and buffers of another size are dropped.
func (p *FramePool) Put(b *[]byte) {
	if b == nil || len(*b) != p.size {
		return
	}
	p.pool.Put(b)
}

// Size returns the buffer size handed out by Get.
func (p *FramePool) Size() int {
	return p.size
}

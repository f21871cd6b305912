package buffer

// cursor holds the free-running head/tail counters shared by Ring and Queue.
// head counts every element ever enqueued, tail every element ever dequeued.
// Both wrap at 2^32; head-tail stays correct under uint32 wrap-around as long
// as the capacity never exceeds MaxElems.
type cursor struct {
	head uint32
	tail uint32
	mask uint32 // capacity - 1
	size uint32 // capacity; 0 when uninitialized
}

func (c *cursor) reset(size uint32) {
	c.head = 0
	c.tail = 0
	c.size = size
	c.mask = size - 1
}

func (c *cursor) len() uint32 {
	return c.head - c.tail
}

func (c *cursor) free() uint32 {
	return c.size - c.len()
}

func (c *cursor) empty() bool {
	return c.head-c.tail == 0
}

func (c *cursor) full() bool {
	return c.size != 0 && c.head-c.tail == c.size
}

// slot returns the physical index of logical position n counted from tail.
func (c *cursor) slot(n uint32) uint32 {
	return (c.tail + n) & c.mask
}

// writeSlot returns the physical index of the next enqueue.
func (c *cursor) writeSlot() uint32 {
	return c.head & c.mask
}

// contiguous returns how many slots are addressable from physical index i
// before the storage wraps back to 0.
func (c *cursor) contiguous(i uint32) uint32 {
	return c.size - i
}

// isPowerOfTwo reports whether n is a non-zero power of two not larger than
// MaxElems. Zero passes the (n-1)&n bit test and is rejected explicitly.
func isPowerOfTwo(n int) bool {
	return n > 0 && n <= MaxElems && (n-1)&n == 0
}

package buffer

import "fmt"

// Queue is the typed counterpart of Ring: a FIFO of T values stored in a
// borrowed slice whose length is the capacity.
type Queue[T any] struct {
	slots []T
	c     cursor
}

// NewQueue returns a queue attached to storage.
func NewQueue[T any](storage []T) (*Queue[T], error) {
	q := &Queue[T]{}
	if err := q.Init(storage); err != nil {
		return nil, err
	}
	return q, nil
}

// Init attaches the queue to storage and empties it. len(storage) must be a
// power of two. On error the queue is unchanged. Slots of the previous
// storage are zeroed so a re-attached queue releases what it held.
func (q *Queue[T]) Init(storage []T) error {
	if !isPowerOfTwo(len(storage)) {
		return fmt.Errorf("%w: element count %d is not a power of two in [1, %d]", ErrInvalidAttr, len(storage), MaxElems)
	}
	clear(q.slots)
	q.slots = storage
	q.c.reset(uint32(len(storage)))
	return nil
}

// Reset discards all elements.
func (q *Queue[T]) Reset() {
	clear(q.slots)
	q.c.reset(q.c.size)
}

// Enqueue appends v unless the queue is full.
func (q *Queue[T]) Enqueue(v T) bool {
	if q.c.size == 0 || q.c.full() {
		return false
	}
	q.slots[q.c.writeSlot()] = v
	q.c.head++
	return true
}

// Dequeue removes and returns the oldest value.
func (q *Queue[T]) Dequeue() (T, bool) {
	var zero T
	if q.c.empty() {
		return zero, false
	}
	i := q.c.slot(0)
	v := q.slots[i]
	q.slots[i] = zero
	q.c.tail++
	return v, true
}

// Peek returns the value at logical index i (0 is the oldest) without
// removing it.
func (q *Queue[T]) Peek(i int) (T, bool) {
	var zero T
	if q.c.empty() || i < 0 || uint64(i) >= uint64(q.c.len()) {
		return zero, false
	}
	return q.slots[q.c.slot(uint32(i))], true
}

// Drop discards the oldest value.
func (q *Queue[T]) Drop() bool {
	if q.c.empty() {
		return false
	}
	var zero T
	q.slots[q.c.slot(0)] = zero
	q.c.tail++
	return true
}

// EnqueueN appends as many values from vs as fit and returns the count.
func (q *Queue[T]) EnqueueN(vs []T) int {
	n := min(uint64(len(vs)), uint64(q.c.free()))
	if n == 0 {
		return 0
	}
	i := q.c.writeSlot()
	first := min(n, uint64(q.c.contiguous(i)))
	copy(q.slots[i:], vs[:first])
	copy(q.slots, vs[first:n])
	q.c.head += uint32(n)
	return int(n)
}

// DequeueN moves up to len(out) of the oldest values into out and returns the
// count.
func (q *Queue[T]) DequeueN(out []T) int {
	n := min(uint64(len(out)), uint64(q.c.len()))
	if n == 0 {
		return 0
	}
	i := q.c.slot(0)
	first := min(n, uint64(q.c.contiguous(i)))
	copy(out[:first], q.slots[i:])
	copy(out[first:n], q.slots)
	clear(q.slots[i : uint64(i)+first])
	clear(q.slots[:n-first])
	q.c.tail += uint32(n)
	return int(n)
}

// IsEmpty reports whether the queue holds no values.
func (q *Queue[T]) IsEmpty() bool { return q.c.empty() }

// IsFull reports whether every slot is occupied.
func (q *Queue[T]) IsFull() bool { return q.c.full() }

// Len returns the number of queued values.
func (q *Queue[T]) Len() int { return int(q.c.len()) }

// Cap returns the number of slots.
func (q *Queue[T]) Cap() int { return int(q.c.size) }

// Free returns the number of unoccupied slots.
func (q *Queue[T]) Free() int { return int(q.c.free()) }

// Package buffer provides fixed-capacity ring buffers over caller-owned storage.
//
// Capacities are powers of two so that slot addressing reduces to a bitmask.
// Nothing in this package allocates after construction, blocks, or locks:
// callers sharing a ring between goroutines supply their own synchronization.
package buffer

import (
	"errors"
	"fmt"
)

// MaxElems is the largest capacity a ring accepts. It keeps head-tail
// representable in the uint32 counters and fits in int on 32-bit targets.
const MaxElems = 1 << 30

// ErrInvalidAttr is returned by Init and New when the attributes are rejected.
var ErrInvalidAttr = errors.New("buffer: invalid ring attributes")

// Attr describes the storage a Ring is attached to.
type Attr struct {
	Storage  []byte // borrowed; must hold at least ElemSize*NumElems bytes
	ElemSize int    // bytes per element
	NumElems int    // slot count, a power of two
}

func (a Attr) validate() error {
	switch {
	case len(a.Storage) == 0:
		return fmt.Errorf("%w: storage is empty", ErrInvalidAttr)
	case a.ElemSize <= 0:
		return fmt.Errorf("%w: element size %d", ErrInvalidAttr, a.ElemSize)
	case !isPowerOfTwo(a.NumElems):
		return fmt.Errorf("%w: element count %d is not a power of two in [1, %d]", ErrInvalidAttr, a.NumElems, MaxElems)
	case len(a.Storage)/a.ElemSize < a.NumElems:
		return fmt.Errorf("%w: storage of %d bytes cannot hold %d elements of %d bytes",
			ErrInvalidAttr, len(a.Storage), a.NumElems, a.ElemSize)
	}
	return nil
}

// Ring is a FIFO of fixed-size byte elements stored in a borrowed slice.
// When full, new elements are rejected; the oldest data is never overwritten.
// The zero value is an empty ring with no capacity until Init succeeds.
type Ring struct {
	storage  []byte
	elemSize int
	c        cursor
}

// New returns a ring attached to attr.Storage.
func New(attr Attr) (*Ring, error) {
	r := &Ring{}
	if err := r.Init(attr); err != nil {
		return nil, err
	}
	return r, nil
}

// Init attaches the ring to attr.Storage and empties it. On error the ring is
// left exactly as it was. Init never reads or writes the storage contents, so
// calling it again is the way to clear a ring.
func (r *Ring) Init(attr Attr) error {
	if err := attr.validate(); err != nil {
		return err
	}
	r.storage = attr.Storage[:attr.ElemSize*attr.NumElems]
	r.elemSize = attr.ElemSize
	r.c.reset(uint32(attr.NumElems))
	return nil
}

// Reset discards all elements, keeping the current attributes.
func (r *Ring) Reset() {
	r.c.reset(r.c.size)
}

// Enqueue copies elem into the ring. It fails if the ring is full or elem is
// not exactly ElemSize bytes long.
func (r *Ring) Enqueue(elem []byte) bool {
	if r.c.size == 0 || len(elem) != r.elemSize || r.c.full() {
		return false
	}
	copy(r.at(r.c.writeSlot()), elem)
	r.c.head++
	return true
}

// Dequeue moves the oldest element into out. It fails if the ring is empty or
// out is shorter than ElemSize; out is untouched on failure.
func (r *Ring) Dequeue(out []byte) bool {
	if r.c.empty() || len(out) < r.elemSize {
		return false
	}
	copy(out, r.at(r.c.slot(0)))
	r.c.tail++
	return true
}

// Peek copies the element at logical index (0 is the oldest) into out without
// removing it.
func (r *Ring) Peek(out []byte, index int) bool {
	if r.c.empty() || index < 0 || uint64(index) >= uint64(r.c.len()) || len(out) < r.elemSize {
		return false
	}
	copy(out, r.at(r.c.slot(uint32(index))))
	return true
}

// Drop discards the oldest element.
func (r *Ring) Drop() bool {
	if r.c.empty() {
		return false
	}
	r.c.tail++
	return true
}

// EnqueueN copies as many whole elements from elems as fit and returns how
// many were queued. elems must be a multiple of ElemSize long; otherwise
// nothing is queued.
func (r *Ring) EnqueueN(elems []byte) int {
	if r.c.size == 0 || len(elems)%r.elemSize != 0 {
		return 0
	}
	n := min(uint64(len(elems)/r.elemSize), uint64(r.c.free()))
	if n == 0 {
		return 0
	}
	i := r.c.writeSlot()
	first := min(n, uint64(r.c.contiguous(i)))
	split := int(first) * r.elemSize
	copy(r.storage[int(i)*r.elemSize:], elems[:split])
	copy(r.storage, elems[split:int(n)*r.elemSize])
	r.c.head += uint32(n)
	return int(n)
}

// DequeueN moves up to len(out)/ElemSize of the oldest elements into out and
// returns how many were moved.
func (r *Ring) DequeueN(out []byte) int {
	if r.c.size == 0 {
		return 0
	}
	n := min(uint64(len(out)/r.elemSize), uint64(r.c.len()))
	if n == 0 {
		return 0
	}
	i := r.c.slot(0)
	first := min(n, uint64(r.c.contiguous(i)))
	split := int(first) * r.elemSize
	copy(out[:split], r.storage[int(i)*r.elemSize:])
	copy(out[split:int(n)*r.elemSize], r.storage)
	r.c.tail += uint32(n)
	return int(n)
}

// IsEmpty reports whether the ring holds no elements.
func (r *Ring) IsEmpty() bool { return r.c.empty() }

// IsFull reports whether every slot is occupied. An uninitialized ring is
// never full.
func (r *Ring) IsFull() bool { return r.c.full() }

// Len returns the number of elements currently queued.
func (r *Ring) Len() int { return int(r.c.len()) }

// Cap returns the number of slots.
func (r *Ring) Cap() int { return int(r.c.size) }

// Free returns the number of unoccupied slots.
func (r *Ring) Free() int { return int(r.c.free()) }

// ElemSize returns the fixed element size in bytes.
func (r *Ring) ElemSize() int { return r.elemSize }

func (r *Ring) at(i uint32) []byte {
	off := int(i) * r.elemSize
	return r.storage[off : off+r.elemSize]
}

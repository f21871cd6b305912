package buffer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/eapache/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueInitRejectsBadCapacity(t *testing.T) {
	for _, n := range []int{0, 3, 6, 100} {
		_, err := NewQueue(make([]int, n))
		require.ErrorIs(t, err, ErrInvalidAttr, "capacity %d", n)
	}

	q, err := NewQueue(make([]int, 4))
	require.NoError(t, err)
	require.True(t, q.Enqueue(1))
	require.Error(t, q.Init(make([]int, 5)))
	assert.Equal(t, 1, q.Len(), "failed Init must keep contents")
	assert.Equal(t, 4, q.Cap())
}

func TestQueueConcreteScenario(t *testing.T) {
	q, err := NewQueue(make([]uint8, 16))
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		require.True(t, q.Enqueue(uint8(i)))
	}
	assert.Equal(t, 16, q.Len())
	assert.True(t, q.IsFull())

	assert.False(t, q.Enqueue(16))
	assert.Equal(t, 16, q.Len())

	v, ok := q.Dequeue()
	require.True(t, ok)
	assert.Equal(t, uint8(0), v)
	assert.Equal(t, 15, q.Len())
	assert.False(t, q.IsFull())
}

func TestQueueInitReleasesOldStorage(t *testing.T) {
	old := make([]*int, 4)
	q, err := NewQueue(old)
	require.NoError(t, err)

	x, y := 1, 2
	require.True(t, q.Enqueue(&x))
	require.True(t, q.Enqueue(&y))

	require.NoError(t, q.Init(make([]*int, 2)))
	assert.Equal(t, []*int{nil, nil, nil, nil}, old)
	assert.True(t, q.IsEmpty())
	assert.Equal(t, 2, q.Cap())
}

func TestQueuePeek(t *testing.T) {
	q, err := NewQueue(make([]string, 8))
	require.NoError(t, err)

	_, ok := q.Peek(0)
	assert.False(t, ok)

	for _, s := range []string{"a", "b", "c"} {
		require.True(t, q.Enqueue(s))
	}
	v, ok := q.Peek(2)
	require.True(t, ok)
	assert.Equal(t, "c", v)
	_, ok = q.Peek(3)
	assert.False(t, ok)
	assert.Equal(t, 3, q.Len())
}

func TestQueueDequeueClearsSlot(t *testing.T) {
	storage := make([]*int, 2)
	q, err := NewQueue(storage)
	require.NoError(t, err)

	x := 5
	require.True(t, q.Enqueue(&x))
	got, ok := q.Dequeue()
	require.True(t, ok)
	assert.Same(t, &x, got)
	assert.Nil(t, storage[0])

	require.True(t, q.Enqueue(&x))
	require.True(t, q.Drop())
	assert.Nil(t, storage[1])
}

func TestQueueBulk(t *testing.T) {
	q, err := NewQueue(make([]int, 4))
	require.NoError(t, err)

	assert.Equal(t, 3, q.EnqueueN([]int{1, 2, 3}))
	out := make([]int, 2)
	assert.Equal(t, 2, q.DequeueN(out))
	assert.Equal(t, []int{1, 2}, out)

	// Wraps: head at slot 3.
	assert.Equal(t, 3, q.EnqueueN([]int{4, 5, 6, 7, 8}))
	assert.True(t, q.IsFull())

	out = make([]int, 10)
	assert.Equal(t, 4, q.DequeueN(out))
	assert.Equal(t, []int{3, 4, 5, 6}, out[:4])
	assert.Zero(t, q.DequeueN(out))
}

func TestQueueReset(t *testing.T) {
	storage := make([]int, 4)
	q, err := NewQueue(storage)
	require.NoError(t, err)
	q.EnqueueN([]int{1, 2, 3})

	q.Reset()
	assert.True(t, q.IsEmpty())
	assert.Equal(t, []int{0, 0, 0, 0}, storage)
}

func TestQueueCounterWrapAround(t *testing.T) {
	q, err := NewQueue(make([]int, 8))
	require.NoError(t, err)
	q.c.head = math.MaxUint32 - 2
	q.c.tail = math.MaxUint32 - 2

	assert.Equal(t, 8, q.EnqueueN([]int{0, 1, 2, 3, 4, 5, 6, 7}))
	assert.True(t, q.IsFull())
	for i := 0; i < 8; i++ {
		v, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	assert.True(t, q.IsEmpty())
}

// TestQueueMatchesFIFOModel drives random operations against both the ring
// and an unbounded FIFO and checks they never diverge.
func TestQueueMatchesFIFOModel(t *testing.T) {
	const capacity = 16
	rng := rand.New(rand.NewSource(1))

	q, err := NewQueue(make([]int, capacity))
	require.NoError(t, err)
	model := queue.New()
	next := 0

	for step := 0; step < 20000; step++ {
		switch op := rng.Intn(6); op {
		case 0, 1:
			ok := q.Enqueue(next)
			if model.Length() < capacity {
				require.True(t, ok, "step %d", step)
				model.Add(next)
			} else {
				require.False(t, ok, "step %d: enqueue on full", step)
			}
			next++
		case 2:
			v, ok := q.Dequeue()
			if model.Length() == 0 {
				require.False(t, ok)
				break
			}
			require.True(t, ok)
			require.Equal(t, model.Remove().(int), v, "step %d", step)
		case 3:
			batch := make([]int, rng.Intn(capacity+1))
			for i := range batch {
				batch[i] = next
				next++
			}
			n := q.EnqueueN(batch)
			require.Equal(t, min(len(batch), capacity-model.Length()), n)
			for _, v := range batch[:n] {
				model.Add(v)
			}
		case 4:
			out := make([]int, rng.Intn(capacity+1))
			n := q.DequeueN(out)
			require.Equal(t, min(len(out), model.Length()), n)
			for _, v := range out[:n] {
				require.Equal(t, model.Remove().(int), v)
			}
		case 5:
			if model.Length() == 0 {
				_, ok := q.Peek(0)
				require.False(t, ok)
				break
			}
			i := rng.Intn(model.Length())
			v, ok := q.Peek(i)
			require.True(t, ok)
			require.Equal(t, model.Get(i).(int), v)
		}

		require.Equal(t, model.Length(), q.Len())
		require.Equal(t, q.Len() == 0, q.IsEmpty())
		require.Equal(t, q.Len() == capacity, q.IsFull())
		require.LessOrEqual(t, q.Len(), q.Cap())
	}
}

// TestRingMatchesFIFOModel is the byte-slot counterpart, exercising element
// copies rather than slot assignment.
func TestRingMatchesFIFOModel(t *testing.T) {
	const (
		capacity = 8
		size     = 3
	)
	rng := rand.New(rand.NewSource(2))

	r, err := New(Attr{Storage: make([]byte, capacity*size), ElemSize: size, NumElems: capacity})
	require.NoError(t, err)
	model := queue.New()
	var next byte

	elem := func() []byte {
		next++
		return []byte{next, next ^ 0xFF, next + 1}
	}

	for step := 0; step < 10000; step++ {
		switch rng.Intn(3) {
		case 0:
			e := elem()
			if r.Enqueue(e) {
				model.Add(e)
			} else {
				require.Equal(t, capacity, model.Length())
			}
		case 1:
			out := make([]byte, size)
			if r.Dequeue(out) {
				require.Equal(t, model.Remove().([]byte), out)
			} else {
				require.Zero(t, model.Length())
			}
		case 2:
			for i := 0; i < model.Length(); i++ {
				out := make([]byte, size)
				require.True(t, r.Peek(out, i))
				require.Equal(t, model.Get(i).([]byte), out)
			}
		}
		require.Equal(t, model.Length(), r.Len())
	}
}

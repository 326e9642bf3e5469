package containers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueFIFO(t *testing.T) {
	rq := NewRingQueue[int](4)
	for i := 1; i <= 3; i++ {
		require.NoError(t, rq.Enqueue(i))
	}
	assert.Equal(t, 3, rq.Len())

	for i := 1; i <= 3; i++ {
		value, err := rq.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, value)
	}
	assert.True(t, rq.IsEmpty())
}

func TestRingQueueFull(t *testing.T) {
	rq := NewRingQueue[string](2)
	require.NoError(t, rq.Enqueue("a"))
	require.NoError(t, rq.Enqueue("b"))
	assert.True(t, rq.IsFull())
	assert.ErrorIs(t, rq.Enqueue("c"), ErrQueueFull)
}

func TestRingQueueEmpty(t *testing.T) {
	rq := NewRingQueue[int](2)
	_, err := rq.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueueWrapsAround(t *testing.T) {
	rq := NewRingQueue[int](2)
	require.NoError(t, rq.Enqueue(1))
	require.NoError(t, rq.Enqueue(2))

	value, err := rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, value)

	require.NoError(t, rq.Enqueue(3))

	value, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 2, value)

	value, err = rq.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 3, value)
}

package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeleteQueueFlushReversesOrder(t *testing.T) {
	var order []int
	dq := NewDeleteQueue()
	for i := 0; i < 3; i++ {
		i := i
		dq.Push(func() { order = append(order, i) })
	}

	dq.Flush()
	assert.Equal(t, []int{2, 1, 0}, order)
	assert.Zero(t, dq.Len())
}

func TestDeleteQueueFlushIsIdempotent(t *testing.T) {
	calls := 0
	dq := NewDeleteQueue()
	dq.Push(func() { calls++ })

	dq.Flush()
	dq.Flush()
	assert.Equal(t, 1, calls)
}

func TestDeleteQueueDiscard(t *testing.T) {
	calls := 0
	dq := NewDeleteQueue()
	dq.Push(func() { calls++ })

	dq.Discard()
	dq.Flush()
	assert.Zero(t, calls)
}

package vulkan

// DeleteQueue accumulates destruction work during multi-step construction
// and unwinds it in reverse push order. A constructor pushes each resource
// as it is created; on failure it flushes the queue so nothing leaks, on
// success it either discards the queue or hands it to the owner for
// shutdown.
type DeleteQueue struct {
	entries []func()
}

func NewDeleteQueue() *DeleteQueue {
	return &DeleteQueue{}
}

func (dq *DeleteQueue) Push(destroy func()) {
	dq.entries = append(dq.entries, destroy)
}

// Flush destroys everything pushed so far, last first, and empties the
// queue. Safe to call on an empty or already-flushed queue.
func (dq *DeleteQueue) Flush() {
	for i := len(dq.entries) - 1; i >= 0; i-- {
		dq.entries[i]()
	}
	dq.entries = dq.entries[:0]
}

// Discard empties the queue without destroying anything. Used when
// construction succeeds and ownership of the resources moves to the
// constructed object.
func (dq *DeleteQueue) Discard() {
	dq.entries = dq.entries[:0]
}

func (dq *DeleteQueue) Len() int {
	return len(dq.entries)
}

package scheduler

import (
	"container/list"
	"sync"
	"sync/atomic"
)

// OverflowStrategy governs what Submit does when a client's queue is at
// MaxQueueDepth.
type OverflowStrategy int

const (
	// Reject fails the submission with ErrQueueFull and counts an overflow.
	Reject OverflowStrategy = iota
	// Block makes the submitter wait until room is available.
	Block
	// DropOldest evicts the front of the queue to make room for the new job.
	DropOldest
	// DropNewest silently discards the incoming job.
	DropNewest
)

// ClientState (CCB — client control block) holds one client's queue, its
// backpressure configuration, and its metric counters. It is always
// referenced by pointer: workers and policies hold on to a *ClientState
// across lock acquisitions, so it must never be copied or reallocated.
type ClientState struct {
	ClientID string
	Weight   int // immutable after registration, always >= 1

	mu       sync.Mutex
	submitCV *sync.Cond
	queue    *list.List // FIFO of Job, front = oldest

	MaxQueueDepth    int // 0 = unlimited
	OverflowStrategy OverflowStrategy

	submittedCount       atomic.Uint64
	executedCount        atomic.Uint64
	totalExecutionTimeUs atomic.Int64
	overflowCount        atomic.Uint64
}

func newClientState(id string, weight, maxQueueDepth int, strategy OverflowStrategy) *ClientState {
	cs := &ClientState{
		ClientID:         id,
		Weight:           weight,
		queue:            list.New(),
		MaxQueueDepth:    maxQueueDepth,
		OverflowStrategy: strategy,
	}
	cs.submitCV = sync.NewCond(&cs.mu)
	return cs
}

// queueDepth returns the current queue length. Caller must hold cs.mu.
func (cs *ClientState) queueDepth() int {
	return cs.queue.Len()
}

// popFront removes and returns the front job. Caller must hold cs.mu and
// have verified the queue is non-empty.
func (cs *ClientState) popFront() Job {
	front := cs.queue.Front()
	cs.queue.Remove(front)
	return front.Value.(Job)
}

// notifyWaiters wakes any submitter blocked on Block backpressure. Caller
// must hold cs.mu (or call it just after releasing, per sync.Cond rules —
// here we always call it while still holding the lock, which is safe).
func (cs *ClientState) notifyWaiters() {
	cs.submitCV.Signal()
}

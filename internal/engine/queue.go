package engine

import (
	"log/slog"
	"sync"
)

// backlogWarn is the queue depth at which a stalled dispatcher is reported.
// A healthy loop drains a whole heat in microseconds, so a backlog this deep
// means the machine or the result log is blocking.
const backlogWarn = 64

// edgeQueue is an unbounded FIFO of gateway events.
//
// push never blocks: a GPIO callback that waits on the dispatcher can miss
// the next edge. ready delivers at most one pending wake-up, and is closed
// by close so Run can select on it together with ctx.Done.
type edgeQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	warned bool // backlog reported since the queue last drained
	wake   chan struct{}
}

func newEdgeQueue() *edgeQueue {
	return &edgeQueue{
		events: make([]Event, 0, 16),
		wake:   make(chan struct{}, 1),
	}
}

// push appends ev. Returns false once the queue is closed.
func (q *edgeQueue) push(ev Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, ev)

	if len(q.events) >= backlogWarn && !q.warned {
		q.warned = true
		slog.Warn("event backlog growing", "queued", len(q.events), "oldest", q.events[0].String())
	}

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// pop removes the oldest event, if any.
func (q *edgeQueue) pop() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}
	ev := q.events[0]
	q.events[0] = Event{}
	q.events = q.events[1:]
	if len(q.events) == 0 {
		q.events = q.events[:0]
		q.warned = false
	}
	return ev, true
}

func (q *edgeQueue) ready() <-chan struct{} {
	return q.wake
}

func (q *edgeQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// drained reports whether the queue is closed and empty.
func (q *edgeQueue) drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// close rejects further pushes and wakes Run. Safe to call more than once.
func (q *edgeQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.wake)
	}
}

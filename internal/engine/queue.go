package engine

import (
	"sync"

	"github.com/roach88/ixengine/internal/dom"
	"github.com/roach88/ixengine/internal/ir"
	"github.com/roach88/ixengine/internal/state"
)

// ItemType distinguishes queued work.
type ItemType int

const (
	// ItemNative is a native signal for one trigger kind.
	ItemNative ItemType = iota + 1
	// ItemResize is a viewport resize.
	ItemResize
	// ItemRequest is a preview / playback / stop / clear request.
	ItemRequest
)

// Item is one unit of queued work.
type Item struct {
	Type ItemType

	// Kind and Native are set for ItemNative.
	Kind   ir.EventType
	Native dom.NativeEvent

	// Request is set for ItemRequest.
	Request state.Action

	// CoalesceKey, when set, makes a newer item replace a pending one with
	// the same key in place. Throttled kinds use it to collapse a burst of
	// scroll or mousemove signals into one evaluation per frame.
	CoalesceKey string
}

// eventQueue is a thread-safe FIFO of engine work.
//
// Listeners and request methods enqueue from whatever goroutine the host
// delivers on; the frame loop drains. The queue uses a channel for
// signaling so Run can wait on it alongside the frame ticker and context.
type eventQueue struct {
	mu     sync.Mutex
	items  []Item
	closed bool
	signal chan struct{} // Signals item availability (buffered, size 1)
}

// newEventQueue creates an empty queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		items:  make([]Item, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an item to the back of the queue, or replaces a pending
// item with the same CoalesceKey.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(it Item) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	replaced := false
	if it.CoalesceKey != "" {
		for i := range q.items {
			if q.items[i].CoalesceKey == it.CoalesceKey {
				q.items[i] = it
				replaced = true
				break
			}
		}
	}
	if !replaced {
		q.items = append(q.items, it)
	}

	// Non-blocking: the buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front item without blocking.
// Returns (Item{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}

	it := q.items[0]

	// Clear the slot so the backing array does not pin event targets.
	q.items[0] = Item{}

	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	return it, true
}

// Wait returns a channel that signals when items may be available.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more items will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

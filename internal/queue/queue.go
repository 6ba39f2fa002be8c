// Package queue hands out work items to concurrent workers exactly once.
package queue

import (
	"sync"
	"sync/atomic"
)

// Item is one unit of work: a credential and its stable position in the
// deduplicated input.
type Item struct {
	Index   int
	Payload string
}

// Queue owns the item storage until dispatch. Claims go through an atomic
// cursor, so no two callers can receive the same index.
type Queue struct {
	items  []Item
	cursor atomic.Int64

	mu        sync.Mutex
	completed map[int]struct{}
}

func New(payloads []string) *Queue {
	items := make([]Item, len(payloads))
	for i, p := range payloads {
		items[i] = Item{Index: i, Payload: p}
	}
	return &Queue{
		items:     items,
		completed: make(map[int]struct{}, len(items)),
	}
}

// ClaimNext returns the next unclaimed item. The second return is false once
// the queue is drained; it never blocks.
func (q *Queue) ClaimNext() (Item, bool) {
	n := q.cursor.Add(1) - 1
	if n >= int64(len(q.items)) {
		return Item{}, false
	}
	return q.items[n], true
}

// MarkCompleted records that the item at index finished, regardless of
// outcome. Idempotent.
func (q *Queue) MarkCompleted(index int) {
	q.mu.Lock()
	q.completed[index] = struct{}{}
	q.mu.Unlock()
}

func (q *Queue) Total() int { return len(q.items) }

func (q *Queue) CompletedCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.completed)
}

// Remaining reports how many items have not been claimed yet. Point-in-time
// read for progress display.
func (q *Queue) Remaining() int {
	claimed := q.cursor.Load()
	if claimed > int64(len(q.items)) {
		claimed = int64(len(q.items))
	}
	return len(q.items) - int(claimed)
}

// ValidateCompletion reports whether every dispatched item was marked done.
// A false return indicates a bug (duplicate claim or a lost completion) and
// is surfaced by the caller as a warning, never a crash.
func (q *Queue) ValidateCompletion() bool {
	return q.CompletedCount() == len(q.items)
}

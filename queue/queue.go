// Package queue provides the in-memory FIFO that decouples job submission
// from the single sequential worker.
package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Item is a queued job handle: the job id plus the storage reference of its
// staged input.
type Item struct {
	JobID    uuid.UUID
	InputRef string
}

// TaskQueue is an unbounded FIFO with a blocking Dequeue. Backpressure is
// deliberately not enforced here; submission is rate-limited upstream.
//
// Every dequeued item must be acknowledged with exactly one TaskDone call,
// whether processing succeeded or failed.
type TaskQueue struct {
	mu         sync.Mutex
	items      []Item
	unfinished int
	notify     chan struct{}
}

func New() *TaskQueue {
	return &TaskQueue{
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends a job handle to the tail. Never blocks.
func (q *TaskQueue) Enqueue(jobID uuid.UUID, inputRef string) {
	q.mu.Lock()
	q.items = append(q.items, Item{JobID: jobID, InputRef: inputRef})
	q.unfinished++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue blocks until an entry is available or the context is canceled,
// then removes and returns the head. No entry is ever returned twice.
func (q *TaskQueue) Dequeue(ctx context.Context) (Item, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			remaining := len(q.items) > 0
			q.mu.Unlock()
			// Pass the wakeup along so other waiters see the leftover entries.
			if remaining {
				select {
				case q.notify <- struct{}{}:
				default:
				}
			}
			return item, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Item{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// TaskDone acknowledges one previously dequeued item. Calling it more times
// than items were dequeued is a programming error.
func (q *TaskQueue) TaskDone() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.unfinished <= 0 {
		panic("queue: TaskDone called more times than items dequeued")
	}
	q.unfinished--
}

// Len reports the number of entries waiting to be dequeued.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Unfinished reports entries enqueued but not yet acknowledged via TaskDone,
// including the item currently being processed.
func (q *TaskQueue) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}

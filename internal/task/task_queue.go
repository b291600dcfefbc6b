package task

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// QueueReader is the consumer side of the queue used by workers
type QueueReader interface {
	// Dequeue blocks until a task id is available, the context is done or the queue is closed
	Dequeue(ctx context.Context) (uuid.UUID, error)
}

// Queue is an unbounded FIFO of task ids shared by every task source.
// Producers never block; consumers block in Dequeue until an id arrives.
type Queue struct {
	mu     sync.Mutex
	items  []uuid.UUID
	ready  chan struct{}
	closed bool
	logger *slog.Logger
}

// NewQueue creates an empty queue
func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{
		items:  make([]uuid.UUID, 0, 64),
		ready:  make(chan struct{}, 1),
		logger: logger.With("component", "task_queue"),
	}
}

// Enqueue appends a task id to the tail of the queue.
// Returns ErrQueueClosed once the queue has been closed.
func (q *Queue) Enqueue(id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, id)
	q.signal()

	q.logger.Debug("task enqueued", "task_id", id, "queue_len", len(q.items))
	return nil
}

// Dequeue removes and returns the id at the head of the queue.
// Ids enqueued before Close are still handed out; once the queue is closed
// and drained ErrQueueClosed is returned.
func (q *Queue) Dequeue(ctx context.Context) (uuid.UUID, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			id := q.items[0]
			q.items[0] = uuid.Nil
			q.items = q.items[1:]
			if len(q.items) > 0 {
				// wake the next waiting consumer
				q.signal()
			}
			q.mu.Unlock()
			return id, nil
		}
		if q.closed {
			q.mu.Unlock()
			return uuid.Nil, ErrQueueClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return uuid.Nil, ctx.Err()
		case <-q.ready:
		}
	}
}

// Len returns the number of ids waiting in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close prevents further Enqueue calls and wakes every blocked consumer
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ready)
		q.logger.Info("task queue closed", "remaining", len(q.items))
	}
}

// signal must be called with q.mu held
func (q *Queue) signal() {
	if q.closed {
		return
	}
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

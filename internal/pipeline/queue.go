package pipeline

import (
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Push after the queue has been aborted. In a
// healthy transfer it never surfaces to the caller of Transfer; seeing it
// there means a task kept pushing past its peer's failure.
var ErrQueueClosed = errors.New("pipeline: row queue closed")

// DefaultQueueCapacity bounds the rows in flight between reader and writer.
const DefaultQueueCapacity = 4096

// RowQueue is a fixed-capacity FIFO carrying raw rows from one producer to
// one consumer. Rows arrive at the consumer in push order; at most the
// configured capacity is in flight at any instant.
type RowQueue struct {
	ch   chan []string
	done chan struct{}

	closeOnce sync.Once
	failOnce  sync.Once
}

// NewRowQueue returns a queue holding at most capacity rows. Non-positive
// capacity means DefaultQueueCapacity.
func NewRowQueue(capacity int) *RowQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &RowQueue{
		ch:   make(chan []string, capacity),
		done: make(chan struct{}),
	}
}

// Push enqueues one row, blocking while the queue is full. There is no
// timeout: back-pressure on the producer is intentional. Push returns
// ErrQueueClosed once Fail has been called, so a producer can never hang on
// a dead consumer.
func (q *RowQueue) Push(row []string) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- row:
		return nil
	case <-q.done:
		return ErrQueueClosed
	}
}

// Pop dequeues the next row, blocking while the queue is empty and open.
// ok is false once the producer has closed the queue and every buffered row
// has been drained, and stays false on every later call.
func (q *RowQueue) Pop() (row []string, ok bool) {
	select {
	case row, ok = <-q.ch:
		return row, ok
	case <-q.done:
		return nil, false
	}
}

// Close signals end-of-stream. The producer must call it exactly once after
// its last Push, on failure as well as on success; repeated calls are
// harmless.
func (q *RowQueue) Close() {
	q.closeOnce.Do(func() { close(q.ch) })
}

// Fail aborts the queue after a consumer-side failure, releasing a producer
// blocked in Push. Calling it after a clean drain is a no-op in effect.
func (q *RowQueue) Fail() {
	q.failOnce.Do(func() { close(q.done) })
}

// Len reports the rows currently buffered. Diagnostic only.
func (q *RowQueue) Len() int { return len(q.ch) }

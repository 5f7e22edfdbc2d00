package stage

import "sync"

// Queue buffers intents produced off the frame goroutine (HTTP, MQTT) until
// the next tick boundary drains them.
type Queue struct {
	mu    sync.Mutex
	items []Intent
}

// NewQueue creates an empty intent queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends an intent. Safe for concurrent producers.
func (q *Queue) Push(in Intent) {
	q.mu.Lock()
	q.items = append(q.items, in)
	q.mu.Unlock()
}

// Drain returns all pending intents in FIFO order and empties the queue.
func (q *Queue) Drain() []Intent {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of pending intents.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

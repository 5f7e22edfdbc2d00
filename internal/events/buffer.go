package events

import "sync"

// RingBuffer keeps the most recent events in emission order.
type RingBuffer struct {
	mu     sync.RWMutex
	events []Event
	next   int // slot the next event is written to
	count  int
	total  uint64
}

func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{events: make([]Event, size)}
}

func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.events[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.events)
	if rb.count < len(rb.events) {
		rb.count++
	}
	rb.total++
}

// Snapshot returns every buffered event, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.lastLocked(rb.count)
}

// Last returns up to n of the newest events, oldest first.
func (rb *RingBuffer) Last(n int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if n > rb.count {
		n = rb.count
	}
	return rb.lastLocked(n)
}

func (rb *RingBuffer) lastLocked(n int) []Event {
	out := make([]Event, 0, n)
	size := len(rb.events)
	start := (rb.next - n + size) % size
	for i := 0; i < n; i++ {
		out = append(out, rb.events[(start+i)%size])
	}
	return out
}

// Total returns the number of events added since creation, including overwritten ones.
func (rb *RingBuffer) Total() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

// Clear drops all buffered events. The total counter is kept.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.events = make([]Event, len(rb.events))
	rb.next = 0
	rb.count = 0
}

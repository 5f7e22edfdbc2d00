package events

import (
	"sync"
	"sync/atomic"
)

// Subscriber represents a channel that receives events.
type Subscriber chan Event

// Broadcaster fans emitted events out to live subscribers (websocket clients, MQTT bridge).
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[Subscriber]struct{}
	dropped     atomic.Uint64
}

var broadcaster = &Broadcaster{
	subscribers: make(map[Subscriber]struct{}),
}

// subscriberBuffer is how far a subscriber may fall behind before events
// are dropped for it. A 60 fps run emits one sprite.updated per moving
// sprite per frame.
const subscriberBuffer = 256

// Subscribe adds a new subscriber and returns its channel.
func Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	broadcaster.mu.Lock()
	broadcaster.subscribers[ch] = struct{}{}
	broadcaster.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func Unsubscribe(sub Subscriber) {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()

	// Already closed by CloseAllSubscribers.
	if _, ok := broadcaster.subscribers[sub]; !ok {
		return
	}
	delete(broadcaster.subscribers, sub)
	close(sub)
}

// broadcast sends an event to all subscribers.
// Non-blocking: if a subscriber's buffer is full, the event is dropped for that subscriber.
func broadcast(e Event) {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()

	for sub := range broadcaster.subscribers {
		select {
		case sub <- e:
		default:
			broadcaster.dropped.Add(1)
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	broadcaster.mu.RLock()
	defer broadcaster.mu.RUnlock()
	return len(broadcaster.subscribers)
}

// DroppedCount returns how many deliveries were skipped because a
// subscriber's buffer was full.
func DroppedCount() uint64 {
	return broadcaster.dropped.Load()
}

// CloseAllSubscribers removes and closes every subscriber. Used on shutdown.
func CloseAllSubscribers() {
	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()

	for sub := range broadcaster.subscribers {
		close(sub)
	}
	broadcaster.subscribers = make(map[Subscriber]struct{})
}

// RecentEvents returns the last n events from the ring buffer.
// If n is greater than available events, returns all available.
func RecentEvents(n int) []Event {
	if n <= 0 {
		return buffer.Snapshot()
	}
	return buffer.Last(n)
}

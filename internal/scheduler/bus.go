package scheduler

import (
	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Collision is a new overlap between two sprites.
type Collision struct {
	Pair
	Tick uint64
}

// CollisionHandler reacts to collisions. Handlers run synchronously on the
// frame goroutine, in registration order.
type CollisionHandler interface {
	HandleCollision(store *stage.Store, c Collision)
}

// CollisionHandlerFunc adapts a function to CollisionHandler.
type CollisionHandlerFunc func(store *stage.Store, c Collision)

func (f CollisionHandlerFunc) HandleCollision(store *stage.Store, c Collision) {
	f(store, c)
}

// CollisionBus sits between the monitor and the program tree: the monitor
// publishes, handlers decide what a collision does.
//
// Usage:
//  1. Create bus: NewCollisionBus()
//  2. Register handlers: bus.Register(h)
//  3. Each tick: Publish new overlaps, then DispatchAll once
type CollisionBus struct {
	handlers []CollisionHandler
	pending  []Collision
}

// NewCollisionBus creates a bus with no handlers.
func NewCollisionBus() *CollisionBus {
	return &CollisionBus{}
}

// Register adds a handler.
func (b *CollisionBus) Register(h CollisionHandler) {
	b.handlers = append(b.handlers, h)
}

// HandlerCount returns the number of registered handlers.
func (b *CollisionBus) HandlerCount() int {
	return len(b.handlers)
}

// Publish queues a collision for the next DispatchAll.
func (b *CollisionBus) Publish(c Collision) {
	b.pending = append(b.pending, c)
}

// DispatchAll consumes pending collisions in FIFO order. Every handler sees a
// collision before the next one is dispatched. Returns the number consumed.
func (b *CollisionBus) DispatchAll(store *stage.Store) int {
	pending := b.pending
	b.pending = nil
	for _, c := range pending {
		events.Emit("info", "collision.detected", "", map[string]interface{}{
			"sprite_a": c.A,
			"sprite_b": c.B,
			"tick":     c.Tick,
		})
		for _, h := range b.handlers {
			h.HandleCollision(store, c)
		}
	}
	return len(pending)
}

// ReverseMotion negates the first move block of both sprites.
type ReverseMotion struct{}

func (ReverseMotion) HandleCollision(store *stage.Store, c Collision) {
	// Rejections are already reported as stage.rejected.
	_ = store.Dispatch(stage.HandleCollision{SpriteA: c.A, SpriteB: c.B})
}

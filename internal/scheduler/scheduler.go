package scheduler

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/interpreter"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Scheduler steps every eligible sprite once per frame while the stage runs.
//
// Tick, Frame and Run belong to a single frame goroutine, which must also be
// the only goroutine dispatching to the store once the scheduler is attached.
// Other producers push intents onto a stage.Queue that Run drains at each
// frame boundary.
type Scheduler struct {
	store   *stage.Store
	states  map[string]interpreter.State
	pending bool

	monitor *Monitor
	bus     *CollisionBus

	ticks       atomic.Uint64
	collisions  atomic.Uint64
	completions atomic.Uint64
}

// Options configures a scheduler.
type Options struct {
	// Collisions enables the collision monitor.
	Collisions bool
}

// TickReport summarises one tick.
type TickReport struct {
	Stepped    int
	Updates    int
	Collisions int
	Completed  []string
}

// Stats are cumulative counters, safe to read from any goroutine.
type Stats struct {
	Ticks       uint64 `json:"ticks"`
	Collisions  uint64 `json:"collisions"`
	Completions uint64 `json:"completions"`
}

// New attaches a scheduler to store. With collisions enabled the bus starts
// with the ReverseMotion handler registered.
func New(store *stage.Store, opts Options) *Scheduler {
	s := &Scheduler{
		store:  store,
		states: interpreter.Rewind(store.Snapshot()),
		bus:    NewCollisionBus(),
	}
	if opts.Collisions {
		s.monitor = NewMonitor()
		s.bus.Register(ReverseMotion{})
	}
	s.pending = store.Running()

	store.Observe(s.onChange)
	return s
}

// Bus returns the collision bus for registering extra handlers.
func (s *Scheduler) Bus() *CollisionBus {
	return s.bus
}

// State returns the execution state of one sprite.
func (s *Scheduler) State(spriteID string) (interpreter.State, bool) {
	st, ok := s.states[spriteID]
	return st, ok
}

// Pending reports whether a tick is scheduled for the next frame.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Stats returns cumulative counters.
func (s *Scheduler) Stats() Stats {
	return Stats{
		Ticks:       s.ticks.Load(),
		Collisions:  s.collisions.Load(),
		Completions: s.completions.Load(),
	}
}

func (s *Scheduler) onChange(c stage.Change) {
	if c.Roster {
		sprites := c.Sprites
		if sprites == nil {
			sprites = s.store.Snapshot()
		}
		s.states = interpreter.Reconcile(s.states, sprites)
	}

	if c.RunStarted {
		s.states = interpreter.Rewind(s.store.Snapshot())
		s.pending = true
	}

	if c.RunStopped {
		s.pending = false
		if s.monitor != nil {
			s.monitor.Reset()
		}
	}
}

// Frame runs the scheduled tick, if any. Returns false when nothing was pending.
func (s *Scheduler) Frame() bool {
	if !s.pending {
		return false
	}
	s.pending = false
	s.Tick()
	return true
}

// Tick performs one pass over all sprites in roster order. It reschedules
// itself while the run flag stays set and stops the run as soon as any
// sprite finishes its script.
func (s *Scheduler) Tick() TickReport {
	var report TickReport
	if !s.store.Running() {
		return report
	}

	tick := s.ticks.Add(1)

	for _, sp := range s.store.Snapshot() {
		st, ok := s.states[sp.ID]
		if !ok {
			st = interpreter.Initial(sp)
		}
		if !st.Eligible || len(sp.Script) <= 1 {
			continue
		}
		// Finished in an earlier tick; only a new run rewinds it.
		if st.Pointer >= len(sp.Script) {
			continue
		}

		res := interpreter.Execute(sp, sp.Script[st.Pointer], st.Loops)
		st.Loops = res.Loops
		if res.Advance {
			st.Pointer++
			if st.Pointer >= len(sp.Script) {
				st = interpreter.Initial(sp)
				report.Completed = append(report.Completed, sp.ID)
			}
		}
		s.states[sp.ID] = st
		report.Stepped++

		if !res.Delta.Empty() {
			if err := s.store.Dispatch(stage.UpdateSprite{SpriteID: sp.ID, Updates: res.Delta}); err == nil {
				report.Updates++
			}
		}
	}

	if s.monitor != nil {
		for _, p := range s.monitor.Observe(s.store.Snapshot()) {
			s.bus.Publish(Collision{Pair: p, Tick: tick})
		}
		report.Collisions = s.bus.DispatchAll(s.store)
		s.collisions.Add(uint64(report.Collisions))
	}

	if len(report.Completed) > 0 {
		s.completions.Add(uint64(len(report.Completed)))
		events.Emit("info", "run.completed", "", map[string]interface{}{
			"sprites": report.Completed,
			"tick":    tick,
		})
		_ = s.store.Dispatch(stage.StopRun{})
		return report
	}

	if s.store.Running() {
		s.pending = true
	}
	return report
}

// Run drives frames at the given interval until ctx is cancelled, draining
// queued intents before each frame.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, queue *stage.Queue) {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("frame loop started (interval %s)", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("frame loop stopped after %d ticks", s.ticks.Load())
			return
		case <-ticker.C:
			if queue != nil {
				s.store.DispatchQueued(queue)
			}
			s.Frame()
		}
	}
}

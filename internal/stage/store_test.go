package stage

import (
	"errors"
	"math/rand"
	"testing"
	"testing/quick"
	"time"

	"github.com/AaronLay10/SentientBlocks/internal/config"
	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/program"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	events.Clear()
	return NewStore(config.DefaultSprites)
}

func mustDispatch(t *testing.T, s *Store, in Intent) {
	t.Helper()
	if err := s.Dispatch(in); err != nil {
		t.Fatalf("dispatch %s: %v", in.Type(), err)
	}
}

func lastEvent(t *testing.T) events.Event {
	t.Helper()
	all := events.Snapshot()
	if len(all) == 0 {
		t.Fatal("expected at least one event")
	}
	return all[len(all)-1]
}

func TestAddSpriteAssignsIDAndSelects(t *testing.T) {
	s := newTestStore(t)

	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})

	sprites := s.Snapshot()
	if len(sprites) != 2 {
		t.Fatalf("expected 2 sprites, got %d", len(sprites))
	}
	if sprites[0].ID != "cat-1" || sprites[1].ID != "cat-2" {
		t.Errorf("unexpected ids %s, %s", sprites[0].ID, sprites[1].ID)
	}
	if s.Selected() != "cat-2" {
		t.Errorf("expected newest sprite selected, got %s", s.Selected())
	}

	sp := sprites[0]
	if sp.Direction != DefaultDirection || sp.Scale != DefaultScale {
		t.Errorf("expected default heading and scale, got %v/%v", sp.Direction, sp.Scale)
	}
	if sp.Width != 50 || sp.Height != 50 {
		t.Errorf("expected catalog size 50x50, got %vx%v", sp.Width, sp.Height)
	}
	if sp.Script == nil || len(sp.Script) != 0 {
		t.Errorf("expected empty script, got %v", sp.Script)
	}

	// Freed ids are reused.
	mustDispatch(t, s, RemoveSprite{SpriteID: "cat-1"})
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})
	if _, ok := s.Sprite("cat-1"); !ok {
		t.Error("expected cat-1 to be reused")
	}
}

func TestRejectedIntentLeavesStateUntouched(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})
	before := s.Snapshot()

	tests := []struct {
		name string
		in   Intent
		want error
	}{
		{"add without kind", AddSprite{}, ErrMissingKind},
		{"add unknown kind", AddSprite{SpriteKind: "horse"}, ErrUnknownKind},
		{"remove unknown", RemoveSprite{SpriteID: "dog-9"}, ErrUnknownSprite},
		{"remove without id", RemoveSprite{}, ErrMissingSpriteID},
		{"block without id", AddBlock{SpriteID: "cat-1", Block: program.Block{Type: program.LooksSay}}, ErrMissingBlock},
		{"block to unknown sprite", AddBlock{SpriteID: "x", Block: program.NewBlock(program.LooksSay)}, ErrUnknownSprite},
		{"container missing id", AddBlockToContainer{SpriteID: "cat-1", Block: program.NewBlock(program.LooksSay)}, ErrMissingContainerID},
		{"container not found", AddBlockToContainer{SpriteID: "cat-1", ContainerID: "nope", Block: program.NewBlock(program.LooksSay)}, ErrContainerNotFound},
		{"remove block without id", RemoveBlock{SpriteID: "cat-1"}, ErrMissingBlockID},
		{"update unknown", UpdateSprite{SpriteID: "x", Updates: Updates{X: Float(1)}}, ErrUnknownSprite},
		{"collision missing sprite", HandleCollision{SpriteA: "cat-1"}, ErrMissingSpriteID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Dispatch(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if e := lastEvent(t); e.Name != "stage.rejected" {
				t.Errorf("expected stage.rejected, got %s", e.Name)
			}
		})
	}

	after := s.Snapshot()
	if len(after) != len(before) || len(after[0].Script) != 0 {
		t.Errorf("state changed by rejected intents: %+v", after)
	}
}

func TestDuplicateBlockIDRejected(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})

	rep := program.NewBlock(program.ControlRepeat)
	mustDispatch(t, s, AddBlock{SpriteID: "cat-1", Block: rep})

	err := s.Dispatch(AddBlockToContainer{SpriteID: "cat-1", ContainerID: rep.ID, Block: rep})
	if !errors.Is(err, ErrDuplicateBlockID) {
		t.Errorf("expected duplicate id rejection, got %v", err)
	}
}

func TestRemoveSelectedSpriteReselects(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})
	mustDispatch(t, s, AddSprite{SpriteKind: "dog"})
	mustDispatch(t, s, AddSprite{SpriteKind: "cat2"})

	mustDispatch(t, s, SelectSprite{SpriteID: "dog-1"})
	mustDispatch(t, s, RemoveSprite{SpriteID: "dog-1"})
	if s.Selected() != "cat-1" {
		t.Errorf("expected first sprite selected, got %s", s.Selected())
	}

	mustDispatch(t, s, RemoveSprite{SpriteID: "cat2-1"})
	if s.Selected() != "cat-1" {
		t.Errorf("removing an unselected sprite should keep selection, got %s", s.Selected())
	}

	mustDispatch(t, s, RemoveSprite{SpriteID: "cat-1"})
	if s.Selected() != "" {
		t.Errorf("expected nothing selected, got %s", s.Selected())
	}
}

func TestRemoveMissingBlockIsNoOp(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})

	var changes int
	s.Observe(func(Change) { changes++ })

	if err := s.Dispatch(RemoveBlock{SpriteID: "cat-1", BlockID: "missing"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if changes != 0 {
		t.Errorf("expected no change notification, got %d", changes)
	}
}

func TestNestedBlockEdits(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})

	outer := program.NewBlock(program.ControlRepeat)
	inner := program.NewBlock(program.ControlRepeat)
	mv := program.NewBlock(program.MotionMoveSteps)

	mustDispatch(t, s, AddBlock{SpriteID: "cat-1", Block: outer})
	mustDispatch(t, s, AddBlockToContainer{SpriteID: "cat-1", ContainerID: outer.ID, Block: inner})
	mustDispatch(t, s, AddBlockToContainer{SpriteID: "cat-1", ContainerID: inner.ID, Block: mv})

	sp, _ := s.Sprite("cat-1")
	if found, ok := program.Find(sp.Script, mv.ID); !ok || found.Number(0) != 10 {
		t.Fatalf("expected nested move block, got %+v", sp.Script)
	}

	mustDispatch(t, s, RemoveBlock{SpriteID: "cat-1", BlockID: inner.ID})
	sp, _ = s.Sprite("cat-1")
	if ids := program.IDs(sp.Script); len(ids) != 1 || ids[0] != outer.ID {
		t.Errorf("expected only the outer repeat to remain, got %v", ids)
	}
}

// storeReader is an appender that reads the store while persisting, the way
// a slow database write would overlap with the frame goroutine.
type storeReader struct {
	store *Store
	seen  []string
}

func (r *storeReader) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	r.store.Running()
	r.seen = append(r.seen, level+" "+event)
	return nil
}

func TestRepairedContainerEventsAfterUnlock(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})

	// A repeat sent without a child list, as an older client might.
	bare := program.Block{ID: "r1", Type: program.ControlRepeat, Values: []interface{}{2.0}}
	mustDispatch(t, s, AddBlock{SpriteID: "cat-1", Block: bare})

	rec := &storeReader{store: s}
	events.SetAppender(rec)
	defer events.SetAppender(nil)

	mv := program.NewBlock(program.MotionMoveSteps)
	mustDispatch(t, s, AddBlockToContainer{SpriteID: "cat-1", ContainerID: "r1", Block: mv})

	want := []string{"warning block.repaired", "info block.added"}
	if len(rec.seen) != len(want) {
		t.Fatalf("persisted %v, want %v", rec.seen, want)
	}
	for i := range want {
		if rec.seen[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, rec.seen[i], want[i])
		}
	}

	sp, _ := s.Sprite("cat-1")
	r, _ := program.Find(sp.Script, "r1")
	if len(r.Children) != 1 || r.Children[0].ID != mv.ID {
		t.Errorf("expected the move inside the repaired repeat, got %+v", r.Children)
	}
}

func TestUpdateSprite(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})

	var got Change
	s.Observe(func(c Change) { got = c })

	mustDispatch(t, s, UpdateSprite{SpriteID: "cat-1", Updates: Updates{X: Float(12), Message: String("hi")}})

	sp, _ := s.Sprite("cat-1")
	if sp.X != 12 || sp.Y != 0 {
		t.Errorf("expected (12,0), got (%v,%v)", sp.X, sp.Y)
	}
	if sp.Message == nil || *sp.Message != "hi" {
		t.Errorf("expected message hi, got %v", sp.Message)
	}
	if !got.State || got.Roster {
		t.Errorf("expected a state-only change, got %+v", got)
	}
	if e := lastEvent(t); e.Name != "sprite.updated" {
		t.Errorf("expected sprite.updated, got %s", e.Name)
	}
}

func TestHandleCollisionNegatesFirstMove(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, AddSprite{SpriteKind: "cat"})
	mustDispatch(t, s, AddSprite{SpriteKind: "dog"})

	mv := program.NewBlock(program.MotionMoveSteps)
	mustDispatch(t, s, AddBlock{SpriteID: "cat-1", Block: mv})

	mustDispatch(t, s, HandleCollision{SpriteA: "cat-1", SpriteB: "dog-1"})

	cat, _ := s.Sprite("cat-1")
	if b, _ := program.Find(cat.Script, mv.ID); b.Number(0) != -10 {
		t.Errorf("expected cat move negated to -10, got %v", b.Number(0))
	}
	if e := lastEvent(t); e.Name != "collision.handled" {
		t.Errorf("expected collision.handled, got %s", e.Name)
	}
}

func TestRunFlagIdempotent(t *testing.T) {
	s := newTestStore(t)

	var starts, stops int
	s.Observe(func(c Change) {
		if c.RunStarted {
			starts++
		}
		if c.RunStopped {
			stops++
		}
	})

	mustDispatch(t, s, StartRun{})
	mustDispatch(t, s, StartRun{})
	if !s.Running() {
		t.Error("expected running")
	}
	mustDispatch(t, s, StopRun{})
	mustDispatch(t, s, StopRun{})
	if s.Running() {
		t.Error("expected stopped")
	}

	if starts != 1 || stops != 1 {
		t.Errorf("expected one start and one stop, got %d/%d", starts, stops)
	}
}

func TestLoadValidatesAndFillsDefaults(t *testing.T) {
	s := newTestStore(t)
	mustDispatch(t, s, StartRun{})

	err := s.Load([]Sprite{{ID: "a", Kind: "cat", Script: program.Script{{ID: "r", Type: program.ControlRepeat}}}})
	if err == nil {
		t.Fatal("expected invalid script to be rejected")
	}

	if err := s.Load([]Sprite{{ID: "a", Kind: "dog"}, {ID: "b", Kind: "cat"}}); err != nil {
		t.Fatalf("load: %v", err)
	}
	if s.Running() {
		t.Error("load should stop the run")
	}
	if s.Selected() != "a" {
		t.Errorf("expected first sprite selected, got %s", s.Selected())
	}
	sp, _ := s.Sprite("a")
	if sp.Scale != DefaultScale || sp.Width != 50 {
		t.Errorf("expected defaults filled, got scale %v width %v", sp.Scale, sp.Width)
	}

	if err := s.Load([]Sprite{{ID: "a"}, {ID: "a"}}); err == nil {
		t.Error("expected duplicate sprite ids to be rejected")
	}
}

func TestDispatchQueued(t *testing.T) {
	s := newTestStore(t)
	q := NewQueue()
	q.Push(AddSprite{SpriteKind: "cat"})
	q.Push(AddSprite{SpriteKind: "horse"})
	q.Push(StartRun{})

	if n := s.DispatchQueued(q); n != 2 {
		t.Errorf("expected 2 applied, got %d", n)
	}
	if q.Len() != 0 {
		t.Errorf("expected queue drained, got %d", q.Len())
	}
	if !s.Running() || len(s.Snapshot()) != 1 {
		t.Error("expected one sprite and a running stage")
	}
}

// Random edit sequences never produce duplicate or missing block ids.
func TestBlockIDsStayUnique(t *testing.T) {
	pool := []string{"a", "b", "c", "d", "e", "f"}
	types := []program.BlockType{program.MotionMoveSteps, program.ControlRepeat, program.LooksSay}

	property := func(seed int64) bool {
		events.Clear()
		rng := rand.New(rand.NewSource(seed))
		s := NewStore(config.DefaultSprites)
		if err := s.Dispatch(AddSprite{SpriteKind: "cat"}); err != nil {
			return false
		}

		for i := 0; i < 40; i++ {
			bt := types[rng.Intn(len(types))]
			b := program.Block{ID: pool[rng.Intn(len(pool))], Type: bt, Values: []interface{}{1.0}}
			if bt.IsContainer() {
				b.Children = []program.Block{}
			}

			switch rng.Intn(3) {
			case 0:
				_ = s.Dispatch(AddBlock{SpriteID: "cat-1", Block: b})
			case 1:
				_ = s.Dispatch(AddBlockToContainer{SpriteID: "cat-1", ContainerID: pool[rng.Intn(len(pool))], Block: b})
			case 2:
				_ = s.Dispatch(RemoveBlock{SpriteID: "cat-1", BlockID: pool[rng.Intn(len(pool))]})
			}

			sp, _ := s.Sprite("cat-1")
			if err := program.Validate(sp.Script); err != nil {
				t.Logf("seed %d step %d: %v", seed, i, err)
				return false
			}
		}
		return true
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 200}); err != nil {
		t.Error(err)
	}
}

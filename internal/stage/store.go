package stage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AaronLay10/SentientBlocks/internal/config"
	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/program"
)

var (
	ErrMissingSpriteID    = errors.New("sprite_id is required")
	ErrMissingKind        = errors.New("kind is required")
	ErrMissingBlock       = errors.New("block with id is required")
	ErrMissingBlockID     = errors.New("block_id is required")
	ErrMissingContainerID = errors.New("container_id is required")
	ErrUnknownSprite      = errors.New("sprite not found")
	ErrUnknownKind        = errors.New("sprite kind not in catalog")
	ErrContainerNotFound  = errors.New("container block not found")
	ErrDuplicateBlockID   = errors.New("block id already used in script")
)

// Change describes what a dispatched intent altered.
type Change struct {
	// Roster is set when sprites were added or removed or a script changed.
	Roster bool
	// State is set when a sprite's visible state (position, heading...) changed.
	State      bool
	RunStarted bool
	RunStopped bool
	Sprites    []Sprite
}

// Observer is notified synchronously after each intent that changed the stage.
type Observer func(Change)

// Store is the single writer of sprite state and the run flag.
type Store struct {
	mu       sync.RWMutex
	sprites  []Sprite
	selected string
	running  bool
	catalog  []config.SpriteKind

	observers []Observer
}

// NewStore creates an empty stage using the given sprite catalog.
func NewStore(catalog []config.SpriteKind) *Store {
	if len(catalog) == 0 {
		catalog = config.DefaultSprites
	}
	return &Store{
		catalog: append([]config.SpriteKind{}, catalog...),
	}
}

// Observe registers an observer. Observers run on the dispatching goroutine.
func (s *Store) Observe(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the sprites in roster order.
func (s *Store) Snapshot() []Sprite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSprites(s.sprites)
}

// Sprite returns a copy of one sprite.
func (s *Store) Sprite(id string) (Sprite, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.sprites[i].Clone(), true
	}
	return Sprite{}, false
}

// Running returns the run flag.
func (s *Store) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Selected returns the selected sprite id, or "" when nothing is selected.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// Catalog returns the sprite kinds that can be added.
func (s *Store) Catalog() []config.SpriteKind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]config.SpriteKind{}, s.catalog...)
}

// Load replaces the roster with the given sprites, stops any run and selects
// the first sprite. Scripts must satisfy program.Validate.
func (s *Store) Load(sprites []Sprite) error {
	loaded := make([]Sprite, 0, len(sprites))
	seen := make(map[string]bool)
	for i, sp := range sprites {
		if sp.ID == "" {
			return fmt.Errorf("sprites[%d]: %w", i, ErrMissingSpriteID)
		}
		if seen[sp.ID] {
			return fmt.Errorf("sprites[%d]: duplicate sprite id %s", i, sp.ID)
		}
		seen[sp.ID] = true
		if err := program.Validate(sp.Script); err != nil {
			return fmt.Errorf("sprite %s: %w", sp.ID, err)
		}
		loaded = append(loaded, s.withDefaults(sp.Clone()))
	}

	s.mu.Lock()
	wasRunning := s.running
	s.sprites = loaded
	s.running = false
	s.selected = ""
	if len(loaded) > 0 {
		s.selected = loaded[0].ID
	}
	selected := s.selected
	change := Change{Roster: true, State: true, RunStopped: wasRunning, Sprites: cloneSprites(loaded)}
	s.mu.Unlock()

	events.Emit("info", "stage.checkpoint", "", map[string]interface{}{
		"sprites":  cloneSprites(loaded),
		"selected": selected,
	})
	s.notify(change)
	return nil
}

func (s *Store) withDefaults(sp Sprite) Sprite {
	if sp.Scale == 0 {
		sp.Scale = DefaultScale
	}
	if sp.Width == 0 || sp.Height == 0 {
		if kind, ok := s.kind(sp.Kind); ok {
			if sp.Width == 0 {
				sp.Width = kind.Width
			}
			if sp.Height == 0 {
				sp.Height = kind.Height
			}
		}
	}
	if sp.Script == nil {
		sp.Script = program.Script{}
	}
	return sp
}

// Dispatch applies one intent. An intent that cannot be applied leaves the
// stage untouched and returns an error wrapping one of the Err* sentinels.
func (s *Store) Dispatch(in Intent) error {
	s.mu.Lock()
	change, emit, err := s.reduce(in)
	if err == nil && (change.Roster || change.State) {
		change.Sprites = cloneSprites(s.sprites)
	}
	s.mu.Unlock()

	if err != nil {
		events.Emit("warning", "stage.rejected", err.Error(), map[string]interface{}{
			"intent": string(in.Type()),
		})
		return fmt.Errorf("%s: %w", in.Type(), err)
	}

	// Observers see a run start before its events go out, so the session
	// opened by TrackSessions covers run.started.
	notified := false
	if change.RunStarted {
		s.notify(change)
		notified = true
	}
	for _, e := range emit {
		level := e.level
		if level == "" {
			level = "info"
		}
		events.Emit(level, e.name, e.msg, e.fields)
	}
	if !notified && (change.Roster || change.State || change.RunStopped) {
		s.notify(change)
	}
	return nil
}

// DispatchQueued drains q and dispatches each intent in order.
// Rejected intents are skipped; the number applied is returned.
func (s *Store) DispatchQueued(q *Queue) int {
	applied := 0
	for _, in := range q.Drain() {
		if err := s.Dispatch(in); err == nil {
			applied++
		}
	}
	return applied
}

type emitted struct {
	name   string
	fields map[string]interface{}
	level  string
	msg    string
}

// reduce applies an intent under the write lock.
func (s *Store) reduce(in Intent) (Change, []emitted, error) {
	switch v := in.(type) {
	case AddSprite:
		if v.SpriteKind == "" {
			return Change{}, nil, ErrMissingKind
		}
		kind, ok := s.kind(v.SpriteKind)
		if !ok {
			return Change{}, nil, fmt.Errorf("%w: %s", ErrUnknownKind, v.SpriteKind)
		}
		sp := Sprite{
			ID:        s.nextSpriteID(kind.Kind),
			Kind:      kind.Kind,
			Direction: DefaultDirection,
			Scale:     DefaultScale,
			Width:     kind.Width,
			Height:    kind.Height,
			Script:    program.Script{},
		}
		s.sprites = append(s.sprites, sp)
		s.selected = sp.ID
		return Change{Roster: true}, []emitted{{name: "sprite.added", fields: map[string]interface{}{
			"sprite_id": sp.ID,
			"kind":      sp.Kind,
		}}}, nil

	case RemoveSprite:
		if v.SpriteID == "" {
			return Change{}, nil, ErrMissingSpriteID
		}
		i := s.indexOf(v.SpriteID)
		if i < 0 {
			return Change{}, nil, fmt.Errorf("%w: %s", ErrUnknownSprite, v.SpriteID)
		}
		remaining := make([]Sprite, 0, len(s.sprites)-1)
		remaining = append(remaining, s.sprites[:i]...)
		remaining = append(remaining, s.sprites[i+1:]...)
		s.sprites = remaining
		if s.selected == v.SpriteID {
			s.selected = ""
			if len(remaining) > 0 {
				s.selected = remaining[0].ID
			}
		}
		return Change{Roster: true}, []emitted{{name: "sprite.removed", fields: map[string]interface{}{
			"sprite_id": v.SpriteID,
			"selected":  s.selected,
		}}}, nil

	case SelectSprite:
		if v.SpriteID == "" {
			return Change{}, nil, ErrMissingSpriteID
		}
		if s.indexOf(v.SpriteID) < 0 {
			return Change{}, nil, fmt.Errorf("%w: %s", ErrUnknownSprite, v.SpriteID)
		}
		if s.selected == v.SpriteID {
			return Change{}, nil, nil
		}
		s.selected = v.SpriteID
		return Change{}, []emitted{{name: "sprite.selected", fields: map[string]interface{}{
			"sprite_id": v.SpriteID,
		}}}, nil

	case AddBlock:
		i, err := s.requireSprite(v.SpriteID)
		if err != nil {
			return Change{}, nil, err
		}
		if err := s.checkNewBlock(i, v.Block); err != nil {
			return Change{}, nil, err
		}
		s.sprites[i].Script = program.AppendToRoot(s.sprites[i].Script, v.Block.Clone())
		return Change{Roster: true}, []emitted{{name: "block.added", fields: map[string]interface{}{
			"sprite_id": v.SpriteID,
			"block":     v.Block.Clone(),
		}}}, nil

	case AddBlockToContainer:
		i, err := s.requireSprite(v.SpriteID)
		if err != nil {
			return Change{}, nil, err
		}
		if v.ContainerID == "" {
			return Change{}, nil, ErrMissingContainerID
		}
		if err := s.checkNewBlock(i, v.Block); err != nil {
			return Change{}, nil, err
		}
		script, found, repaired := program.InsertIntoContainer(s.sprites[i].Script, v.ContainerID, v.Block.Clone())
		if !found {
			return Change{}, nil, fmt.Errorf("%w: %s", ErrContainerNotFound, v.ContainerID)
		}
		s.sprites[i].Script = script
		var out []emitted
		if repaired {
			out = append(out, emitted{
				name:   "block.repaired",
				fields: map[string]interface{}{"sprite_id": v.SpriteID, "block_id": v.ContainerID},
				level:  "warning",
				msg:    "container was missing children",
			})
		}
		out = append(out, emitted{name: "block.added", fields: map[string]interface{}{
			"sprite_id":    v.SpriteID,
			"container_id": v.ContainerID,
			"block":        v.Block.Clone(),
		}})
		return Change{Roster: true}, out, nil

	case RemoveBlock:
		i, err := s.requireSprite(v.SpriteID)
		if err != nil {
			return Change{}, nil, err
		}
		if v.BlockID == "" {
			return Change{}, nil, ErrMissingBlockID
		}
		script := program.RemoveByID(s.sprites[i].Script, v.BlockID)
		if len(program.IDs(script)) == len(program.IDs(s.sprites[i].Script)) {
			return Change{}, nil, nil
		}
		s.sprites[i].Script = script
		return Change{Roster: true}, []emitted{{name: "block.removed", fields: map[string]interface{}{
			"sprite_id": v.SpriteID,
			"block_id":  v.BlockID,
		}}}, nil

	case UpdateSprite:
		i, err := s.requireSprite(v.SpriteID)
		if err != nil {
			return Change{}, nil, err
		}
		if v.Updates.Empty() {
			return Change{}, nil, nil
		}
		s.sprites[i] = v.Updates.Apply(s.sprites[i])
		return Change{State: true}, []emitted{{name: "sprite.updated", fields: map[string]interface{}{
			"sprite_id": v.SpriteID,
			"updates":   v.Updates,
		}}}, nil

	case HandleCollision:
		if v.SpriteA == "" || v.SpriteB == "" {
			return Change{}, nil, ErrMissingSpriteID
		}
		a, b := s.indexOf(v.SpriteA), s.indexOf(v.SpriteB)
		if a < 0 || b < 0 {
			return Change{}, nil, fmt.Errorf("%w: %s/%s", ErrUnknownSprite, v.SpriteA, v.SpriteB)
		}
		scriptA, changedA := program.NegateFirstMove(s.sprites[a].Script)
		scriptB, changedB := program.NegateFirstMove(s.sprites[b].Script)
		s.sprites[a].Script = scriptA
		s.sprites[b].Script = scriptB
		return Change{Roster: changedA || changedB}, []emitted{{name: "collision.handled", fields: map[string]interface{}{
			"sprite_a":  v.SpriteA,
			"sprite_b":  v.SpriteB,
			"changed_a": changedA,
			"changed_b": changedB,
		}}}, nil

	case StartRun:
		if s.running {
			return Change{}, nil, nil
		}
		s.running = true
		return Change{RunStarted: true}, []emitted{{name: "run.started", fields: map[string]interface{}{
			"sprites": len(s.sprites),
		}}}, nil

	case StopRun:
		if !s.running {
			return Change{}, nil, nil
		}
		s.running = false
		return Change{RunStopped: true}, []emitted{
			{name: "run.stopped"},
			{name: "stage.checkpoint", fields: map[string]interface{}{
				"sprites":  cloneSprites(s.sprites),
				"selected": s.selected,
			}},
		}, nil

	default:
		return Change{}, nil, fmt.Errorf("unsupported intent: %T", in)
	}
}

func (s *Store) requireSprite(id string) (int, error) {
	if id == "" {
		return -1, ErrMissingSpriteID
	}
	i := s.indexOf(id)
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrUnknownSprite, id)
	}
	return i, nil
}

// checkNewBlock rejects blocks without an id or whose ids collide with the
// target script, keeping ids unique per script.
func (s *Store) checkNewBlock(i int, b program.Block) error {
	if b.ID == "" {
		return ErrMissingBlock
	}
	existing := make(map[string]bool)
	for _, id := range program.IDs(s.sprites[i].Script) {
		existing[id] = true
	}
	for _, id := range program.IDs(program.Script{b}) {
		if id == "" {
			return ErrMissingBlock
		}
		if existing[id] {
			return fmt.Errorf("%w: %s", ErrDuplicateBlockID, id)
		}
		existing[id] = true
	}
	return nil
}

func (s *Store) notify(change Change) {
	s.mu.RLock()
	observers := append([]Observer{}, s.observers...)
	s.mu.RUnlock()

	for _, o := range observers {
		o(change)
	}
}

func (s *Store) indexOf(id string) int {
	for i := range s.sprites {
		if s.sprites[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) kind(kind string) (config.SpriteKind, bool) {
	for _, k := range s.catalog {
		if k.Kind == kind {
			return k, true
		}
	}
	return config.SpriteKind{}, false
}

// nextSpriteID returns <kind>-<n> with the smallest n not in use.
func (s *Store) nextSpriteID(kind string) string {
	for n := 1; ; n++ {
		id := fmt.Sprintf("%s-%d", kind, n)
		if s.indexOf(id) < 0 {
			return id
		}
	}
}

func cloneSprites(sprites []Sprite) []Sprite {
	out := make([]Sprite, len(sprites))
	for i, sp := range sprites {
		out[i] = sp.Clone()
	}
	return out
}

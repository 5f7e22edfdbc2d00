package stage

import (
	"encoding/json"
	"fmt"

	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/program"
	"github.com/AaronLay10/SentientBlocks/internal/storage/postgres"
)

// DefaultRestoreLimit is the default number of events to load for restore.
const DefaultRestoreLimit = 10000

// EventSource returns persisted events, newest first. *postgres.Client satisfies it.
type EventSource interface {
	Query(limit int) ([]postgres.EventRow, error)
}

// RestoredStage is the roster reconstructed from the event log.
// Runs are never restored; a restored stage is always stopped.
type RestoredStage struct {
	Sprites  []Sprite
	Selected string
}

// RestoreFromEvents loads events and replays the stage edits they record.
// Replay starts at the newest stage.checkpoint inside the window. Returns nil if src is nil or holds no events.
func RestoreFromEvents(src EventSource, limit int) (*RestoredStage, int, error) {
	if src == nil {
		return nil, 0, nil
	}

	if limit <= 0 {
		limit = DefaultRestoreLimit
	}

	rows, err := src.Query(limit)
	if err != nil {
		return nil, 0, err
	}

	if len(rows) == 0 {
		return nil, 0, nil
	}

	// Rows arrive newest first; find the newest snapshot, then replay forward.
	start := len(rows) - 1
	for i, row := range rows {
		if row.Event == "stage.checkpoint" {
			start = i
			break
		}
	}

	state := &RestoredStage{}
	for i := start; i >= 0; i-- {
		if err := state.apply(rows[i]); err != nil {
			return nil, 0, fmt.Errorf("event %d (%s): %w", rows[i].EventID, rows[i].Event, err)
		}
	}

	return state, len(rows), nil
}

func (st *RestoredStage) apply(row postgres.EventRow) error {
	spriteID, _ := row.Fields["sprite_id"].(string)

	switch row.Event {
	case "stage.checkpoint":
		var sprites []Sprite
		if err := decodeField(row.Fields["sprites"], &sprites); err != nil {
			return err
		}
		st.Sprites = sprites
		st.Selected, _ = row.Fields["selected"].(string)

	case "sprite.added":
		kind, _ := row.Fields["kind"].(string)
		st.Sprites = append(st.Sprites, Sprite{
			ID:        spriteID,
			Kind:      kind,
			Direction: DefaultDirection,
			Scale:     DefaultScale,
			Script:    program.Script{},
		})
		st.Selected = spriteID

	case "sprite.removed":
		for i := range st.Sprites {
			if st.Sprites[i].ID == spriteID {
				st.Sprites = append(st.Sprites[:i], st.Sprites[i+1:]...)
				break
			}
		}
		st.Selected, _ = row.Fields["selected"].(string)

	case "sprite.selected":
		st.Selected = spriteID

	case "sprite.updated":
		var u Updates
		if err := decodeField(row.Fields["updates"], &u); err != nil {
			return err
		}
		st.update(spriteID, func(sp *Sprite) { *sp = u.Apply(*sp) })

	case "block.added":
		var b program.Block
		if err := decodeField(row.Fields["block"], &b); err != nil {
			return err
		}
		containerID, _ := row.Fields["container_id"].(string)
		st.update(spriteID, func(sp *Sprite) {
			if containerID == "" {
				sp.Script = program.AppendToRoot(sp.Script, b)
				return
			}
			sp.Script, _, _ = program.InsertIntoContainer(sp.Script, containerID, b)
		})

	case "block.removed":
		blockID, _ := row.Fields["block_id"].(string)
		st.update(spriteID, func(sp *Sprite) {
			sp.Script = program.RemoveByID(sp.Script, blockID)
		})

	case "collision.handled":
		a, _ := row.Fields["sprite_a"].(string)
		b, _ := row.Fields["sprite_b"].(string)
		for _, id := range []string{a, b} {
			st.update(id, func(sp *Sprite) {
				sp.Script, _ = program.NegateFirstMove(sp.Script)
			})
		}
	}
	return nil
}

func (st *RestoredStage) update(id string, fn func(*Sprite)) {
	for i := range st.Sprites {
		if st.Sprites[i].ID == id {
			fn(&st.Sprites[i])
			return
		}
	}
}

// decodeField converts a decoded JSONB value (maps and slices) into out.
func decodeField(v interface{}, out interface{}) error {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// ApplyRestoredState loads a restored roster into the store and reselects the
// sprite that was selected when the log was written.
func ApplyRestoredState(s *Store, state *RestoredStage) error {
	if state == nil {
		return nil
	}
	if err := s.Load(state.Sprites); err != nil {
		return err
	}
	if state.Selected != "" && state.Selected != s.Selected() {
		if _, ok := s.Sprite(state.Selected); ok {
			return s.Dispatch(SelectSprite{SpriteID: state.Selected})
		}
	}
	return nil
}

// EmitStartupRestore emits the stage.restored summary for a startup restore.
func EmitStartupRestore(restored int, stageID string) {
	events.Emit("info", "stage.restored", "", map[string]interface{}{
		"restored": restored,
		"stage_id": stageID,
	})
}

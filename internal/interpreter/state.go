package interpreter

import (
	"github.com/AaronLay10/SentientBlocks/internal/program"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// LoopProgress tracks one active repeat block.
type LoopProgress struct {
	Remaining  int `json:"remaining"`
	ChildIndex int `json:"child_index"`
}

// Loops maps a repeat block id to its progress.
type Loops map[string]LoopProgress

// Clone returns a copy of the map. A nil map clones to an empty one.
func (l Loops) Clone() Loops {
	out := make(Loops, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// State is the per-sprite interpreter bookkeeping. It is owned by the
// scheduler and never stored on the sprite.
type State struct {
	Pointer  int   `json:"pointer"`
	Loops    Loops `json:"loops"`
	Eligible bool  `json:"eligible"`
}

// StartPointer is the run-start pointer for a script: 1 skips the trigger
// block of a runnable script, 0 otherwise.
func StartPointer(script program.Script) int {
	if script.Runnable() {
		return 1
	}
	return 0
}

// Initial returns the fresh state for a sprite.
func Initial(sp stage.Sprite) State {
	return State{
		Pointer:  StartPointer(sp.Script),
		Loops:    Loops{},
		Eligible: sp.Script.Runnable(),
	}
}

// Reconcile carries states over a roster change. Surviving sprites keep
// their pointer and loop progress and only have eligibility recomputed; new
// sprites get fresh state; removed sprites are dropped. Progress of repeat
// blocks no longer in the script is discarded.
func Reconcile(prev map[string]State, sprites []stage.Sprite) map[string]State {
	next := make(map[string]State, len(sprites))
	for _, sp := range sprites {
		st, ok := prev[sp.ID]
		if !ok {
			next[sp.ID] = Initial(sp)
			continue
		}
		st.Eligible = sp.Script.Runnable()
		st.Loops = liveLoops(st.Loops, sp.Script)
		next[sp.ID] = st
	}
	return next
}

func liveLoops(loops Loops, script program.Script) Loops {
	out := make(Loops, len(loops))
	for id, p := range loops {
		if _, ok := program.Find(script, id); ok {
			out[id] = p
		}
	}
	return out
}

// Rewind resets every sprite to run-start state. This is the only path that
// moves a pointer backwards.
func Rewind(sprites []stage.Sprite) map[string]State {
	next := make(map[string]State, len(sprites))
	for _, sp := range sprites {
		next[sp.ID] = Initial(sp)
	}
	return next
}

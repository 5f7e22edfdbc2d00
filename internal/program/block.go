package program

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// BlockType identifies the instruction a block performs.
type BlockType string

const (
	EventFlagClicked      BlockType = "EVENT_FLAG_CLICKED"
	MotionMoveSteps       BlockType = "MOTION_MOVE_STEPS"
	MotionTurnDegrees     BlockType = "MOTION_TURN_DEGREES"
	MotionTurnDegreesAnti BlockType = "MOTION_TURN_DEGREES_ANTI_CLOCK"
	MotionGotoXY          BlockType = "MOTION_GOTO_XY"
	LooksSay              BlockType = "LOOKS_SAY"
	LooksChangeSizeBy     BlockType = "LOOKS_CHANGE_SIZE_BY"
	ControlRepeat         BlockType = "CONTROL_REPEAT"
)

// Block is one instruction or container node in a sprite's program tree.
// Children is non-nil only for container types.
type Block struct {
	ID       string        `json:"id"`
	Type     BlockType     `json:"type"`
	Values   []interface{} `json:"values"`
	Children []Block       `json:"children,omitempty"`
}

// Script is the ordered sequence of top-level blocks of one sprite.
type Script []Block

// MarshalJSON keeps an empty child list on containers so the container
// invariant survives a round trip.
func (b Block) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID       string        `json:"id"`
		Type     BlockType     `json:"type"`
		Values   []interface{} `json:"values"`
		Children *[]Block      `json:"children,omitempty"`
	}
	w := wire{ID: b.ID, Type: b.Type, Values: b.Values}
	if w.Values == nil {
		w.Values = []interface{}{}
	}
	if b.Children != nil {
		children := b.Children
		w.Children = &children
	}
	return json.Marshal(w)
}

// IsContainer reports whether the block type owns child blocks.
func (t BlockType) IsContainer() bool {
	if def, ok := definitions[t]; ok {
		return def.Container
	}
	return false
}

// IsTrigger reports whether the block type is an event-trigger (hat) block.
func (t BlockType) IsTrigger() bool {
	if def, ok := definitions[t]; ok {
		return def.Hat
	}
	return false
}

// Number returns value i as a float64. Missing or non-numeric values yield 0.
func (b Block) Number(i int) float64 {
	if i < 0 || i >= len(b.Values) {
		return 0
	}
	switch v := b.Values[i].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

// Text returns value i formatted as a string. Missing values yield "".
func (b Block) Text(i int) string {
	if i < 0 || i >= len(b.Values) || b.Values[i] == nil {
		return ""
	}
	switch v := b.Values[i].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return fmt.Sprint(b.Values[i])
}

// Clone returns a deep copy of the block. Values are literals and are copied shallowly.
func (b Block) Clone() Block {
	out := b
	if b.Values != nil {
		out.Values = append([]interface{}{}, b.Values...)
	}
	if b.Children != nil {
		out.Children = make([]Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the script.
func (s Script) Clone() Script {
	if s == nil {
		return nil
	}
	out := make(Script, len(s))
	for i, b := range s {
		out[i] = b.Clone()
	}
	return out
}

// Runnable reports whether the script starts with an event-trigger block.
func (s Script) Runnable() bool {
	return len(s) > 0 && s[0].Type.IsTrigger()
}

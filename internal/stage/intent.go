package stage

import (
	"encoding/json"
	"fmt"

	"github.com/AaronLay10/SentientBlocks/internal/program"
)

// IntentType names an intent on the wire.
type IntentType string

const (
	IntentAddSprite           IntentType = "add_sprite"
	IntentRemoveSprite        IntentType = "remove_sprite"
	IntentSelectSprite        IntentType = "select_sprite"
	IntentAddBlock            IntentType = "add_block"
	IntentAddBlockToContainer IntentType = "add_block_to_container"
	IntentRemoveBlock         IntentType = "remove_block"
	IntentUpdateSprite        IntentType = "update_sprite"
	IntentHandleCollision     IntentType = "handle_collision"
	IntentStartRun            IntentType = "start_run"
	IntentStopRun             IntentType = "stop_run"
)

// Intent is a discrete, fully specified request to change the stage.
// The store is the only component that applies intents.
type Intent interface {
	Type() IntentType
}

type AddSprite struct {
	SpriteKind string
}

type RemoveSprite struct {
	SpriteID string
}

type SelectSprite struct {
	SpriteID string
}

type AddBlock struct {
	SpriteID string
	Block    program.Block
}

type AddBlockToContainer struct {
	SpriteID    string
	ContainerID string
	Block       program.Block
}

type RemoveBlock struct {
	SpriteID string
	BlockID  string
}

type UpdateSprite struct {
	SpriteID string
	Updates  Updates
}

type HandleCollision struct {
	SpriteA string
	SpriteB string
}

type StartRun struct{}

type StopRun struct{}

func (AddSprite) Type() IntentType           { return IntentAddSprite }
func (RemoveSprite) Type() IntentType        { return IntentRemoveSprite }
func (SelectSprite) Type() IntentType        { return IntentSelectSprite }
func (AddBlock) Type() IntentType            { return IntentAddBlock }
func (AddBlockToContainer) Type() IntentType { return IntentAddBlockToContainer }
func (RemoveBlock) Type() IntentType         { return IntentRemoveBlock }
func (UpdateSprite) Type() IntentType        { return IntentUpdateSprite }
func (HandleCollision) Type() IntentType     { return IntentHandleCollision }
func (StartRun) Type() IntentType            { return IntentStartRun }
func (StopRun) Type() IntentType             { return IntentStopRun }

// wireIntent is the JSON envelope shared by the HTTP and MQTT transports.
type wireIntent struct {
	Type        IntentType     `json:"type"`
	Kind        string         `json:"kind,omitempty"`
	SpriteID    string         `json:"sprite_id,omitempty"`
	ContainerID string         `json:"container_id,omitempty"`
	BlockID     string         `json:"block_id,omitempty"`
	Block       *program.Block `json:"block,omitempty"`
	Updates     *Updates       `json:"updates,omitempty"`
	SpriteA     string         `json:"sprite_a,omitempty"`
	SpriteB     string         `json:"sprite_b,omitempty"`
}

// DecodeIntent parses a JSON intent envelope. Only the envelope shape is
// checked here; missing identifiers are rejected by Store.Dispatch.
func DecodeIntent(data []byte) (Intent, error) {
	var w wireIntent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid intent JSON: %w", err)
	}

	block := func() program.Block {
		if w.Block == nil {
			return program.Block{}
		}
		return *w.Block
	}

	switch w.Type {
	case IntentAddSprite:
		return AddSprite{SpriteKind: w.Kind}, nil
	case IntentRemoveSprite:
		return RemoveSprite{SpriteID: w.SpriteID}, nil
	case IntentSelectSprite:
		return SelectSprite{SpriteID: w.SpriteID}, nil
	case IntentAddBlock:
		return AddBlock{SpriteID: w.SpriteID, Block: block()}, nil
	case IntentAddBlockToContainer:
		return AddBlockToContainer{SpriteID: w.SpriteID, ContainerID: w.ContainerID, Block: block()}, nil
	case IntentRemoveBlock:
		return RemoveBlock{SpriteID: w.SpriteID, BlockID: w.BlockID}, nil
	case IntentUpdateSprite:
		var u Updates
		if w.Updates != nil {
			u = *w.Updates
		}
		return UpdateSprite{SpriteID: w.SpriteID, Updates: u}, nil
	case IntentHandleCollision:
		return HandleCollision{SpriteA: w.SpriteA, SpriteB: w.SpriteB}, nil
	case IntentStartRun:
		return StartRun{}, nil
	case IntentStopRun:
		return StopRun{}, nil
	case "":
		return nil, fmt.Errorf("intent type is required")
	default:
		return nil, fmt.Errorf("unknown intent type: %s", w.Type)
	}
}

// EncodeIntent renders an intent as its JSON envelope.
func EncodeIntent(in Intent) ([]byte, error) {
	w := wireIntent{Type: in.Type()}

	switch v := in.(type) {
	case AddSprite:
		w.Kind = v.SpriteKind
	case RemoveSprite:
		w.SpriteID = v.SpriteID
	case SelectSprite:
		w.SpriteID = v.SpriteID
	case AddBlock:
		w.SpriteID = v.SpriteID
		w.Block = &v.Block
	case AddBlockToContainer:
		w.SpriteID = v.SpriteID
		w.ContainerID = v.ContainerID
		w.Block = &v.Block
	case RemoveBlock:
		w.SpriteID = v.SpriteID
		w.BlockID = v.BlockID
	case UpdateSprite:
		w.SpriteID = v.SpriteID
		w.Updates = &v.Updates
	case HandleCollision:
		w.SpriteA = v.SpriteA
		w.SpriteB = v.SpriteB
	case StartRun, StopRun:
	default:
		return nil, fmt.Errorf("unsupported intent: %T", in)
	}

	return json.Marshal(w)
}

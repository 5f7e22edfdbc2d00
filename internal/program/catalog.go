package program

import (
	"crypto/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Definition describes a block type offered by the palette.
type Definition struct {
	Type          BlockType
	Category      string
	Label         string
	DefaultValues []interface{}
	Container     bool
	Hat           bool
}

var definitions = map[BlockType]Definition{
	EventFlagClicked: {
		Type:     EventFlagClicked,
		Category: "Events",
		Label:    "When Green Flag clicked",
		Hat:      true,
	},
	MotionMoveSteps: {
		Type:          MotionMoveSteps,
		Category:      "Motion",
		Label:         "Move {} steps",
		DefaultValues: []interface{}{10.0},
	},
	MotionTurnDegrees: {
		Type:          MotionTurnDegrees,
		Category:      "Motion",
		Label:         "Turn ↻ {} degrees",
		DefaultValues: []interface{}{15.0},
	},
	MotionTurnDegreesAnti: {
		Type:          MotionTurnDegreesAnti,
		Category:      "Motion",
		Label:         "Turn ↺ {} degrees",
		DefaultValues: []interface{}{15.0},
	},
	MotionGotoXY: {
		Type:          MotionGotoXY,
		Category:      "Motion",
		Label:         "Go to x:{} y:{}",
		DefaultValues: []interface{}{0.0, 0.0},
	},
	LooksSay: {
		Type:          LooksSay,
		Category:      "Looks",
		Label:         "Say {}",
		DefaultValues: []interface{}{"Hello!"},
	},
	LooksChangeSizeBy: {
		Type:          LooksChangeSizeBy,
		Category:      "Looks",
		Label:         "Change size by {}",
		DefaultValues: []interface{}{10.0},
	},
	ControlRepeat: {
		Type:          ControlRepeat,
		Category:      "Controls",
		Label:         "Repeat {} times",
		DefaultValues: []interface{}{10.0},
		Container:     true,
	},
}

// Lookup returns the palette definition for a block type.
func Lookup(t BlockType) (Definition, bool) {
	def, ok := definitions[t]
	return def, ok
}

// Definitions returns all palette definitions ordered by category then type.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, def := range definitions {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewBlockID returns a unique id of the form <TYPE>_<ulid>.
// ULIDs from one process are strictly increasing.
func NewBlockID(t BlockType) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	entropyMu.Unlock()
	return string(t) + "_" + id.String()
}

// NewBlock builds a block of the given type with its default values and a fresh id.
// Container types start with an empty child list.
func NewBlock(t BlockType) Block {
	b := Block{
		ID:     NewBlockID(t),
		Type:   t,
		Values: []interface{}{},
	}
	if def, ok := definitions[t]; ok {
		b.Values = append(b.Values, def.DefaultValues...)
		if def.Container {
			b.Children = []Block{}
		}
	}
	return b
}

package scheduler

import (
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Pair is an unordered sprite pair keyed in sorted id order.
type Pair struct {
	A string
	B string
}

// NewPair returns the canonical pair for two sprite ids.
func NewPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// Box is an axis-aligned bounding box in stage coordinates (y up).
type Box struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// Bounds returns the sprite's box centred on its position and sized by scale.
// ok is false for sprites without known dimensions.
func Bounds(sp stage.Sprite) (Box, bool) {
	if sp.Width <= 0 || sp.Height <= 0 {
		return Box{}, false
	}
	scale := sp.Scale
	if scale <= 0 {
		scale = stage.DefaultScale
	}
	halfW := sp.Width * scale / 100 / 2
	halfH := sp.Height * scale / 100 / 2
	return Box{
		MinX: sp.X - halfW,
		MaxX: sp.X + halfW,
		MinY: sp.Y - halfH,
		MaxY: sp.Y + halfH,
	}, true
}

// Overlaps reports whether two boxes intersect. Touching edges do not count.
func (b Box) Overlaps(o Box) bool {
	return b.MinX < o.MaxX && b.MaxX > o.MinX && b.MinY < o.MaxY && b.MaxY > o.MinY
}

// Monitor detects sprite pairs that start overlapping.
type Monitor struct {
	previous map[Pair]bool
}

// NewMonitor creates a monitor with no remembered overlaps.
func NewMonitor() *Monitor {
	return &Monitor{previous: make(map[Pair]bool)}
}

// Observe compares all sprite pairs and returns those overlapping now that
// did not overlap on the previous call, in roster order.
func (m *Monitor) Observe(sprites []stage.Sprite) []Pair {
	boxes := make([]Box, len(sprites))
	known := make([]bool, len(sprites))
	for i, sp := range sprites {
		boxes[i], known[i] = Bounds(sp)
	}

	current := make(map[Pair]bool)
	var fresh []Pair
	for i := 0; i < len(sprites); i++ {
		if !known[i] {
			continue
		}
		for j := i + 1; j < len(sprites); j++ {
			if !known[j] || !boxes[i].Overlaps(boxes[j]) {
				continue
			}
			p := NewPair(sprites[i].ID, sprites[j].ID)
			if current[p] {
				continue
			}
			current[p] = true
			if !m.previous[p] {
				fresh = append(fresh, p)
			}
		}
	}

	m.previous = current
	return fresh
}

// Overlapping returns the number of pairs overlapping as of the last Observe.
func (m *Monitor) Overlapping() int {
	return len(m.previous)
}

// Reset forgets all remembered overlaps.
func (m *Monitor) Reset() {
	m.previous = make(map[Pair]bool)
}

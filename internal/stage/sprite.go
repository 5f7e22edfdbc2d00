package stage

import (
	"github.com/AaronLay10/SentientBlocks/internal/program"
)

const (
	DefaultDirection = 90.0
	DefaultScale     = 100.0
	MinScale         = 10.0
	MaxScale         = 500.0
)

// Sprite is a visual actor on the stage with its own script.
// X and Y are stage coordinates of the sprite center, with y growing upward.
// Direction is in degrees, 90 meaning facing right. Scale is a percentage.
type Sprite struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Direction float64        `json:"direction"`
	Scale     float64        `json:"scale"`
	Width     float64        `json:"width"`
	Height    float64        `json:"height"`
	Message   *string        `json:"message,omitempty"`
	Script    program.Script `json:"script"`
}

// Clone returns a deep copy of the sprite.
func (s Sprite) Clone() Sprite {
	out := s
	if s.Message != nil {
		msg := *s.Message
		out.Message = &msg
	}
	out.Script = s.Script.Clone()
	return out
}

// Updates is a partial sprite patch. Nil fields are left untouched.
type Updates struct {
	X         *float64 `json:"x,omitempty"`
	Y         *float64 `json:"y,omitempty"`
	Direction *float64 `json:"direction,omitempty"`
	Scale     *float64 `json:"scale,omitempty"`
	Message   *string  `json:"message,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (u Updates) Empty() bool {
	return u.X == nil && u.Y == nil && u.Direction == nil && u.Scale == nil && u.Message == nil
}

// Apply returns s with the patch applied.
func (u Updates) Apply(s Sprite) Sprite {
	if u.X != nil {
		s.X = *u.X
	}
	if u.Y != nil {
		s.Y = *u.Y
	}
	if u.Direction != nil {
		s.Direction = *u.Direction
	}
	if u.Scale != nil {
		s.Scale = *u.Scale
	}
	if u.Message != nil {
		msg := *u.Message
		s.Message = &msg
	}
	return s
}

// Float returns a pointer to v, for building Updates.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to v, for building Updates.
func String(v string) *string {
	return &v
}

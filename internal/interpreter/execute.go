package interpreter

import (
	"math"

	"github.com/AaronLay10/SentientBlocks/internal/program"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Result is the outcome of executing one block.
type Result struct {
	// Delta is the patch to dispatch for the sprite. Empty means none.
	Delta stage.Updates
	// Advance reports whether the pointer may move past the block.
	Advance bool
	// Loops is the loop progress after the step. The input map is never modified.
	Loops Loops
}

// Execute runs one step of block for sprite. Containers run a single leaf step
// per call, however deeply they nest. Unknown blocks are skipped.
func Execute(sp stage.Sprite, b program.Block, loops Loops) Result {
	next := loops.Clone()
	delta, advance := step(sp, b, next)
	return Result{Delta: delta, Advance: advance, Loops: next}
}

func step(sp stage.Sprite, b program.Block, loops Loops) (stage.Updates, bool) {
	switch b.Type {
	case program.MotionMoveSteps:
		steps := b.Number(0)
		angle := (sp.Direction - 90) * math.Pi / 180
		return stage.Updates{
			X: stage.Float(sp.X + steps*math.Cos(angle)),
			Y: stage.Float(sp.Y + steps*math.Sin(angle)),
		}, true

	case program.MotionTurnDegrees:
		return stage.Updates{Direction: stage.Float(normalizeHeading(sp.Direction + b.Number(0)))}, true

	case program.MotionTurnDegreesAnti:
		return stage.Updates{Direction: stage.Float(normalizeHeading(sp.Direction - b.Number(0)))}, true

	case program.MotionGotoXY:
		return stage.Updates{X: stage.Float(b.Number(0)), Y: stage.Float(b.Number(1))}, true

	case program.LooksSay:
		return stage.Updates{Message: stage.String(b.Text(0))}, true

	case program.LooksChangeSizeBy:
		scale := sp.Scale + b.Number(0)
		return stage.Updates{Scale: stage.Float(clamp(scale, stage.MinScale, stage.MaxScale))}, true

	case program.ControlRepeat:
		return repeat(sp, b, loops)
	}

	// Trigger blocks and unsupported types.
	return stage.Updates{}, true
}

// MaxRepeatCount caps a repeat block's count. Larger values, including
// +Inf, run this many passes.
const MaxRepeatCount = 1_000_000

// repeatCount converts a repeat value to a pass count, truncating toward
// zero. NaN counts as zero.
func repeatCount(v float64) int {
	if math.IsNaN(v) || v < 1 {
		return 0
	}
	if v > MaxRepeatCount {
		return MaxRepeatCount
	}
	return int(v)
}

func repeat(sp stage.Sprite, b program.Block, loops Loops) (stage.Updates, bool) {
	loop, ok := loops[b.ID]
	if !ok {
		times := repeatCount(b.Number(0))
		if times <= 0 || len(b.Children) == 0 {
			return stage.Updates{}, true
		}
		loop = LoopProgress{Remaining: times}
	}

	if loop.Remaining <= 0 {
		delete(loops, b.ID)
		return stage.Updates{}, true
	}

	// Children may have been removed since the loop started.
	if loop.ChildIndex >= len(b.Children) {
		loop.ChildIndex = 0
		if len(b.Children) == 0 {
			delete(loops, b.ID)
			return stage.Updates{}, true
		}
	}

	delta, childDone := step(sp, b.Children[loop.ChildIndex], loops)

	// A nested container holds the child slot until it finishes.
	if childDone {
		loop.ChildIndex++
	}

	if loop.ChildIndex >= len(b.Children) {
		loop.Remaining--
		loop.ChildIndex = 0
		if loop.Remaining <= 0 {
			delete(loops, b.ID)
			return delta, true
		}
	}

	loops[b.ID] = loop
	return delta, false
}

func normalizeHeading(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

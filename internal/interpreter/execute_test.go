package interpreter

import (
	"math"
	"testing"

	"github.com/AaronLay10/SentientBlocks/internal/program"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

const tolerance = 1e-9

func block(id string, t program.BlockType, values ...interface{}) program.Block {
	return program.Block{ID: id, Type: t, Values: values}
}

func repeatBlock(id string, times float64, children ...program.Block) program.Block {
	b := block(id, program.ControlRepeat, times)
	b.Children = append([]program.Block{}, children...)
	return b
}

func sprite(x, y, dir float64) stage.Sprite {
	return stage.Sprite{ID: "cat-1", X: x, Y: y, Direction: dir, Scale: 100}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func TestMoveSteps(t *testing.T) {
	tests := []struct {
		name       string
		dir, steps float64
		wantX      float64
		wantY      float64
	}{
		{"forward facing right", 90, 10, 10, 0},
		{"backward facing right", 90, -10, -10, 0},
		{"facing 180", 180, 10, 0, 10},
		{"facing 0", 0, 10, 0, -10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Execute(sprite(0, 0, tt.dir), block("m", program.MotionMoveSteps, tt.steps), nil)
			if !res.Advance {
				t.Error("move should advance")
			}
			if res.Delta.X == nil || res.Delta.Y == nil {
				t.Fatalf("expected x and y in delta, got %+v", res.Delta)
			}
			if !near(*res.Delta.X, tt.wantX) || !near(*res.Delta.Y, tt.wantY) {
				t.Errorf("expected (%v,%v), got (%v,%v)", tt.wantX, tt.wantY, *res.Delta.X, *res.Delta.Y)
			}
		})
	}
}

func TestTurnNormalizes(t *testing.T) {
	res := Execute(sprite(0, 0, 350), block("t", program.MotionTurnDegrees, 20.0), nil)
	if res.Delta.Direction == nil || !near(*res.Delta.Direction, 10) {
		t.Errorf("expected heading 10, got %v", res.Delta.Direction)
	}

	res = Execute(sprite(0, 0, 10), block("t", program.MotionTurnDegreesAnti, 20.0), nil)
	if res.Delta.Direction == nil || !near(*res.Delta.Direction, 350) {
		t.Errorf("expected heading 350, got %v", res.Delta.Direction)
	}

	res = Execute(sprite(0, 0, 0), block("t", program.MotionTurnDegrees, 720.0), nil)
	if *res.Delta.Direction != 0 {
		t.Errorf("expected heading 0, got %v", *res.Delta.Direction)
	}
}

func TestGotoSayAndSize(t *testing.T) {
	sp := sprite(5, 5, 90)

	res := Execute(sp, block("g", program.MotionGotoXY, 30.0, -20.0), nil)
	if *res.Delta.X != 30 || *res.Delta.Y != -20 || !res.Advance {
		t.Errorf("unexpected goto result %+v", res)
	}

	res = Execute(sp, block("s", program.LooksSay, "Hello!"), nil)
	if res.Delta.Message == nil || *res.Delta.Message != "Hello!" {
		t.Errorf("unexpected say result %+v", res.Delta)
	}

	res = Execute(sp, block("z", program.LooksChangeSizeBy, 20.0), nil)
	if *res.Delta.Scale != 120 {
		t.Errorf("expected scale 120, got %v", *res.Delta.Scale)
	}

	sp.Scale = 490
	res = Execute(sp, block("z", program.LooksChangeSizeBy, 50.0), nil)
	if *res.Delta.Scale != stage.MaxScale {
		t.Errorf("expected scale clamped to 500, got %v", *res.Delta.Scale)
	}

	sp.Scale = 15
	res = Execute(sp, block("z", program.LooksChangeSizeBy, -50.0), nil)
	if *res.Delta.Scale != stage.MinScale {
		t.Errorf("expected scale clamped to 10, got %v", *res.Delta.Scale)
	}
}

func TestTriggerAndUnknownAreNoOps(t *testing.T) {
	for _, b := range []program.Block{
		block("f", program.EventFlagClicked),
		block("x", program.BlockType("CONTROL_FOREVER")),
	} {
		res := Execute(sprite(0, 0, 90), b, nil)
		if !res.Advance || !res.Delta.Empty() {
			t.Errorf("%s: expected no-op advance, got %+v", b.Type, res)
		}
	}
}

func TestRepeatStepsOnePassPerTick(t *testing.T) {
	rep := repeatBlock("r", 3, block("m", program.MotionMoveSteps, 10.0))
	sp := sprite(0, 0, 90)
	loops := Loops{}

	for tick := 1; tick <= 3; tick++ {
		res := Execute(sp, rep, loops)
		if res.Delta.X == nil {
			t.Fatalf("tick %d: expected a move delta", tick)
		}
		if !near(*res.Delta.X-sp.X, 10) {
			t.Errorf("tick %d: expected +10, got %v", tick, *res.Delta.X-sp.X)
		}
		sp = res.Delta.Apply(sp)

		wantAdvance := tick == 3
		if res.Advance != wantAdvance {
			t.Errorf("tick %d: expected advance=%v", tick, wantAdvance)
		}
		loops = res.Loops
	}

	if _, ok := loops["r"]; ok {
		t.Error("loop entry should be removed after the last pass")
	}
	if sp.X != 30 {
		t.Errorf("expected x=30, got %v", sp.X)
	}
}

func TestRepeatMidPassStays(t *testing.T) {
	rep := repeatBlock("r", 2,
		block("m", program.MotionMoveSteps, 10.0),
		block("t", program.MotionTurnDegrees, 90.0),
	)
	sp := sprite(0, 0, 90)
	loops := Loops{}

	var advances []bool
	for i := 0; i < 4; i++ {
		res := Execute(sp, rep, loops)
		sp = res.Delta.Apply(sp)
		loops = res.Loops
		advances = append(advances, res.Advance)
	}

	want := []bool{false, false, false, true}
	for i := range want {
		if advances[i] != want[i] {
			t.Errorf("step %d: expected advance=%v, got %v", i, want[i], advances[i])
		}
	}
	if sp.Direction != 270 {
		t.Errorf("expected two turns of 90 from 90, got %v", sp.Direction)
	}
}

func TestRepeatEmptyOrZeroIsSkipped(t *testing.T) {
	for _, rep := range []program.Block{
		repeatBlock("r", 3),
		repeatBlock("r", 0, block("m", program.MotionMoveSteps, 10.0)),
		repeatBlock("r", -1, block("m", program.MotionMoveSteps, 10.0)),
	} {
		res := Execute(sprite(0, 0, 90), rep, Loops{})
		if !res.Advance || !res.Delta.Empty() || len(res.Loops) != 0 {
			t.Errorf("expected skip, got %+v", res)
		}
	}
}

func TestRepeatCountClamped(t *testing.T) {
	tests := []struct {
		name string
		v    float64
		want int
	}{
		{"truncates", 2.7, 2},
		{"below one", 0.5, 0},
		{"huge", 1e20, MaxRepeatCount},
		{"infinite", math.Inf(1), MaxRepeatCount},
		{"negative infinite", math.Inf(-1), 0},
		{"not a number", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := repeatBlock("r", tt.v, block("m", program.MotionMoveSteps, 10.0))
			res := Execute(sprite(0, 0, 90), rep, Loops{})

			if tt.want == 0 {
				if !res.Advance || !res.Delta.Empty() {
					t.Errorf("expected repeat to be skipped, got %+v", res)
				}
				return
			}
			if res.Delta.X == nil || !near(*res.Delta.X, 10) {
				t.Fatalf("expected the first pass to move, got %+v", res.Delta)
			}
			if got := res.Loops["r"].Remaining; got != tt.want-1 {
				t.Errorf("remaining = %d, want %d", got, tt.want-1)
			}
		})
	}
}

func TestRepeatExhaustedEntryIsDropped(t *testing.T) {
	rep := repeatBlock("r", 3, block("m", program.MotionMoveSteps, 10.0))

	res := Execute(sprite(0, 0, 90), rep, Loops{"r": {Remaining: 0}})
	if !res.Advance || !res.Delta.Empty() {
		t.Errorf("expected advance with no delta, got %+v", res)
	}
	if _, ok := res.Loops["r"]; ok {
		t.Error("expected exhausted entry to be removed")
	}
}

func TestNestedRepeatRunsOneLeafPerTick(t *testing.T) {
	inner := repeatBlock("inner", 2, block("m", program.MotionMoveSteps, 10.0))
	outer := repeatBlock("outer", 2, inner, block("t", program.MotionTurnDegrees, 0.0))
	sp := sprite(0, 0, 90)
	loops := Loops{}

	// Each outer pass: inner move x2, then turn. Two passes: 6 ticks.
	ticks := 0
	moves := 0
	for {
		ticks++
		res := Execute(sp, outer, loops)
		if res.Delta.X != nil {
			moves++
		}
		sp = res.Delta.Apply(sp)
		loops = res.Loops
		if res.Advance {
			break
		}
		if ticks > 20 {
			t.Fatal("outer repeat never finished")
		}
	}

	if ticks != 6 {
		t.Errorf("expected 6 ticks, got %d", ticks)
	}
	if moves != 4 || sp.X != 40 {
		t.Errorf("expected 4 moves to x=40, got %d moves to x=%v", moves, sp.X)
	}
	if len(loops) != 0 {
		t.Errorf("expected no loop state left, got %v", loops)
	}
}

func TestExecuteDoesNotModifyInputLoops(t *testing.T) {
	rep := repeatBlock("r", 3, block("m", program.MotionMoveSteps, 10.0))
	loops := Loops{}

	res := Execute(sprite(0, 0, 90), rep, loops)
	if len(loops) != 0 {
		t.Errorf("input loops modified: %v", loops)
	}
	if res.Loops["r"].Remaining != 2 {
		t.Errorf("expected 2 passes remaining, got %+v", res.Loops["r"])
	}
}

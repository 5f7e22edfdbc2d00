// Package tui renders the stage in a terminal and maps keys to run control.
package tui

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/AaronLay10/SentientBlocks/internal/scheduler"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Snapshot is everything one frame of the viewer shows.
type Snapshot struct {
	StageID  string
	Running  bool
	Selected string
	Sprites  []stage.Sprite
	Stats    scheduler.Stats
}

var spriteColors = []tcell.Color{
	tcell.ColorBlue,
	tcell.ColorOrange,
	tcell.ColorGreen,
	tcell.ColorPurple,
	tcell.ColorRed,
}

// Viewer maps stage coordinates (origin at the center, y up) onto screen
// cells. The bottom row is reserved for the status line.
type Viewer struct {
	screen        tcell.Screen
	width, height float64
}

func NewViewer(screen tcell.Screen, stageWidth, stageHeight float64) *Viewer {
	return &Viewer{screen: screen, width: stageWidth, height: stageHeight}
}

// Project returns the cell for a stage point. ok is false when the point
// falls outside the stage area.
func (v *Viewer) Project(x, y float64) (col, row int, ok bool) {
	cols, rows := v.screen.Size()
	rows-- // status line
	if cols <= 0 || rows <= 0 {
		return 0, 0, false
	}

	fx := (x + v.width/2) * float64(cols) / v.width
	fy := (v.height/2 - y) * float64(rows) / v.height
	if fx < 0 || fx >= float64(cols) || fy < 0 || fy >= float64(rows) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

// headingGlyph picks an arrow for a direction in degrees, 90 facing right.
// Moves advance along (dir-90)°, so 0 heads down the screen and 180 up.
func headingGlyph(direction float64) rune {
	arrows := []rune{'↓', '↘', '→', '↗', '↑', '↖', '←', '↙'}
	d := math.Mod(direction, 360)
	if d < 0 {
		d += 360
	}
	return arrows[int(math.Round(d/45))%8]
}

// Draw clears the screen and renders snap.
func (v *Viewer) Draw(snap Snapshot) {
	v.screen.Clear()

	for i, sp := range snap.Sprites {
		col, row, ok := v.Project(sp.X, sp.Y)
		if !ok {
			continue
		}
		style := tcell.StyleDefault.Foreground(spriteColors[i%len(spriteColors)])
		glyph := 'o'
		if sp.Kind != "" {
			glyph = []rune(sp.Kind)[0]
		}
		if sp.ID == snap.Selected {
			glyph = unicode.ToUpper(glyph)
			style = style.Bold(true)
		}
		v.screen.SetContent(col, row, glyph, nil, style)
		v.screen.SetContent(col+1, row, headingGlyph(sp.Direction), nil, style)

		if sp.Message != nil && *sp.Message != "" && row > 0 {
			v.text(col, row-1, *sp.Message, tcell.StyleDefault.Foreground(tcell.ColorWhite))
		}
	}

	v.statusLine(snap)
	v.screen.Show()
}

func (v *Viewer) statusLine(snap Snapshot) {
	cols, rows := v.screen.Size()
	if rows == 0 {
		return
	}
	state := "stopped"
	style := tcell.StyleDefault.Reverse(true)
	if snap.Running {
		state = "running"
		style = style.Foreground(tcell.ColorGreen)
	}
	line := fmt.Sprintf(" %s  %s  sprites=%d ticks=%d collisions=%d   [space] start  [s] stop  [q] quit",
		snap.StageID, state, len(snap.Sprites), snap.Stats.Ticks, snap.Stats.Collisions)
	if pad := cols - len([]rune(line)); pad > 0 {
		line += strings.Repeat(" ", pad)
	}
	v.text(0, rows-1, line, style)
}

func (v *Viewer) text(col, row int, s string, style tcell.Style) {
	cols, _ := v.screen.Size()
	for _, r := range s {
		if col >= cols {
			return
		}
		v.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

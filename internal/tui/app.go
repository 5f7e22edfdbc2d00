package tui

import (
	"context"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/AaronLay10/SentientBlocks/internal/scheduler"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Action is a keyboard command.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionQuit
)

// KeyAction maps a key event to an action.
func KeyAction(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRune:
		switch ev.Rune() {
		case ' ':
			return ActionStart
		case 's', 'S':
			return ActionStop
		case 'q', 'Q':
			return ActionQuit
		}
	}
	return ActionNone
}

// App runs a stage locally: the event loop goroutine owns the store and the
// scheduler, so keys become intents applied at the next frame.
type App struct {
	screen  tcell.Screen
	viewer  *Viewer
	store   *stage.Store
	sched   *scheduler.Scheduler
	queue   *stage.Queue
	stageID string
}

func NewApp(screen tcell.Screen, store *stage.Store, sched *scheduler.Scheduler, stageID string, stageWidth, stageHeight float64) *App {
	return &App{
		screen:  screen,
		viewer:  NewViewer(screen, stageWidth, stageHeight),
		store:   store,
		sched:   sched,
		queue:   stage.NewQueue(),
		stageID: stageID,
	}
}

// Handle applies one terminal event. It returns false when the app should exit.
func (a *App) Handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch KeyAction(ev) {
		case ActionQuit:
			return false
		case ActionStart:
			a.queue.Push(stage.StartRun{})
		case ActionStop:
			a.queue.Push(stage.StopRun{})
		}
	case *tcell.EventResize:
		a.screen.Sync()
	case nil:
		// screen finalized
		return false
	}
	return true
}

// Frame applies queued intents, runs one scheduler frame and redraws.
func (a *App) Frame() {
	a.store.DispatchQueued(a.queue)
	a.sched.Frame()
	a.viewer.Draw(Snapshot{
		StageID:  a.stageID,
		Running:  a.store.Running(),
		Selected: a.store.Selected(),
		Sprites:  a.store.Snapshot(),
		Stats:    a.sched.Stats(),
	})
}

// Run loops until ctx is done or the user quits.
func (a *App) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			eventChan <- ev
			if ev == nil {
				return
			}
		}
	}()

	a.Frame()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-eventChan:
			if !a.Handle(ev) {
				return
			}
		case <-ticker.C:
			a.Frame()
		}
	}
}

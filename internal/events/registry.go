package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// sprite
	"sprite.added":    {},
	"sprite.removed":  {},
	"sprite.selected": {},
	"sprite.updated":  {},

	// block
	"block.added":    {},
	"block.removed":  {},
	"block.repaired": {},

	// collision
	"collision.detected": {},
	"collision.handled":  {},

	// run
	"run.started":   {},
	"run.stopped":   {},
	"run.completed": {},

	// stage
	"stage.rejected":   {},
	"stage.restored":   {},
	"stage.checkpoint": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate returns an error if event is not a known event name.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}

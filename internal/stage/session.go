package stage

import (
	"github.com/oklog/ulid/v2"

	"github.com/AaronLay10/SentientBlocks/internal/events"
)

// TrackSessions tags persisted events with a fresh ULID for every run, so
// one run's events can be selected from the log. A session spans run.started
// through run.stopped and the checkpoint that closes it. Events outside a run
// carry no session.
func TrackSessions(s *Store) {
	s.Observe(func(c Change) {
		if c.RunStarted {
			events.SetSession(ulid.Make().String())
		}
		if c.RunStopped {
			events.SetSession("")
		}
	})
}

package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

var buffer = NewRingBuffer(256)

// Appender persists emitted events. *postgres.Client satisfies it.
type Appender interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error
}

var (
	store        Appender
	storeMu      sync.RWMutex
	storeErrOnce bool
	sessionID    string
)

// SetAppender sets the sink used for event persistence. Pass nil to disable.
func SetAppender(a Appender) {
	storeMu.Lock()
	store = a
	storeErrOnce = false
	storeMu.Unlock()
}

// GetAppender returns the current persistence sink (for API queries).
func GetAppender() Appender {
	storeMu.RLock()
	defer storeMu.RUnlock()
	return store
}

// SetSession tags subsequently persisted events with a run session id.
func SetSession(id string) {
	storeMu.Lock()
	sessionID = id
	storeMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	storeMu.RLock()
	sink := store
	session := sessionID
	storeMu.RUnlock()

	if sink != nil {
		if err := sink.Append(ts, level, name, msg, fields, session); err != nil {
			// Report the first failure only. Added straight to the buffer,
			// not through Emit, so a dead database cannot recurse.
			storeMu.Lock()
			first := !storeErrOnce
			storeErrOnce = true
			storeMu.Unlock()

			if first {
				errEvent := Event{
					Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
					Level:     "error",
					Name:      "system.error",
					Message:   "event append failed",
					Fields: map[string]interface{}{
						"error": err.Error(),
					},
				}
				buffer.Add(errEvent)
				broadcast(errEvent)
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() uint64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}

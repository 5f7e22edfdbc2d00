package mqtt

import (
	"context"
	"encoding/json"
	"log"

	"github.com/AaronLay10/SentientBlocks/internal/events"
)

// Publisher is the part of the MQTT client the state publisher needs.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// StatePublisher mirrors stage events onto MQTT so remote renderers can
// follow sprite state without polling.
type StatePublisher struct {
	client  Publisher
	stageID string
}

// NewStatePublisher creates a publisher for one stage.
func NewStatePublisher(client Publisher, stageID string) *StatePublisher {
	return &StatePublisher{client: client, stageID: stageID}
}

// Run forwards events until ctx is cancelled or the event stream closes.
func (p *StatePublisher) Run(ctx context.Context) {
	sub := events.Subscribe()
	defer events.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if err := p.Forward(e); err != nil {
				log.Printf("mqtt: publish %s failed: %v", e.Name, err)
			}
		}
	}
}

// Forward publishes one event if it is one the bridge mirrors.
// Sprite state is retained so late subscribers see the latest position.
func (p *StatePublisher) Forward(e events.Event) error {
	var topic string
	retained := false

	switch e.Name {
	case "sprite.updated":
		spriteID, _ := e.Fields["sprite_id"].(string)
		if spriteID == "" {
			return nil
		}
		topic = SpriteStateTopic(p.stageID, spriteID)
		retained = true
	case "run.started", "run.stopped", "run.completed":
		topic = RunTopic(p.stageID)
		retained = true
	case "collision.detected":
		topic = CollisionTopic(p.stageID)
	default:
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.client.Publish(topic, payload, retained)
}

package mqtt

import (
	"sync"
	"sync/atomic"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SentientBlocks/internal/events"
	"github.com/AaronLay10/SentientBlocks/internal/stage"
)

// Subscriber is the part of the MQTT client the intent subscriber needs.
type Subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// IntentSubscriber decodes intents published to a stage's intent topic and
// queues them for the frame loop. Subscription is idempotent across reconnects.
type IntentSubscriber struct {
	mu         sync.RWMutex
	client     Subscriber
	queue      *stage.Queue
	stageID    string
	subscribed map[string]bool // topic -> subscribed

	received atomic.Uint64
	rejected atomic.Uint64
}

// NewIntentSubscriber creates a subscriber feeding queue.
func NewIntentSubscriber(client Subscriber, queue *stage.Queue, stageID string) *IntentSubscriber {
	return &IntentSubscriber{
		client:     client,
		queue:      queue,
		stageID:    stageID,
		subscribed: make(map[string]bool),
	}
}

// Subscribe subscribes to the stage intent topic if not already subscribed.
func (s *IntentSubscriber) Subscribe() error {
	topic := IntentTopic(s.stageID)

	s.mu.Lock()
	if s.subscribed[topic] {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.client.Subscribe(topic, s.Handler()); err != nil {
		return err
	}

	s.mu.Lock()
	s.subscribed[topic] = true
	s.mu.Unlock()

	return nil
}

// Handler returns the message handler that decodes and queues intents.
// Undecodable payloads are reported as stage.rejected and dropped.
func (s *IntentSubscriber) Handler() paho.MessageHandler {
	return func(client paho.Client, msg paho.Message) {
		in, err := stage.DecodeIntent(msg.Payload())
		if err != nil {
			s.rejected.Add(1)
			events.Emit("warning", "stage.rejected", err.Error(), map[string]interface{}{
				"topic":  msg.Topic(),
				"source": "mqtt",
			})
			return
		}
		s.received.Add(1)
		s.queue.Push(in)
	}
}

// Received returns the number of intents queued from MQTT.
func (s *IntentSubscriber) Received() uint64 {
	return s.received.Load()
}

// Rejected returns the number of payloads that failed to decode.
func (s *IntentSubscriber) Rejected() uint64 {
	return s.rejected.Load()
}

// IsSubscribed returns true if the topic is already subscribed.
func (s *IntentSubscriber) IsSubscribed(topic string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscribed[topic]
}

// ClearSubscriptions clears the subscription tracking.
// Call this on disconnect to allow re-subscription on reconnect.
func (s *IntentSubscriber) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribed = make(map[string]bool)
}

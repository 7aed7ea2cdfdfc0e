package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event kinds published on the message lifecycle.
const (
	KindMessageSent = "message.sent"
	KindMessageRead = "message.read"
)

// Event is a broker-agnostic domain event describing a message transition.
// Bodies are never included; consumers that need content must fetch it over
// the API with their own credentials.
type Event struct {
	Kind         string    `json:"kind"`
	MessageID    int64     `json:"message_id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	At           time.Time `json:"at"`
}

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Publisher wraps a backend with a stable, typed API.
type Publisher struct {
	backend Backend
	topic   string
}

// NewPublisher constructs a Publisher for the provided backend and topic.
func NewPublisher(backend Backend, topic string) *Publisher {
	return &Publisher{backend: backend, topic: topic}
}

// Publish serializes the event and sends it to the configured topic.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.backend.Publish(ctx, p.topic, data, map[string]string{"kind": event.Kind})
	return err
}

// Close closes the underlying backend.
func (p *Publisher) Close() error {
	return p.backend.Close()
}

// NopBackend discards every event. Used when no broker is configured.
type NopBackend struct{}

func (NopBackend) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	return "", nil
}

func (NopBackend) Close() error { return nil }

// Package broadcast publishes fire-and-forget mutation events to downstream consumers.
package broadcast

import (
	"context"
	"encoding/json"
	"errors"
)

// Broadcaster sends an event to every interested consumer.
// A nil error means the event was handed to the transport, not that anyone received it.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, env Envelope) error
}

// Envelope wraps an event body on the wire.
type Envelope struct {
	ID   string `json:"id,omitempty"`
	Body any    `json:"body"`
}

// Message is a received event.
type Message struct {
	Event   string
	Subject string
	ID      string
	Body    json.RawMessage
}

// Decode unmarshals the message body into v.
func (m *Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return ErrEmptyBody
	}
	return json.Unmarshal(m.Body, v)
}

// Handler processes one received event.
type Handler func(ctx context.Context, msg *Message) error

var (
	// ErrEmptyBody indicates an envelope without a body.
	ErrEmptyBody = errors.New("envelope has no body")

	// ErrClosed indicates the broadcaster has been closed.
	ErrClosed = errors.New("broadcaster closed")
)

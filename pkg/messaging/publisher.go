// Package messaging defines the event publishing contract shared by transports.
package messaging

import (
	"context"
)

// Event is a message that can be published to a subject.
type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

// Publisher publishes events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher discards every event. It is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }

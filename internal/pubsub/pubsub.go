// Package pubsub provides a generic publish/subscribe event system.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// RequestServedEvent is published after a gateway request has been
	// fully processed, successfully or not.
	RequestServedEvent EventType = "request_served"
	// AttributeReadEvent is published when an attribute value has been
	// fetched from a backend registry.
	AttributeReadEvent EventType = "attribute_read"
	// AttributeWrittenEvent is published when an attribute has been mutated.
	AttributeWrittenEvent EventType = "attribute_written"
	// LogEntryEvent carries a formatted log line.
	LogEntryEvent EventType = "log_entry"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}

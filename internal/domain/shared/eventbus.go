package shared

import "context"

// EventHandler processes a single domain event.
// Handlers run after the originating transaction has committed; they must not
// assume they share a transaction with the mutation that produced the event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher publishes domain events to interested handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber registers handlers for event types
type EventSubscriber interface {
	Subscribe(handler EventHandler)
}

// EventBus combines publishing and subscribing
type EventBus interface {
	EventPublisher
	EventSubscriber
}

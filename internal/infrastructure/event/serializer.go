package event

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
)

// EventSerializer reconstructs domain events from their stored JSON payloads.
// Every event type that flows through the outbox must be registered here,
// otherwise its entries cannot be dispatched.
type EventSerializer struct {
	mu        sync.RWMutex
	factories map[string]func() shared.DomainEvent
}

// NewEventSerializer creates a serializer with all procurement events registered
func NewEventSerializer() *EventSerializer {
	s := &EventSerializer{
		factories: make(map[string]func() shared.DomainEvent),
	}
	s.registerProcurementEvents()
	return s
}

// Register adds a factory for an event type
func (s *EventSerializer) Register(eventType string, factory func() shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factories[eventType] = factory
}

// Serialize encodes a domain event to JSON
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event %s: %w", event.EventType(), err)
	}
	return payload, nil
}

// Deserialize decodes a stored payload into the concrete event type
func (s *EventSerializer) Deserialize(eventType string, payload []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	factory, ok := s.factories[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no factory registered for event type %q", eventType)
	}

	event := factory()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to deserialize event %s: %w", eventType, err)
	}
	return event, nil
}

func (s *EventSerializer) registerProcurementEvents() {
	s.factories[procurement.EventTypePurchaseOrderCreated] = func() shared.DomainEvent { return &procurement.PurchaseOrderCreatedEvent{} }
	s.factories[procurement.EventTypePurchaseOrderApproved] = func() shared.DomainEvent { return &procurement.PurchaseOrderApprovedEvent{} }
	s.factories[procurement.EventTypePurchaseOrderSent] = func() shared.DomainEvent { return &procurement.PurchaseOrderSentEvent{} }
	s.factories[procurement.EventTypePurchaseOrderCancelled] = func() shared.DomainEvent { return &procurement.PurchaseOrderCancelledEvent{} }
	s.factories[procurement.EventTypePurchaseOrderFullyReceived] = func() shared.DomainEvent { return &procurement.PurchaseOrderFullyReceivedEvent{} }
	s.factories[procurement.EventTypeReceptionLineAdded] = func() shared.DomainEvent { return &procurement.ReceptionLineAddedEvent{} }
	s.factories[procurement.EventTypeReceptionLineUpdated] = func() shared.DomainEvent { return &procurement.ReceptionLineUpdatedEvent{} }
	s.factories[procurement.EventTypeReceptionLineRemoved] = func() shared.DomainEvent { return &procurement.ReceptionLineRemovedEvent{} }
	s.factories[procurement.EventTypeReceptionCancelled] = func() shared.DomainEvent { return &procurement.ReceptionCancelledEvent{} }
	s.factories[procurement.EventTypeSupplierInvoicePaid] = func() shared.DomainEvent { return &procurement.SupplierInvoicePaidEvent{} }
}

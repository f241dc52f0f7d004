package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus represents the status of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
	OutboxStatusFailed  OutboxStatus = "FAILED"
)

// OutboxEntry represents a domain event stored alongside the aggregate it came
// from, in the same transaction. A post-commit dispatcher delivers pending
// entries to the audit/notification collaborators.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte
	Status        OutboxStatus
	LastError     string
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOutboxEntry creates a new outbox entry for a domain event
func NewOutboxEntry(tenantID uuid.UUID, event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      tenantID,
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// MarkSent marks the entry as successfully delivered
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed records a delivery failure
func (e *OutboxEntry) MarkFailed(reason string) {
	e.Status = OutboxStatusFailed
	e.LastError = reason
	e.UpdatedAt = time.Now()
}

// OutboxEventSaver persists domain events to the outbox within the caller's transaction
type OutboxEventSaver interface {
	SaveEvents(ctx context.Context, tenantID uuid.UUID, events []DomainEvent) error
}

// OutboxRepository provides access to stored outbox entries
type OutboxRepository interface {
	OutboxEventSaver
	FindPending(ctx context.Context, limit int) ([]OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
}

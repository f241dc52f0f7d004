package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OutboxModel is the persistence model for outbox entries
type OutboxModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID           `gorm:"type:uuid;not null;index"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string              `gorm:"type:varchar(100);not null"`
	AggregateID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	AggregateType string              `gorm:"type:varchar(50);not null"`
	Payload       []byte              `gorm:"type:jsonb;not null"`
	Status        shared.OutboxStatus `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	LastError     string              `gorm:"type:text"`
	ProcessedAt   *time.Time
	CreatedAt     time.Time `gorm:"not null;index"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OutboxModel) TableName() string {
	return "outbox_events"
}

func (m *OutboxModel) toDomain() shared.OutboxEntry {
	return shared.OutboxEntry{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EventID:       m.EventID,
		EventType:     m.EventType,
		AggregateID:   m.AggregateID,
		AggregateType: m.AggregateType,
		Payload:       m.Payload,
		Status:        m.Status,
		LastError:     m.LastError,
		ProcessedAt:   m.ProcessedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func outboxModelFromEntry(entry *shared.OutboxEntry) *OutboxModel {
	return &OutboxModel{
		ID:            entry.ID,
		TenantID:      entry.TenantID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Payload:       entry.Payload,
		Status:        entry.Status,
		LastError:     entry.LastError,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}

// saveEventsToOutbox serializes domain events and inserts them using the given
// handle. Callers inside a transaction pass their tx so the entries commit or
// roll back with the aggregate.
func saveEventsToOutbox(tx *gorm.DB, events []shared.DomainEvent) error {
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("failed to serialize event %s: %w", event.EventType(), err)
		}
		entry := shared.NewOutboxEntry(event.TenantID(), event, payload)
		if err := tx.Create(outboxModelFromEntry(entry)).Error; err != nil {
			return fmt.Errorf("failed to save event %s to outbox: %w", event.EventType(), err)
		}
	}
	return nil
}

// GormOutboxRepository implements shared.OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GormOutboxRepository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// SaveEvents persists domain events as pending outbox entries
func (r *GormOutboxRepository) SaveEvents(ctx context.Context, tenantID uuid.UUID, events []shared.DomainEvent) error {
	_ = tenantID // each event carries its own tenant
	return saveEventsToOutbox(r.db.WithContext(ctx), events)
}

// FindPending retrieves pending entries oldest first
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]shared.OutboxEntry, error) {
	var outboxModels []OutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&outboxModels).Error; err != nil {
		return nil, err
	}
	entries := make([]shared.OutboxEntry, len(outboxModels))
	for i := range outboxModels {
		entries[i] = outboxModels[i].toDomain()
	}
	return entries, nil
}

// Update persists delivery status changes on an entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	result := r.db.WithContext(ctx).
		Model(&OutboxModel{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"status":       entry.Status,
			"last_error":   entry.LastError,
			"processed_at": entry.ProcessedAt,
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormOutboxRepository implements OutboxRepository
var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)

package stock

import (
	"context"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LevelKey identifies a stock level: one product (optionally a variant) at one location
type LevelKey struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Location  Location
}

// LedgerRepository defines the interface for ledger entry persistence.
// The ledger is append-only: there is deliberately no Update or Delete.
type LedgerRepository interface {
	// Append inserts an immutable entry. Runs inside the caller's transaction
	// when obtained through a transaction scope.
	Append(ctx context.Context, entry *LedgerEntry) error

	// FindByID finds a ledger entry by ID within a tenant
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*LedgerEntry, error)

	// FindByDocumentLine finds the entries recorded for a document line,
	// oldest first
	FindByDocumentLine(ctx context.Context, tenantID, documentLineID uuid.UUID) ([]LedgerEntry, error)

	// FindAllForTenant lists ledger entries with filtering and pagination
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]LedgerEntry, error)

	// CountForTenant counts ledger entries for a tenant
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error)

	// SumDeltas returns the signed sum of deltas for the key; 0 when no rows
	// exist. Within a transaction scope the sum reflects entries appended
	// earlier in the same transaction.
	SumDeltas(ctx context.Context, tenantID uuid.UUID, key LevelKey) (decimal.Decimal, error)

	// HasEntriesForDocument reports whether any entry references the document
	HasEntriesForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error)
}

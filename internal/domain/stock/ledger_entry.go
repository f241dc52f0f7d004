package stock

import (
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType represents the type of stock movement behind a ledger entry
type MovementType string

const (
	// MovementTypeReceptionIn represents goods entering stock from a purchase reception
	MovementTypeReceptionIn MovementType = "RECEPTION_IN"
	// MovementTypeManualAdjustment represents a manual stock correction
	MovementTypeManualAdjustment MovementType = "MANUAL_ADJUSTMENT"
	// MovementTypeReversal represents the compensating entry for a prior movement
	MovementTypeReversal MovementType = "REVERSAL"
	// MovementTypeInitialStock represents opening stock setup
	MovementTypeInitialStock MovementType = "INITIAL_STOCK"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceptionIn,
		MovementTypeManualAdjustment,
		MovementTypeReversal,
		MovementTypeInitialStock:
		return true
	}
	return false
}

// DocumentType identifies the kind of document a ledger entry originates from
type DocumentType string

const (
	DocumentTypeReception DocumentType = "RECEPTION"
	DocumentTypeManual    DocumentType = "MANUAL"
)

// Location identifies where stock physically sits. Exactly one of Warehouse
// or Shop must be set; an entry with both or neither is rejected.
type Location struct {
	WarehouseID *uuid.UUID `gorm:"type:uuid;index"`
	ShopID      *uuid.UUID `gorm:"type:uuid;index"`
}

// WarehouseLocation builds a warehouse-backed location
func WarehouseLocation(warehouseID uuid.UUID) Location {
	return Location{WarehouseID: &warehouseID}
}

// ShopLocation builds a shop-backed location
func ShopLocation(shopID uuid.UUID) Location {
	return Location{ShopID: &shopID}
}

// Validate checks the warehouse-XOR-shop discriminator
func (l Location) Validate() error {
	hasWarehouse := l.WarehouseID != nil && *l.WarehouseID != uuid.Nil
	hasShop := l.ShopID != nil && *l.ShopID != uuid.Nil
	if hasWarehouse == hasShop {
		return shared.ErrInvalidLocation
	}
	return nil
}

// Equals returns true if both locations point at the same place
func (l Location) Equals(other Location) bool {
	switch {
	case l.WarehouseID != nil && other.WarehouseID != nil:
		return *l.WarehouseID == *other.WarehouseID
	case l.ShopID != nil && other.ShopID != nil:
		return *l.ShopID == *other.ShopID
	}
	return false
}

// LedgerEntry is an immutable record of a stock quantity change.
// Entries are never updated or deleted; corrections are made by appending an
// offsetting entry that back-references the original via ReversedEntryID.
// Current stock for a (product, variant, location) key is the sum of deltas.
type LedgerEntry struct {
	shared.BaseEntity
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_tenant_time,priority:1"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_ledger_product"`
	VariantID       *uuid.UUID      `gorm:"type:uuid;index:idx_ledger_product"`
	Location        Location        `gorm:"embedded"`
	QuantityDelta   decimal.Decimal `gorm:"type:decimal(18,4);not null"` // signed, never zero
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,4);not null"` // cost per unit at time of movement
	MovementType    MovementType    `gorm:"type:varchar(30);not null;index"`
	DocumentType    DocumentType    `gorm:"type:varchar(30);not null"`
	DocumentID      *uuid.UUID      `gorm:"type:uuid;index"`
	DocumentLineID  *uuid.UUID      `gorm:"type:uuid;index"`
	ReversedEntryID *uuid.UUID      `gorm:"type:uuid;index"` // set on REVERSAL entries
	Reason          string          `gorm:"type:varchar(255)"`
	MovedAt         time.Time       `gorm:"type:timestamptz;not null;index:idx_ledger_tenant_time,priority:2"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// NewLedgerEntry creates a new ledger entry
func NewLedgerEntry(
	tenantID uuid.UUID,
	productID uuid.UUID,
	variantID *uuid.UUID,
	location Location,
	quantityDelta decimal.Decimal,
	unitCost decimal.Decimal,
	movementType MovementType,
	documentType DocumentType,
) (*LedgerEntry, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Tenant ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if quantityDelta.IsZero() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Quantity delta cannot be zero")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit cost cannot be negative")
	}
	if !movementType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid movement type")
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}

	return &LedgerEntry{
		BaseEntity:    shared.NewBaseEntity(),
		TenantID:      tenantID,
		ProductID:     productID,
		VariantID:     variantID,
		Location:      location,
		QuantityDelta: quantityDelta,
		UnitCost:      unitCost,
		MovementType:  movementType,
		DocumentType:  documentType,
		MovedAt:       time.Now(),
	}, nil
}

// WithDocument links the entry to its originating document and line
func (e *LedgerEntry) WithDocument(documentID, documentLineID uuid.UUID) *LedgerEntry {
	e.DocumentID = &documentID
	e.DocumentLineID = &documentLineID
	return e
}

// WithReason sets a free-form reason for the movement
func (e *LedgerEntry) WithReason(reason string) *LedgerEntry {
	e.Reason = reason
	return e
}

// Reversal builds the compensating entry for this one: same key, negated
// delta, back-reference to the original. The original is left untouched.
func (e *LedgerEntry) Reversal(reason string) *LedgerEntry {
	rev := &LedgerEntry{
		BaseEntity:      shared.NewBaseEntity(),
		TenantID:        e.TenantID,
		ProductID:       e.ProductID,
		VariantID:       e.VariantID,
		Location:        e.Location,
		QuantityDelta:   e.QuantityDelta.Neg(),
		UnitCost:        e.UnitCost,
		MovementType:    MovementTypeReversal,
		DocumentType:    e.DocumentType,
		DocumentID:      e.DocumentID,
		DocumentLineID:  e.DocumentLineID,
		ReversedEntryID: &e.ID,
		Reason:          reason,
		MovedAt:         time.Now(),
	}
	return rev
}

// IsInbound returns true if the entry increases stock
func (e *LedgerEntry) IsInbound() bool {
	return e.QuantityDelta.IsPositive()
}

// TotalCost returns the absolute cost of the movement
func (e *LedgerEntry) TotalCost() decimal.Decimal {
	return e.QuantityDelta.Abs().Mul(e.UnitCost)
}

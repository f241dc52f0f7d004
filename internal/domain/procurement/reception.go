package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceptionStatus represents the status of a goods reception
type ReceptionStatus string

const (
	ReceptionStatusPendingQualityCheck ReceptionStatus = "PENDING_QUALITY_CHECK"
	ReceptionStatusPartial             ReceptionStatus = "PARTIAL"
	ReceptionStatusComplete            ReceptionStatus = "COMPLETE"
	ReceptionStatusCancelled           ReceptionStatus = "CANCELLED"
)

// IsValid checks if the status is a valid ReceptionStatus
func (s ReceptionStatus) IsValid() bool {
	switch s {
	case ReceptionStatusPendingQualityCheck, ReceptionStatusPartial,
		ReceptionStatusComplete, ReceptionStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReceptionStatus
func (s ReceptionStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ReceptionStatus) CanTransitionTo(target ReceptionStatus) bool {
	switch s {
	case ReceptionStatusPendingQualityCheck:
		return target == ReceptionStatusPartial || target == ReceptionStatusComplete || target == ReceptionStatusCancelled
	case ReceptionStatusPartial:
		return target == ReceptionStatusPartial || target == ReceptionStatusComplete || target == ReceptionStatusCancelled
	case ReceptionStatusComplete, ReceptionStatusCancelled:
		return false // terminal
	}
	return false
}

// IsMutable returns true if lines may be added, edited or removed
func (s ReceptionStatus) IsMutable() bool {
	return s == ReceptionStatusPendingQualityCheck || s == ReceptionStatusPartial
}

// ReceptionLine represents one recorded receipt of physical goods.
// Product and variant identity are immutable after creation; quantity and lot
// metadata may change while the parent reception is mutable. Removed lines are
// kept but flagged inactive so the ledger trail stays intact.
type ReceptionLine struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key"`
	ReceptionID uuid.UUID        `gorm:"type:uuid;not null;index"`
	OrderLineID *uuid.UUID       `gorm:"type:uuid;index"` // nil for receptions not tied to an order
	ProductID   uuid.UUID        `gorm:"type:uuid;not null"`
	VariantID   *uuid.UUID       `gorm:"type:uuid"`
	Quantity    decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	LotNumber   string           `gorm:"type:varchar(100)"`
	ExpiryDate  *time.Time
	Active      bool             `gorm:"not null;default:true;index"`
	CreatedAt   time.Time        `gorm:"not null"`
	UpdatedAt   time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReceptionLine) TableName() string {
	return "reception_lines"
}

// NewReceptionLine creates a new active reception line
func NewReceptionLine(receptionID, productID uuid.UUID, variantID, orderLineID *uuid.UUID, quantity, unitCost decimal.Decimal) (*ReceptionLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Received quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit cost cannot be negative")
	}

	now := time.Now()
	return &ReceptionLine{
		ID:          uuid.New(),
		ReceptionID: receptionID,
		OrderLineID: orderLineID,
		ProductID:   productID,
		VariantID:   variantID,
		Quantity:    quantity,
		UnitCost:    unitCost,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// SetLot sets lot/expiry metadata
func (l *ReceptionLine) SetLot(lotNumber string, expiryDate *time.Time) {
	l.LotNumber = lotNumber
	l.ExpiryDate = expiryDate
	l.UpdatedAt = time.Now()
}

// UpdateQuantity changes the received quantity
func (l *ReceptionLine) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Received quantity must be positive")
	}
	l.Quantity = quantity
	l.UpdatedAt = time.Now()
	return nil
}

// Deactivate flags the line as removed
func (l *ReceptionLine) Deactivate() {
	l.Active = false
	l.UpdatedAt = time.Now()
}

// MatchesTriple reports whether the line covers the same
// (product, variant, order line) triple
func (l *ReceptionLine) MatchesTriple(productID uuid.UUID, variantID, orderLineID *uuid.UUID) bool {
	if l.ProductID != productID {
		return false
	}
	if !uuidPtrEqual(l.VariantID, variantID) {
		return false
	}
	return uuidPtrEqual(l.OrderLineID, orderLineID)
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil && b == nil {
		return true
	}
	if a != nil && b != nil {
		return *a == *b
	}
	return false
}

// Reception represents a goods reception aggregate root.
// A reception may be linked to one purchase order or stand alone; its lines
// drive the order lines' received quantities and the stock ledger.
type Reception struct {
	shared.TenantAggregateRoot
	ReceptionNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_reception_tenant_number,priority:2"`
	OrderID         *uuid.UUID      `gorm:"type:uuid;index"` // nil for order-less receptions
	SupplierID      *uuid.UUID      `gorm:"type:uuid;index"`
	Location        stock.Location  `gorm:"embedded"`
	Lines           []ReceptionLine `gorm:"foreignKey:ReceptionID;references:ID"`
	Status          ReceptionStatus `gorm:"type:varchar(30);not null;default:'PENDING_QUALITY_CHECK'"`
	Remark          string          `gorm:"type:text"`
	CompletedAt     *time.Time
	CancelledAt     *time.Time
}

// TableName returns the table name for GORM
func (Reception) TableName() string {
	return "receptions"
}

// NewReception creates a new reception in PENDING_QUALITY_CHECK status
func NewReception(tenantID uuid.UUID, receptionNumber string, orderID, supplierID *uuid.UUID, location stock.Location) (*Reception, error) {
	if receptionNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Reception number cannot be empty")
	}
	if err := location.Validate(); err != nil {
		return nil, err
	}

	return &Reception{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ReceptionNumber:     receptionNumber,
		OrderID:             orderID,
		SupplierID:          supplierID,
		Location:            location,
		Lines:               make([]ReceptionLine, 0),
		Status:              ReceptionStatusPendingQualityCheck,
	}, nil
}

// IsMutable returns true if lines may currently be changed
func (r *Reception) IsMutable() bool {
	return r.Status.IsMutable()
}

// IsOrderLinked returns true if the reception is tied to a purchase order
func (r *Reception) IsOrderLinked() bool {
	return r.OrderID != nil
}

// ActiveLines returns the active lines only
func (r *Reception) ActiveLines() []ReceptionLine {
	lines := make([]ReceptionLine, 0, len(r.Lines))
	for _, line := range r.Lines {
		if line.Active {
			lines = append(lines, line)
		}
	}
	return lines
}

// FindActiveLineByTriple returns the active line for the triple, or nil
func (r *Reception) FindActiveLineByTriple(productID uuid.UUID, variantID, orderLineID *uuid.UUID) *ReceptionLine {
	for idx := range r.Lines {
		if r.Lines[idx].Active && r.Lines[idx].MatchesTriple(productID, variantID, orderLineID) {
			return &r.Lines[idx]
		}
	}
	return nil
}

// GetLine returns a line (active or not) by its ID
func (r *Reception) GetLine(lineID uuid.UUID) *ReceptionLine {
	for idx := range r.Lines {
		if r.Lines[idx].ID == lineID {
			return &r.Lines[idx]
		}
	}
	return nil
}

// AddLine appends an active reception line. A second active line for the same
// (product, variant, order line) triple is rejected: duplicates must
// accumulate into the existing line instead.
func (r *Reception) AddLine(productID uuid.UUID, variantID, orderLineID *uuid.UUID, quantity, unitCost decimal.Decimal) (*ReceptionLine, error) {
	if !r.IsMutable() {
		return nil, shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot add lines to a %s reception", r.Status))
	}
	if existing := r.FindActiveLineByTriple(productID, variantID, orderLineID); existing != nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An active line for this product already exists on the reception, update it instead")
	}

	line, err := NewReceptionLine(r.ID, productID, variantID, orderLineID, quantity, unitCost)
	if err != nil {
		return nil, err
	}

	r.Lines = append(r.Lines, *line)
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return line, nil
}

// UpdateLineQuantity changes an active line's quantity and returns the signed
// delta between the new and old values.
func (r *Reception) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) (decimal.Decimal, error) {
	if !r.IsMutable() {
		return decimal.Zero, shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot edit lines of a %s reception", r.Status))
	}

	for idx := range r.Lines {
		if r.Lines[idx].ID == lineID {
			if !r.Lines[idx].Active {
				return decimal.Zero, shared.NewDomainError("NOT_FOUND", "Reception line has been removed")
			}
			delta := quantity.Sub(r.Lines[idx].Quantity)
			if err := r.Lines[idx].UpdateQuantity(quantity); err != nil {
				return decimal.Zero, err
			}
			r.UpdatedAt = time.Now()
			r.IncrementVersion()
			return delta, nil
		}
	}

	return decimal.Zero, shared.NewDomainError("NOT_FOUND", "Reception line not found")
}

// RemoveLine deactivates a line and returns its quantity so the caller can
// reverse the order line increment and the ledger entry.
func (r *Reception) RemoveLine(lineID uuid.UUID) (*ReceptionLine, error) {
	if !r.IsMutable() {
		return nil, shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot remove lines from a %s reception", r.Status))
	}

	for idx := range r.Lines {
		if r.Lines[idx].ID == lineID {
			if !r.Lines[idx].Active {
				return nil, shared.NewDomainError("NOT_FOUND", "Reception line has already been removed")
			}
			r.Lines[idx].Deactivate()
			r.UpdatedAt = time.Now()
			r.IncrementVersion()
			return &r.Lines[idx], nil
		}
	}

	return nil, shared.NewDomainError("NOT_FOUND", "Reception line not found")
}

// RecalculateStatus derives the reception status from its active lines and the
// linked order's fulfilment. Order-less receptions stay PARTIAL until
// explicitly completed.
func (r *Reception) RecalculateStatus(orderFullyReceived bool) {
	if !r.IsMutable() {
		return
	}

	if len(r.ActiveLines()) == 0 {
		r.Status = ReceptionStatusPendingQualityCheck
		return
	}

	if r.IsOrderLinked() && orderFullyReceived {
		r.complete()
		return
	}

	r.Status = ReceptionStatusPartial
	r.UpdatedAt = time.Now()
}

// Complete explicitly flags the reception as complete
func (r *Reception) Complete() error {
	if !r.Status.CanTransitionTo(ReceptionStatusComplete) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot complete reception in %s status", r.Status))
	}
	if len(r.ActiveLines()) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Cannot complete reception without lines")
	}
	r.complete()
	return nil
}

func (r *Reception) complete() {
	now := time.Now()
	r.Status = ReceptionStatusComplete
	r.CompletedAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()
}

// Cancel cancels the reception. The service reverses all its stock and
// received-quantity effects in the same transaction.
func (r *Reception) Cancel() error {
	if !r.Status.CanTransitionTo(ReceptionStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot cancel reception in %s status", r.Status))
	}

	now := time.Now()
	r.Status = ReceptionStatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	r.IncrementVersion()

	return nil
}

// TotalReceivedQuantity sums the active line quantities
func (r *Reception) TotalReceivedQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		if line.Active {
			total = total.Add(line.Quantity)
		}
	}
	return total
}

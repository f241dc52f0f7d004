package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus represents the status of a purchase order
type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft             PurchaseOrderStatus = "DRAFT"
	PurchaseOrderStatusPendingApproval   PurchaseOrderStatus = "PENDING_APPROVAL"
	PurchaseOrderStatusApproved          PurchaseOrderStatus = "APPROVED"
	PurchaseOrderStatusSentToSupplier    PurchaseOrderStatus = "SENT_TO_SUPPLIER"
	PurchaseOrderStatusPartiallyReceived PurchaseOrderStatus = "PARTIALLY_RECEIVED"
	PurchaseOrderStatusFullyReceived     PurchaseOrderStatus = "FULLY_RECEIVED"
	PurchaseOrderStatusCancelled         PurchaseOrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid PurchaseOrderStatus
func (s PurchaseOrderStatus) IsValid() bool {
	switch s {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusPendingApproval, PurchaseOrderStatusApproved,
		PurchaseOrderStatusSentToSupplier, PurchaseOrderStatusPartiallyReceived,
		PurchaseOrderStatusFullyReceived, PurchaseOrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PurchaseOrderStatus
func (s PurchaseOrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Terminal states allow only idempotent re-application of themselves.
func (s PurchaseOrderStatus) CanTransitionTo(target PurchaseOrderStatus) bool {
	switch s {
	case PurchaseOrderStatusDraft:
		return target == PurchaseOrderStatusPendingApproval || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusPendingApproval:
		return target == PurchaseOrderStatusApproved || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusApproved:
		return target == PurchaseOrderStatusSentToSupplier || target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusSentToSupplier:
		return target == PurchaseOrderStatusPartiallyReceived ||
			target == PurchaseOrderStatusFullyReceived ||
			target == PurchaseOrderStatusCancelled
	case PurchaseOrderStatusPartiallyReceived:
		return target == PurchaseOrderStatusPartiallyReceived ||
			target == PurchaseOrderStatusFullyReceived ||
			target == PurchaseOrderStatusSentToSupplier
	case PurchaseOrderStatusFullyReceived:
		// Receipt reversal may pull a fully received order back to partial
		return target == PurchaseOrderStatusFullyReceived ||
			target == PurchaseOrderStatusPartiallyReceived ||
			target == PurchaseOrderStatusSentToSupplier
	case PurchaseOrderStatusCancelled:
		return target == PurchaseOrderStatusCancelled
	}
	return false
}

// CanReceive returns true if receiving goods is allowed in this status
func (s PurchaseOrderStatus) CanReceive() bool {
	return s == PurchaseOrderStatusSentToSupplier ||
		s == PurchaseOrderStatusPartiallyReceived ||
		s == PurchaseOrderStatusFullyReceived
}

// IsTerminal returns true for statuses that accept no caller-driven transition
func (s PurchaseOrderStatus) IsTerminal() bool {
	return s == PurchaseOrderStatusFullyReceived || s == PurchaseOrderStatusCancelled
}

// OrderLine represents a line item on a purchase order.
// ReceivedQuantity is a cached counter maintained by ApplyReceipt; the
// authoritative value is the sum of active reception line quantities, and
// every write cross-checks the two.
type OrderLine struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID        uuid.UUID        `gorm:"type:uuid;not null"`
	VariantID        *uuid.UUID       `gorm:"type:uuid"`
	OrderedQuantity  decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitPrice        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	VatRate          *decimal.Decimal `gorm:"type:decimal(8,4)"` // percentage, nil = no VAT
	Remark           string           `gorm:"type:varchar(500)"`
	CreatedAt        time.Time        `gorm:"not null"`
	UpdatedAt        time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "purchase_order_lines"
}

// NewOrderLine creates a new order line
func NewOrderLine(orderID, productID uuid.UUID, variantID *uuid.UUID, quantity, unitPrice decimal.Decimal, vatRate *decimal.Decimal) (*OrderLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Ordered quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit price cannot be negative")
	}
	if vatRate != nil && vatRate.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "VAT rate cannot be negative")
	}

	now := time.Now()
	return &OrderLine{
		ID:               uuid.New(),
		OrderID:          orderID,
		ProductID:        productID,
		VariantID:        variantID,
		OrderedQuantity:  quantity,
		ReceivedQuantity: decimal.Zero,
		UnitPrice:        unitPrice,
		VatRate:          vatRate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// UpdateQuantity updates the ordered quantity
func (l *OrderLine) UpdateQuantity(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Ordered quantity must be positive")
	}
	if quantity.LessThan(l.ReceivedQuantity) {
		return shared.NewDomainError("VALIDATION_ERROR", "Ordered quantity cannot be less than received quantity")
	}
	l.OrderedQuantity = quantity
	l.UpdatedAt = time.Now()
	return nil
}

// UpdateUnitPrice updates the unit price
func (l *OrderLine) UpdateUnitPrice(unitPrice decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Unit price cannot be negative")
	}
	l.UnitPrice = unitPrice
	l.UpdatedAt = time.Now()
	return nil
}

// RemainingQuantity returns the quantity still to be received
func (l *OrderLine) RemainingQuantity() decimal.Decimal {
	remaining := l.OrderedQuantity.Sub(l.ReceivedQuantity)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// IsFullyReceived returns true if all ordered quantity has been received
func (l *OrderLine) IsFullyReceived() bool {
	return l.ReceivedQuantity.GreaterThanOrEqual(l.OrderedQuantity)
}

// MatchesVariant returns true if the line is for the given variant (both nil counts)
func (l *OrderLine) MatchesVariant(variantID *uuid.UUID) bool {
	if l.VariantID == nil && variantID == nil {
		return true
	}
	if l.VariantID != nil && variantID != nil {
		return *l.VariantID == *variantID
	}
	return false
}

// applyReceipt adds the signed delta to the received quantity, guarding the
// 0 <= received <= ordered + tolerance invariant.
func (l *OrderLine) applyReceipt(delta, tolerance decimal.Decimal) error {
	newReceived := l.ReceivedQuantity.Add(delta)
	if newReceived.IsNegative() {
		return shared.NewDomainError("VALIDATION_ERROR", "Received quantity cannot become negative")
	}
	if newReceived.GreaterThan(l.OrderedQuantity.Add(tolerance)) {
		return shared.NewDomainError("OVER_RECEIPT",
			fmt.Sprintf("Cannot receive %s, only %s remaining on line", delta.String(), l.RemainingQuantity().String()))
	}
	l.ReceivedQuantity = newReceived
	l.UpdatedAt = time.Now()
	return nil
}

// PurchaseOrder represents a purchase order aggregate root.
// It manages the lifecycle of a supplier order from draft through approval,
// dispatch and receipt of goods.
type PurchaseOrder struct {
	shared.TenantAggregateRoot
	OrderNumber  string              `gorm:"type:varchar(50);not null;uniqueIndex:idx_purchase_order_tenant_number,priority:2"`
	SupplierID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	WarehouseID  *uuid.UUID          `gorm:"type:uuid;index"` // default receiving warehouse
	Lines        []OrderLine         `gorm:"foreignKey:OrderID;references:ID"`
	Status       PurchaseOrderStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	TotalHT      decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TotalVAT     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTTC     decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Remark       string              `gorm:"type:text"`
	ApprovedBy   *uuid.UUID          `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	SentAt       *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// NewPurchaseOrder creates a new purchase order in DRAFT status
func NewPurchaseOrder(tenantID uuid.UUID, orderNumber string, supplierID uuid.UUID) (*PurchaseOrder, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Order number cannot be empty")
	}
	if len(orderNumber) > 50 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Order number cannot exceed 50 characters")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Supplier ID cannot be empty")
	}

	order := &PurchaseOrder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		OrderNumber:         orderNumber,
		SupplierID:          supplierID,
		Lines:               make([]OrderLine, 0),
		Status:              PurchaseOrderStatusDraft,
		TotalHT:             decimal.Zero,
		TotalVAT:            decimal.Zero,
		TotalTTC:            decimal.Zero,
	}

	order.AddDomainEvent(NewPurchaseOrderCreatedEvent(order))

	return order, nil
}

// AddLine adds a new line to the order. Only allowed in DRAFT status.
func (o *PurchaseOrder) AddLine(productID uuid.UUID, variantID *uuid.UUID, quantity, unitPrice decimal.Decimal, vatRate *decimal.Decimal) (*OrderLine, error) {
	if o.Status != PurchaseOrderStatusDraft {
		return nil, shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot add lines to a non-draft order")
	}

	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID && o.Lines[idx].MatchesVariant(variantID) {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Product already on order, update the existing line instead")
		}
	}

	line, err := NewOrderLine(o.ID, productID, variantID, quantity, unitPrice, vatRate)
	if err != nil {
		return nil, err
	}

	o.Lines = append(o.Lines, *line)
	o.recalculateTotals()
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return line, nil
}

// UpdateLineQuantity updates the ordered quantity of an existing line.
// Only allowed in DRAFT status.
func (o *PurchaseOrder) UpdateLineQuantity(lineID uuid.UUID, quantity decimal.Decimal) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot update lines of a non-draft order")
	}

	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			if err := o.Lines[idx].UpdateQuantity(quantity); err != nil {
				return err
			}
			o.recalculateTotals()
			o.UpdatedAt = time.Now()
			o.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Order line not found")
}

// UpdateLinePrice updates the unit price of an existing line.
// Only allowed in DRAFT status.
func (o *PurchaseOrder) UpdateLinePrice(lineID uuid.UUID, unitPrice decimal.Decimal) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot update lines of a non-draft order")
	}

	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			if err := o.Lines[idx].UpdateUnitPrice(unitPrice); err != nil {
				return err
			}
			o.recalculateTotals()
			o.UpdatedAt = time.Now()
			o.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Order line not found")
}

// RemoveLine removes a line from the order. Only allowed in DRAFT status.
func (o *PurchaseOrder) RemoveLine(lineID uuid.UUID) error {
	if o.Status != PurchaseOrderStatusDraft {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot remove lines from a non-draft order")
	}

	for idx, line := range o.Lines {
		if line.ID == lineID {
			o.Lines = append(o.Lines[:idx], o.Lines[idx+1:]...)
			o.recalculateTotals()
			o.UpdatedAt = time.Now()
			o.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Order line not found")
}

// SetRemark sets the order remark
func (o *PurchaseOrder) SetRemark(remark string) {
	o.Remark = remark
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

// SetWarehouse sets the default receiving warehouse.
// Only allowed before the order is sent to the supplier.
func (o *PurchaseOrder) SetWarehouse(warehouseID uuid.UUID) error {
	switch o.Status {
	case PurchaseOrderStatusDraft, PurchaseOrderStatusPendingApproval, PurchaseOrderStatusApproved:
	default:
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot set warehouse after order has been sent")
	}
	if warehouseID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Warehouse ID cannot be empty")
	}

	o.WarehouseID = &warehouseID
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// SubmitForApproval transitions from DRAFT to PENDING_APPROVAL.
// Requires at least one line.
func (o *PurchaseOrder) SubmitForApproval() error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusPendingApproval) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot submit order in %s status", o.Status))
	}
	if len(o.Lines) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Cannot submit order without lines")
	}

	o.Status = PurchaseOrderStatusPendingApproval
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	return nil
}

// Approve transitions from PENDING_APPROVAL to APPROVED, recording who approved
func (o *PurchaseOrder) Approve(approverID uuid.UUID) error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusApproved) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot approve order in %s status", o.Status))
	}
	if approverID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Approver identity is required")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusApproved
	o.ApprovedBy = &approverID
	o.ApprovedAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderApprovedEvent(o, approverID))

	return nil
}

// Send transitions from APPROVED to SENT_TO_SUPPLIER
func (o *PurchaseOrder) Send() error {
	if !o.Status.CanTransitionTo(PurchaseOrderStatusSentToSupplier) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot send order in %s status", o.Status))
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusSentToSupplier
	o.SentAt = &now
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderSentEvent(o))

	return nil
}

// Cancel cancels the order. Not allowed once goods have been received.
func (o *PurchaseOrder) Cancel(reason string) error {
	if o.Status == PurchaseOrderStatusCancelled {
		return nil // idempotent
	}
	if !o.Status.CanTransitionTo(PurchaseOrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	if reason == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Cancel reason is required")
	}
	if o.hasReceivedAnyGoods() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot cancel order after goods have been received")
	}

	now := time.Now()
	o.Status = PurchaseOrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewPurchaseOrderCancelledEvent(o))

	return nil
}

// ApplyReceipt atomically adds the signed delta to a line's received quantity.
// Positive deltas record new receipts, negative ones reverse them. The caller
// must invoke RecalculateFulfilmentStatus afterwards (usually once per batch).
func (o *PurchaseOrder) ApplyReceipt(lineID uuid.UUID, delta, tolerance decimal.Decimal) error {
	if !o.Status.CanReceive() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot receive goods for order in %s status", o.Status))
	}
	if delta.IsZero() {
		return shared.NewDomainError("VALIDATION_ERROR", "Receipt delta cannot be zero")
	}

	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			if err := o.Lines[idx].applyReceipt(delta, tolerance); err != nil {
				return err
			}
			o.UpdatedAt = time.Now()
			o.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Order line not found")
}

// RecalculateFulfilmentStatus derives the post-send status purely from the
// current line sums: FULLY_RECEIVED when every line is complete, PARTIALLY_RECEIVED
// when anything has been received, SENT_TO_SUPPLIER otherwise. Reversals may
// move a fully received order back to partial.
func (o *PurchaseOrder) RecalculateFulfilmentStatus() {
	if !o.Status.CanReceive() {
		return
	}

	previous := o.Status
	switch {
	case len(o.Lines) > 0 && o.allLinesReceived():
		o.Status = PurchaseOrderStatusFullyReceived
		if o.CompletedAt == nil {
			now := time.Now()
			o.CompletedAt = &now
		}
	case o.hasReceivedAnyGoods():
		o.Status = PurchaseOrderStatusPartiallyReceived
		o.CompletedAt = nil
	default:
		o.Status = PurchaseOrderStatusSentToSupplier
		o.CompletedAt = nil
	}

	if o.Status != previous {
		o.UpdatedAt = time.Now()
		if o.Status == PurchaseOrderStatusFullyReceived {
			o.AddDomainEvent(NewPurchaseOrderFullyReceivedEvent(o))
		}
	}
}

// CanDelete returns true if the order may be deleted: only drafts and
// cancelled orders, and the service additionally checks for reception and
// invoice references.
func (o *PurchaseOrder) CanDelete() bool {
	return o.Status == PurchaseOrderStatusDraft || o.Status == PurchaseOrderStatusCancelled
}

// GetLine returns a line by its ID
func (o *PurchaseOrder) GetLine(lineID uuid.UUID) *OrderLine {
	for idx := range o.Lines {
		if o.Lines[idx].ID == lineID {
			return &o.Lines[idx]
		}
	}
	return nil
}

// GetLineByProduct returns a line by product and variant
func (o *PurchaseOrder) GetLineByProduct(productID uuid.UUID, variantID *uuid.UUID) *OrderLine {
	for idx := range o.Lines {
		if o.Lines[idx].ProductID == productID && o.Lines[idx].MatchesVariant(variantID) {
			return &o.Lines[idx]
		}
	}
	return nil
}

// Totals returns the current header totals
func (o *PurchaseOrder) Totals() DocumentTotals {
	return DocumentTotals{TotalHT: o.TotalHT, TotalVAT: o.TotalVAT, TotalTTC: o.TotalTTC}
}

// IsDraft returns true if the order is in draft status
func (o *PurchaseOrder) IsDraft() bool {
	return o.Status == PurchaseOrderStatusDraft
}

// IsFullyReceived returns true if the order is fully received
func (o *PurchaseOrder) IsFullyReceived() bool {
	return o.Status == PurchaseOrderStatusFullyReceived
}

// IsCancelled returns true if the order is cancelled
func (o *PurchaseOrder) IsCancelled() bool {
	return o.Status == PurchaseOrderStatusCancelled
}

// recalculateTotals recomputes the header totals from the lines
func (o *PurchaseOrder) recalculateTotals() {
	lines := make([]TotalsLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = TotalsLine{Quantity: l.OrderedQuantity, UnitPrice: l.UnitPrice, VatRate: l.VatRate}
	}
	totals := CalculateTotals(lines)
	o.TotalHT = totals.TotalHT
	o.TotalVAT = totals.TotalVAT
	o.TotalTTC = totals.TotalTTC
}

// allLinesReceived checks if every line has been fully received
func (o *PurchaseOrder) allLinesReceived() bool {
	for _, line := range o.Lines {
		if !line.IsFullyReceived() {
			return false
		}
	}
	return len(o.Lines) > 0
}

// hasReceivedAnyGoods checks if any goods have been received
func (o *PurchaseOrder) hasReceivedAnyGoods() bool {
	for _, line := range o.Lines {
		if line.ReceivedQuantity.GreaterThan(decimal.Zero) {
			return true
		}
	}
	return false
}

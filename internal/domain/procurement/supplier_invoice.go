package procurement

import (
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierInvoiceStatus represents the status of a supplier invoice
type SupplierInvoiceStatus string

const (
	SupplierInvoiceStatusDraft          SupplierInvoiceStatus = "DRAFT"
	SupplierInvoiceStatusPendingPayment SupplierInvoiceStatus = "PENDING_PAYMENT"
	SupplierInvoiceStatusPartiallyPaid  SupplierInvoiceStatus = "PARTIALLY_PAID"
	SupplierInvoiceStatusPaid           SupplierInvoiceStatus = "PAID"
	SupplierInvoiceStatusCancelled      SupplierInvoiceStatus = "CANCELLED"
	SupplierInvoiceStatusVoided         SupplierInvoiceStatus = "VOIDED"
)

// IsValid checks if the status is a valid SupplierInvoiceStatus
func (s SupplierInvoiceStatus) IsValid() bool {
	switch s {
	case SupplierInvoiceStatusDraft, SupplierInvoiceStatusPendingPayment,
		SupplierInvoiceStatusPartiallyPaid, SupplierInvoiceStatusPaid,
		SupplierInvoiceStatusCancelled, SupplierInvoiceStatusVoided:
		return true
	}
	return false
}

// String returns the string representation of SupplierInvoiceStatus
func (s SupplierInvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SupplierInvoiceStatus) CanTransitionTo(target SupplierInvoiceStatus) bool {
	switch s {
	case SupplierInvoiceStatusDraft:
		return target == SupplierInvoiceStatusPendingPayment || target == SupplierInvoiceStatusCancelled
	case SupplierInvoiceStatusPendingPayment:
		return target == SupplierInvoiceStatusPartiallyPaid || target == SupplierInvoiceStatusPaid ||
			target == SupplierInvoiceStatusCancelled || target == SupplierInvoiceStatusVoided
	case SupplierInvoiceStatusPartiallyPaid:
		return target == SupplierInvoiceStatusPartiallyPaid || target == SupplierInvoiceStatusPaid ||
			target == SupplierInvoiceStatusVoided
	case SupplierInvoiceStatusPaid, SupplierInvoiceStatusCancelled, SupplierInvoiceStatusVoided:
		return false // terminal
	}
	return false
}

// AllowsMutation returns true if lines and amounts may still change.
// Terminal states allow only the notes/attachment allow-list.
func (s SupplierInvoiceStatus) AllowsMutation() bool {
	return s == SupplierInvoiceStatusDraft
}

// InvoiceLine represents a line on a supplier invoice. It may reference a
// reception line for three-way-match traceability; the link is read-only and
// never feeds back into ordered/received quantities.
type InvoiceLine struct {
	ID              uuid.UUID        `gorm:"type:uuid;primary_key"`
	InvoiceID       uuid.UUID        `gorm:"type:uuid;not null;index"`
	ProductID       uuid.UUID        `gorm:"type:uuid;not null"`
	VariantID       *uuid.UUID       `gorm:"type:uuid"`
	ReceptionLineID *uuid.UUID       `gorm:"type:uuid;index"`
	Description     string           `gorm:"type:varchar(500)"`
	Quantity        decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal  `gorm:"type:decimal(18,4);not null"`
	VatRate         *decimal.Decimal `gorm:"type:decimal(8,4)"`
	CreatedAt       time.Time        `gorm:"not null"`
	UpdatedAt       time.Time        `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceLine) TableName() string {
	return "supplier_invoice_lines"
}

// NewInvoiceLine creates a new invoice line
func NewInvoiceLine(invoiceID, productID uuid.UUID, variantID, receptionLineID *uuid.UUID, quantity, unitPrice decimal.Decimal, vatRate *decimal.Decimal) (*InvoiceLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Product ID cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invoiced quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unit price cannot be negative")
	}
	if vatRate != nil && vatRate.IsNegative() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "VAT rate cannot be negative")
	}

	now := time.Now()
	return &InvoiceLine{
		ID:              uuid.New(),
		InvoiceID:       invoiceID,
		ProductID:       productID,
		VariantID:       variantID,
		ReceptionLineID: receptionLineID,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		VatRate:         vatRate,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// InvoiceOrderLink associates an invoice with a purchase order (many-to-many)
type InvoiceOrderLink struct {
	InvoiceID uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID `gorm:"type:uuid;primary_key;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoiceOrderLink) TableName() string {
	return "supplier_invoice_orders"
}

// InvoicePayment records a payment applied to an invoice
type InvoicePayment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method    string          `gorm:"type:varchar(50)"`
	Reference string          `gorm:"type:varchar(100)"`
	PaidAt    time.Time       `gorm:"not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoicePayment) TableName() string {
	return "supplier_invoice_payments"
}

// SupplierInvoice represents a supplier invoice aggregate root.
// It references purchase orders and reception lines but never owns or
// mutates them.
type SupplierInvoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_supplier_invoice_tenant_number,priority:2"`
	SupplierID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Lines         []InvoiceLine         `gorm:"foreignKey:InvoiceID;references:ID"`
	OrderLinks    []InvoiceOrderLink    `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments      []InvoicePayment      `gorm:"foreignKey:InvoiceID;references:ID"`
	Status        SupplierInvoiceStatus `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	TotalHT       decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TotalVAT      decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	TotalTTC      decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	Notes         string                `gorm:"type:text"`
	AttachmentURL string                `gorm:"type:varchar(500)"`
	DueDate       *time.Time
	PaidAt        *time.Time
	CancelledAt   *time.Time
	VoidedAt      *time.Time
}

// TableName returns the table name for GORM
func (SupplierInvoice) TableName() string {
	return "supplier_invoices"
}

// NewSupplierInvoice creates a new supplier invoice in DRAFT status
func NewSupplierInvoice(tenantID uuid.UUID, invoiceNumber string, supplierID uuid.UUID) (*SupplierInvoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invoice number cannot be empty")
	}
	if supplierID == uuid.Nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Supplier ID cannot be empty")
	}

	return &SupplierInvoice{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:       invoiceNumber,
		SupplierID:          supplierID,
		Lines:               make([]InvoiceLine, 0),
		OrderLinks:          make([]InvoiceOrderLink, 0),
		Payments:            make([]InvoicePayment, 0),
		Status:              SupplierInvoiceStatusDraft,
		TotalHT:             decimal.Zero,
		TotalVAT:            decimal.Zero,
		TotalTTC:            decimal.Zero,
	}, nil
}

// AddLine adds a line to the invoice. Only allowed in DRAFT status.
func (i *SupplierInvoice) AddLine(productID uuid.UUID, variantID, receptionLineID *uuid.UUID, quantity, unitPrice decimal.Decimal, vatRate *decimal.Decimal) (*InvoiceLine, error) {
	if !i.Status.AllowsMutation() {
		return nil, shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot add lines to a %s invoice", i.Status))
	}

	line, err := NewInvoiceLine(i.ID, productID, variantID, receptionLineID, quantity, unitPrice, vatRate)
	if err != nil {
		return nil, err
	}

	i.Lines = append(i.Lines, *line)
	i.recalculateTotals()
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return line, nil
}

// RemoveLine removes a line from the invoice. Only allowed in DRAFT status.
func (i *SupplierInvoice) RemoveLine(lineID uuid.UUID) error {
	if !i.Status.AllowsMutation() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot remove lines from a %s invoice", i.Status))
	}

	for idx, line := range i.Lines {
		if line.ID == lineID {
			i.Lines = append(i.Lines[:idx], i.Lines[idx+1:]...)
			i.recalculateTotals()
			i.UpdatedAt = time.Now()
			i.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Invoice line not found")
}

// LinkOrder associates the invoice with a purchase order. Idempotent.
func (i *SupplierInvoice) LinkOrder(orderID uuid.UUID) error {
	if !i.Status.AllowsMutation() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot link orders to a %s invoice", i.Status))
	}
	if orderID == uuid.Nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Order ID cannot be empty")
	}

	for _, link := range i.OrderLinks {
		if link.OrderID == orderID {
			return nil
		}
	}

	i.OrderLinks = append(i.OrderLinks, InvoiceOrderLink{
		InvoiceID: i.ID,
		OrderID:   orderID,
		CreatedAt: time.Now(),
	})
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// UnlinkOrder removes an order association
func (i *SupplierInvoice) UnlinkOrder(orderID uuid.UUID) error {
	if !i.Status.AllowsMutation() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot unlink orders from a %s invoice", i.Status))
	}

	for idx, link := range i.OrderLinks {
		if link.OrderID == orderID {
			i.OrderLinks = append(i.OrderLinks[:idx], i.OrderLinks[idx+1:]...)
			i.UpdatedAt = time.Now()
			i.IncrementVersion()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Order link not found")
}

// LinkedOrderIDs returns the IDs of all linked purchase orders
func (i *SupplierInvoice) LinkedOrderIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(i.OrderLinks))
	for idx, link := range i.OrderLinks {
		ids[idx] = link.OrderID
	}
	return ids
}

// SetNotes updates the free-form notes. Allowed in every status.
func (i *SupplierInvoice) SetNotes(notes string) {
	i.Notes = notes
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// SetAttachmentURL updates the attachment URL. Allowed in every status.
func (i *SupplierInvoice) SetAttachmentURL(url string) {
	i.AttachmentURL = url
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
}

// SetDueDate sets the payment due date. Only allowed in DRAFT status.
func (i *SupplierInvoice) SetDueDate(dueDate time.Time) error {
	if !i.Status.AllowsMutation() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot change due date of a %s invoice", i.Status))
	}
	i.DueDate = &dueDate
	i.UpdatedAt = time.Now()
	i.IncrementVersion()
	return nil
}

// Issue transitions from DRAFT to PENDING_PAYMENT. Requires at least one line.
func (i *SupplierInvoice) Issue() error {
	if !i.Status.CanTransitionTo(SupplierInvoiceStatusPendingPayment) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot issue invoice in %s status", i.Status))
	}
	if len(i.Lines) == 0 {
		return shared.NewDomainError("VALIDATION_ERROR", "Cannot issue invoice without lines")
	}

	i.Status = SupplierInvoiceStatusPendingPayment
	i.UpdatedAt = time.Now()
	i.IncrementVersion()

	return nil
}

// RecordPayment applies a payment and moves the invoice to PARTIALLY_PAID
func (i *SupplierInvoice) RecordPayment(amount decimal.Decimal, method, reference string, paidAt time.Time) error {
	if !i.Status.CanTransitionTo(SupplierInvoiceStatusPartiallyPaid) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot record payment on invoice in %s status", i.Status))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("VALIDATION_ERROR", "Payment amount must be positive")
	}

	now := time.Now()
	i.Payments = append(i.Payments, InvoicePayment{
		ID:        uuid.New(),
		InvoiceID: i.ID,
		Amount:    amount,
		Method:    method,
		Reference: reference,
		PaidAt:    paidAt,
		CreatedAt: now,
	})
	i.Status = SupplierInvoiceStatusPartiallyPaid
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// PaidAmount returns the sum of all recorded payments
func (i *SupplierInvoice) PaidAmount() decimal.Decimal {
	total := decimal.Zero
	for _, payment := range i.Payments {
		total = total.Add(payment.Amount)
	}
	return total
}

// PaymentMismatch returns the signed difference between recorded payments and
// the invoice total when it exceeds the monetary tolerance, or zero otherwise.
func (i *SupplierInvoice) PaymentMismatch(tolerance decimal.Decimal) decimal.Decimal {
	diff := i.PaidAmount().Sub(i.TotalTTC)
	if diff.Abs().GreaterThan(tolerance) {
		return diff
	}
	return decimal.Zero
}

// MarkPaid transitions to PAID. The payments-vs-total cross-check is the
// caller's to log; a mismatch does not block the transition.
func (i *SupplierInvoice) MarkPaid() error {
	if !i.Status.CanTransitionTo(SupplierInvoiceStatusPaid) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot mark invoice in %s status as paid", i.Status))
	}

	now := time.Now()
	i.Status = SupplierInvoiceStatusPaid
	i.PaidAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	i.AddDomainEvent(NewSupplierInvoicePaidEvent(i))

	return nil
}

// Cancel cancels the invoice before any payment has been recorded
func (i *SupplierInvoice) Cancel() error {
	if i.Status == SupplierInvoiceStatusCancelled {
		return nil // idempotent
	}
	if !i.Status.CanTransitionTo(SupplierInvoiceStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot cancel invoice in %s status", i.Status))
	}

	now := time.Now()
	i.Status = SupplierInvoiceStatusCancelled
	i.CancelledAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// Void voids an issued invoice, including partially paid ones
func (i *SupplierInvoice) Void() error {
	if !i.Status.CanTransitionTo(SupplierInvoiceStatusVoided) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", fmt.Sprintf("Cannot void invoice in %s status", i.Status))
	}

	now := time.Now()
	i.Status = SupplierInvoiceStatusVoided
	i.VoidedAt = &now
	i.UpdatedAt = now
	i.IncrementVersion()

	return nil
}

// Totals returns the current header totals
func (i *SupplierInvoice) Totals() DocumentTotals {
	return DocumentTotals{TotalHT: i.TotalHT, TotalVAT: i.TotalVAT, TotalTTC: i.TotalTTC}
}

// recalculateTotals recomputes the header totals from the lines
func (i *SupplierInvoice) recalculateTotals() {
	lines := make([]TotalsLine, len(i.Lines))
	for idx, l := range i.Lines {
		lines[idx] = TotalsLine{Quantity: l.Quantity, UnitPrice: l.UnitPrice, VatRate: l.VatRate}
	}
	totals := CalculateTotals(lines)
	i.TotalHT = totals.TotalHT
	i.TotalVAT = totals.TotalVAT
	i.TotalTTC = totals.TotalTTC
}

package procurement

import (
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePurchaseOrder   = "PurchaseOrder"
	AggregateTypeReception       = "Reception"
	AggregateTypeSupplierInvoice = "SupplierInvoice"
)

// Event type constants
const (
	EventTypePurchaseOrderCreated       = "PurchaseOrderCreated"
	EventTypePurchaseOrderApproved      = "PurchaseOrderApproved"
	EventTypePurchaseOrderSent          = "PurchaseOrderSent"
	EventTypePurchaseOrderCancelled     = "PurchaseOrderCancelled"
	EventTypePurchaseOrderFullyReceived = "PurchaseOrderFullyReceived"
	EventTypeReceptionLineAdded         = "ReceptionLineAdded"
	EventTypeReceptionLineUpdated       = "ReceptionLineUpdated"
	EventTypeReceptionLineRemoved       = "ReceptionLineRemoved"
	EventTypeReceptionCancelled         = "ReceptionCancelled"
	EventTypeSupplierInvoicePaid        = "SupplierInvoicePaid"
)

// PurchaseOrderCreatedEvent is raised when a new purchase order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SupplierID  uuid.UUID `json:"supplier_id"`
}

// NewPurchaseOrderCreatedEvent creates a new PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCreated, AggregateTypePurchaseOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderCreatedEvent) EventType() string {
	return EventTypePurchaseOrderCreated
}

// PurchaseOrderApprovedEvent is raised when a purchase order is approved
type PurchaseOrderApprovedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	ApprovedBy  uuid.UUID       `json:"approved_by"`
	TotalTTC    decimal.Decimal `json:"total_ttc"`
}

// NewPurchaseOrderApprovedEvent creates a new PurchaseOrderApprovedEvent
func NewPurchaseOrderApprovedEvent(order *PurchaseOrder, approvedBy uuid.UUID) *PurchaseOrderApprovedEvent {
	return &PurchaseOrderApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderApproved, AggregateTypePurchaseOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		ApprovedBy:      approvedBy,
		TotalTTC:        order.TotalTTC,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderApprovedEvent) EventType() string {
	return EventTypePurchaseOrderApproved
}

// OrderLineInfo carries line details in purchase order events
type OrderLineInfo struct {
	LineID           uuid.UUID       `json:"line_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	VariantID        *uuid.UUID      `json:"variant_id,omitempty"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
}

func orderLineInfos(order *PurchaseOrder) []OrderLineInfo {
	infos := make([]OrderLineInfo, len(order.Lines))
	for i, line := range order.Lines {
		infos[i] = OrderLineInfo{
			LineID:           line.ID,
			ProductID:        line.ProductID,
			VariantID:        line.VariantID,
			OrderedQuantity:  line.OrderedQuantity,
			ReceivedQuantity: line.ReceivedQuantity,
			UnitPrice:        line.UnitPrice,
		}
	}
	return infos
}

// PurchaseOrderSentEvent is raised when a purchase order is sent to the
// supplier. From this point on goods may be received against it.
type PurchaseOrderSentEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	WarehouseID *uuid.UUID      `json:"warehouse_id,omitempty"`
	Lines       []OrderLineInfo `json:"lines"`
	TotalTTC    decimal.Decimal `json:"total_ttc"`
}

// NewPurchaseOrderSentEvent creates a new PurchaseOrderSentEvent
func NewPurchaseOrderSentEvent(order *PurchaseOrder) *PurchaseOrderSentEvent {
	return &PurchaseOrderSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderSent, AggregateTypePurchaseOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		WarehouseID:     order.WarehouseID,
		Lines:           orderLineInfos(order),
		TotalTTC:        order.TotalTTC,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderSentEvent) EventType() string {
	return EventTypePurchaseOrderSent
}

// PurchaseOrderCancelledEvent is raised when a purchase order is cancelled
type PurchaseOrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	SupplierID   uuid.UUID `json:"supplier_id"`
	CancelReason string    `json:"cancel_reason"`
}

// NewPurchaseOrderCancelledEvent creates a new PurchaseOrderCancelledEvent
func NewPurchaseOrderCancelledEvent(order *PurchaseOrder) *PurchaseOrderCancelledEvent {
	return &PurchaseOrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCancelled, AggregateTypePurchaseOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		CancelReason:    order.CancelReason,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderCancelledEvent) EventType() string {
	return EventTypePurchaseOrderCancelled
}

// PurchaseOrderFullyReceivedEvent is raised when the last outstanding quantity
// of a purchase order has been received
type PurchaseOrderFullyReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	Lines       []OrderLineInfo `json:"lines"`
	TotalTTC    decimal.Decimal `json:"total_ttc"`
}

// NewPurchaseOrderFullyReceivedEvent creates a new PurchaseOrderFullyReceivedEvent
func NewPurchaseOrderFullyReceivedEvent(order *PurchaseOrder) *PurchaseOrderFullyReceivedEvent {
	return &PurchaseOrderFullyReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderFullyReceived, AggregateTypePurchaseOrder, order.ID, order.TenantID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		Lines:           orderLineInfos(order),
		TotalTTC:        order.TotalTTC,
	}
}

// EventType returns the event type name
func (e *PurchaseOrderFullyReceivedEvent) EventType() string {
	return EventTypePurchaseOrderFullyReceived
}

// ReceptionLineAddedEvent is raised when goods are booked in on a reception
type ReceptionLineAddedEvent struct {
	shared.BaseDomainEvent
	ReceptionID     uuid.UUID       `json:"reception_id"`
	ReceptionNumber string          `json:"reception_number"`
	OrderID         *uuid.UUID      `json:"order_id,omitempty"`
	LineID          uuid.UUID       `json:"line_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	VariantID       *uuid.UUID      `json:"variant_id,omitempty"`
	Location        stock.Location  `json:"location"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
}

// NewReceptionLineAddedEvent creates a new ReceptionLineAddedEvent
func NewReceptionLineAddedEvent(reception *Reception, line *ReceptionLine) *ReceptionLineAddedEvent {
	return &ReceptionLineAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceptionLineAdded, AggregateTypeReception, reception.ID, reception.TenantID),
		ReceptionID:     reception.ID,
		ReceptionNumber: reception.ReceptionNumber,
		OrderID:         reception.OrderID,
		LineID:          line.ID,
		ProductID:       line.ProductID,
		VariantID:       line.VariantID,
		Location:        reception.Location,
		Quantity:        line.Quantity,
		UnitCost:        line.UnitCost,
	}
}

// EventType returns the event type name
func (e *ReceptionLineAddedEvent) EventType() string {
	return EventTypeReceptionLineAdded
}

// ReceptionLineUpdatedEvent is raised when a reception line quantity is corrected
type ReceptionLineUpdatedEvent struct {
	shared.BaseDomainEvent
	ReceptionID     uuid.UUID       `json:"reception_id"`
	ReceptionNumber string          `json:"reception_number"`
	OrderID         *uuid.UUID      `json:"order_id,omitempty"`
	LineID          uuid.UUID       `json:"line_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Delta           decimal.Decimal `json:"delta"`
}

// NewReceptionLineUpdatedEvent creates a new ReceptionLineUpdatedEvent
func NewReceptionLineUpdatedEvent(reception *Reception, line *ReceptionLine, delta decimal.Decimal) *ReceptionLineUpdatedEvent {
	return &ReceptionLineUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceptionLineUpdated, AggregateTypeReception, reception.ID, reception.TenantID),
		ReceptionID:     reception.ID,
		ReceptionNumber: reception.ReceptionNumber,
		OrderID:         reception.OrderID,
		LineID:          line.ID,
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		Delta:           delta,
	}
}

// EventType returns the event type name
func (e *ReceptionLineUpdatedEvent) EventType() string {
	return EventTypeReceptionLineUpdated
}

// ReceptionLineRemovedEvent is raised when a reception line is deactivated
// and its stock movement reversed
type ReceptionLineRemovedEvent struct {
	shared.BaseDomainEvent
	ReceptionID     uuid.UUID       `json:"reception_id"`
	ReceptionNumber string          `json:"reception_number"`
	OrderID         *uuid.UUID      `json:"order_id,omitempty"`
	LineID          uuid.UUID       `json:"line_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
}

// NewReceptionLineRemovedEvent creates a new ReceptionLineRemovedEvent
func NewReceptionLineRemovedEvent(reception *Reception, line *ReceptionLine) *ReceptionLineRemovedEvent {
	return &ReceptionLineRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceptionLineRemoved, AggregateTypeReception, reception.ID, reception.TenantID),
		ReceptionID:     reception.ID,
		ReceptionNumber: reception.ReceptionNumber,
		OrderID:         reception.OrderID,
		LineID:          line.ID,
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
	}
}

// EventType returns the event type name
func (e *ReceptionLineRemovedEvent) EventType() string {
	return EventTypeReceptionLineRemoved
}

// ReceptionCancelledEvent is raised when a reception is cancelled and all its
// active lines reversed
type ReceptionCancelledEvent struct {
	shared.BaseDomainEvent
	ReceptionID     uuid.UUID  `json:"reception_id"`
	ReceptionNumber string     `json:"reception_number"`
	OrderID         *uuid.UUID `json:"order_id,omitempty"`
	ReversedLines   int        `json:"reversed_lines"`
}

// NewReceptionCancelledEvent creates a new ReceptionCancelledEvent
func NewReceptionCancelledEvent(reception *Reception, reversedLines int) *ReceptionCancelledEvent {
	return &ReceptionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReceptionCancelled, AggregateTypeReception, reception.ID, reception.TenantID),
		ReceptionID:     reception.ID,
		ReceptionNumber: reception.ReceptionNumber,
		OrderID:         reception.OrderID,
		ReversedLines:   reversedLines,
	}
}

// EventType returns the event type name
func (e *ReceptionCancelledEvent) EventType() string {
	return EventTypeReceptionCancelled
}

// SupplierInvoicePaidEvent is raised when a supplier invoice is marked paid
type SupplierInvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	SupplierID    uuid.UUID       `json:"supplier_id"`
	OrderIDs      []uuid.UUID     `json:"order_ids"`
	TotalTTC      decimal.Decimal `json:"total_ttc"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
}

// NewSupplierInvoicePaidEvent creates a new SupplierInvoicePaidEvent
func NewSupplierInvoicePaidEvent(invoice *SupplierInvoice) *SupplierInvoicePaidEvent {
	return &SupplierInvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSupplierInvoicePaid, AggregateTypeSupplierInvoice, invoice.ID, invoice.TenantID),
		InvoiceID:       invoice.ID,
		InvoiceNumber:   invoice.InvoiceNumber,
		SupplierID:      invoice.SupplierID,
		OrderIDs:        invoice.LinkedOrderIDs(),
		TotalTTC:        invoice.TotalTTC,
		PaidAmount:      invoice.PaidAmount(),
	}
}

// EventType returns the event type name
func (e *SupplierInvoicePaidEvent) EventType() string {
	return EventTypeSupplierInvoicePaid
}

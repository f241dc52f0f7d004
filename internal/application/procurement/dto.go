package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Purchase Order DTOs ====================

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID  uuid.UUID              `json:"supplier_id" binding:"required"`
	WarehouseID *uuid.UUID             `json:"warehouse_id"`
	Lines       []CreateOrderLineInput `json:"lines"`
	Remark      string                 `json:"remark"`
}

// CreateOrderLineInput represents a line in the create order request
type CreateOrderLineInput struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	VariantID *uuid.UUID       `json:"variant_id"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal  `json:"unit_price" binding:"required"`
	VatRate   *decimal.Decimal `json:"vat_rate"`
	Remark    string           `json:"remark"`
}

// AddOrderLineRequest represents a request to add a line to a draft order
type AddOrderLineRequest struct {
	ProductID uuid.UUID        `json:"product_id" binding:"required"`
	VariantID *uuid.UUID       `json:"variant_id"`
	Quantity  decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal  `json:"unit_price" binding:"required"`
	VatRate   *decimal.Decimal `json:"vat_rate"`
}

// UpdateOrderLineRequest represents a request to update a draft order line
type UpdateOrderLineRequest struct {
	Quantity  *decimal.Decimal `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// CancelOrderRequest represents a request to cancel a purchase order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// PurchaseOrderListFilter represents filtering options for listing orders
type PurchaseOrderListFilter struct {
	Page       int                              `form:"page"`
	PageSize   int                              `form:"page_size"`
	OrderBy    string                           `form:"order_by"`
	OrderDir   string                           `form:"order_dir"`
	Status     *procurement.PurchaseOrderStatus `form:"status"`
	SupplierID *uuid.UUID                       `form:"supplier_id"`
}

// OrderLineResponse represents an order line in responses
type OrderLineResponse struct {
	ID                uuid.UUID        `json:"id"`
	ProductID         uuid.UUID        `json:"product_id"`
	VariantID         *uuid.UUID       `json:"variant_id,omitempty"`
	OrderedQuantity   decimal.Decimal  `json:"ordered_quantity"`
	ReceivedQuantity  decimal.Decimal  `json:"received_quantity"`
	RemainingQuantity decimal.Decimal  `json:"remaining_quantity"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	VatRate           *decimal.Decimal `json:"vat_rate,omitempty"`
	Remark            string           `json:"remark,omitempty"`
}

// PurchaseOrderResponse represents a purchase order in responses
type PurchaseOrderResponse struct {
	ID           uuid.UUID                       `json:"id"`
	OrderNumber  string                          `json:"order_number"`
	SupplierID   uuid.UUID                       `json:"supplier_id"`
	WarehouseID  *uuid.UUID                      `json:"warehouse_id,omitempty"`
	Status       procurement.PurchaseOrderStatus `json:"status"`
	Lines        []OrderLineResponse             `json:"lines"`
	TotalHT      decimal.Decimal                 `json:"total_ht"`
	TotalVAT     decimal.Decimal                 `json:"total_vat"`
	TotalTTC     decimal.Decimal                 `json:"total_ttc"`
	Remark       string                          `json:"remark,omitempty"`
	ApprovedBy   *uuid.UUID                      `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time                      `json:"approved_at,omitempty"`
	SentAt       *time.Time                      `json:"sent_at,omitempty"`
	CompletedAt  *time.Time                      `json:"completed_at,omitempty"`
	CancelledAt  *time.Time                      `json:"cancelled_at,omitempty"`
	CancelReason string                          `json:"cancel_reason,omitempty"`
	Version      int                             `json:"version"`
	CreatedAt    time.Time                       `json:"created_at"`
	UpdatedAt    time.Time                       `json:"updated_at"`
}

// ToPurchaseOrderResponse converts a domain purchase order to a response DTO
func ToPurchaseOrderResponse(order *procurement.PurchaseOrder) PurchaseOrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, line := range order.Lines {
		lines[i] = OrderLineResponse{
			ID:                line.ID,
			ProductID:         line.ProductID,
			VariantID:         line.VariantID,
			OrderedQuantity:   line.OrderedQuantity,
			ReceivedQuantity:  line.ReceivedQuantity,
			RemainingQuantity: line.RemainingQuantity(),
			UnitPrice:         line.UnitPrice,
			VatRate:           line.VatRate,
			Remark:            line.Remark,
		}
	}

	return PurchaseOrderResponse{
		ID:           order.ID,
		OrderNumber:  order.OrderNumber,
		SupplierID:   order.SupplierID,
		WarehouseID:  order.WarehouseID,
		Status:       order.Status,
		Lines:        lines,
		TotalHT:      order.TotalHT,
		TotalVAT:     order.TotalVAT,
		TotalTTC:     order.TotalTTC,
		Remark:       order.Remark,
		ApprovedBy:   order.ApprovedBy,
		ApprovedAt:   order.ApprovedAt,
		SentAt:       order.SentAt,
		CompletedAt:  order.CompletedAt,
		CancelledAt:  order.CancelledAt,
		CancelReason: order.CancelReason,
		Version:      order.Version,
		CreatedAt:    order.CreatedAt,
		UpdatedAt:    order.UpdatedAt,
	}
}

// OrderStatusSummaryResponse represents order counts by status
type OrderStatusSummaryResponse struct {
	Draft             int64 `json:"draft"`
	PendingApproval   int64 `json:"pending_approval"`
	Approved          int64 `json:"approved"`
	SentToSupplier    int64 `json:"sent_to_supplier"`
	PartiallyReceived int64 `json:"partially_received"`
	FullyReceived     int64 `json:"fully_received"`
	Cancelled         int64 `json:"cancelled"`
}

// ==================== Reception DTOs ====================

// CreateReceptionRequest represents a request to create a goods reception.
// Exactly one of WarehouseID or ShopID must be set.
type CreateReceptionRequest struct {
	OrderID     *uuid.UUID `json:"order_id"`
	SupplierID  *uuid.UUID `json:"supplier_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	ShopID      *uuid.UUID `json:"shop_id"`
	Remark      string     `json:"remark"`
}

// AddReceptionLineRequest represents a request to book goods in on a reception
type AddReceptionLineRequest struct {
	ProductID   uuid.UUID        `json:"product_id" binding:"required"`
	VariantID   *uuid.UUID       `json:"variant_id"`
	OrderLineID *uuid.UUID       `json:"order_line_id"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitCost    *decimal.Decimal `json:"unit_cost"` // defaults to the order line price when linked
	LotNumber   string           `json:"lot_number"`
	ExpiryDate  *time.Time       `json:"expiry_date"`
}

// UpdateReceptionLineRequest represents a quantity correction on a reception line
type UpdateReceptionLineRequest struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

// ReceptionListFilter represents filtering options for listing receptions
type ReceptionListFilter struct {
	Page     int                          `form:"page"`
	PageSize int                          `form:"page_size"`
	OrderBy  string                       `form:"order_by"`
	OrderDir string                       `form:"order_dir"`
	Status   *procurement.ReceptionStatus `form:"status"`
	OrderID  *uuid.UUID                   `form:"order_id"`
}

// ReceptionLineResponse represents a reception line in responses
type ReceptionLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	OrderLineID *uuid.UUID      `json:"order_line_id,omitempty"`
	ProductID   uuid.UUID       `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	LotNumber   string          `json:"lot_number,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	Active      bool            `json:"active"`
}

// ReceptionResponse represents a reception in responses
type ReceptionResponse struct {
	ID              uuid.UUID                   `json:"id"`
	ReceptionNumber string                      `json:"reception_number"`
	OrderID         *uuid.UUID                  `json:"order_id,omitempty"`
	SupplierID      *uuid.UUID                  `json:"supplier_id,omitempty"`
	WarehouseID     *uuid.UUID                  `json:"warehouse_id,omitempty"`
	ShopID          *uuid.UUID                  `json:"shop_id,omitempty"`
	Status          procurement.ReceptionStatus `json:"status"`
	Lines           []ReceptionLineResponse     `json:"lines"`
	TotalQuantity   decimal.Decimal             `json:"total_quantity"`
	Remark          string                      `json:"remark,omitempty"`
	CompletedAt     *time.Time                  `json:"completed_at,omitempty"`
	CancelledAt     *time.Time                  `json:"cancelled_at,omitempty"`
	Version         int                         `json:"version"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

// ToReceptionResponse converts a domain reception to a response DTO.
// Inactive (removed) lines are included so clients can render the audit trail.
func ToReceptionResponse(reception *procurement.Reception) ReceptionResponse {
	lines := make([]ReceptionLineResponse, len(reception.Lines))
	for i, line := range reception.Lines {
		lines[i] = ReceptionLineResponse{
			ID:          line.ID,
			OrderLineID: line.OrderLineID,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			LotNumber:   line.LotNumber,
			ExpiryDate:  line.ExpiryDate,
			Active:      line.Active,
		}
	}

	return ReceptionResponse{
		ID:              reception.ID,
		ReceptionNumber: reception.ReceptionNumber,
		OrderID:         reception.OrderID,
		SupplierID:      reception.SupplierID,
		WarehouseID:     reception.Location.WarehouseID,
		ShopID:          reception.Location.ShopID,
		Status:          reception.Status,
		Lines:           lines,
		TotalQuantity:   reception.TotalReceivedQuantity(),
		Remark:          reception.Remark,
		CompletedAt:     reception.CompletedAt,
		CancelledAt:     reception.CancelledAt,
		Version:         reception.Version,
		CreatedAt:       reception.CreatedAt,
		UpdatedAt:       reception.UpdatedAt,
	}
}

// ==================== Supplier Invoice DTOs ====================

// CreateInvoiceRequest represents a request to register a supplier invoice
type CreateInvoiceRequest struct {
	InvoiceNumber string     `json:"invoice_number" binding:"required,min=1,max=50"`
	SupplierID    uuid.UUID  `json:"supplier_id" binding:"required"`
	OrderIDs      []uuid.UUID `json:"order_ids"`
	DueDate       *time.Time `json:"due_date"`
	Notes         string     `json:"notes"`
}

// AddInvoiceLineRequest represents a request to add a line to a draft invoice
type AddInvoiceLineRequest struct {
	ProductID       uuid.UUID        `json:"product_id" binding:"required"`
	VariantID       *uuid.UUID       `json:"variant_id"`
	ReceptionLineID *uuid.UUID       `json:"reception_line_id"`
	ReceptionID     *uuid.UUID       `json:"reception_id"` // required when ReceptionLineID is set
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice       decimal.Decimal  `json:"unit_price" binding:"required"`
	VatRate         *decimal.Decimal `json:"vat_rate"`
}

// RecordPaymentRequest represents a payment applied to an invoice
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount" binding:"required"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	PaidAt    *time.Time      `json:"paid_at"`
}

// InvoiceListFilter represents filtering options for listing invoices
type InvoiceListFilter struct {
	Page       int                                `form:"page"`
	PageSize   int                                `form:"page_size"`
	OrderBy    string                             `form:"order_by"`
	OrderDir   string                             `form:"order_dir"`
	Status     *procurement.SupplierInvoiceStatus `form:"status"`
	SupplierID *uuid.UUID                         `form:"supplier_id"`
	OrderID    *uuid.UUID                         `form:"order_id"`
}

// InvoiceLineResponse represents an invoice line in responses
type InvoiceLineResponse struct {
	ID              uuid.UUID        `json:"id"`
	ProductID       uuid.UUID        `json:"product_id"`
	VariantID       *uuid.UUID       `json:"variant_id,omitempty"`
	ReceptionLineID *uuid.UUID       `json:"reception_line_id,omitempty"`
	Description     string           `json:"description,omitempty"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	VatRate         *decimal.Decimal `json:"vat_rate,omitempty"`
}

// InvoicePaymentResponse represents a recorded payment in responses
type InvoicePaymentResponse struct {
	ID        uuid.UUID       `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Reference string          `json:"reference,omitempty"`
	PaidAt    time.Time       `json:"paid_at"`
}

// SupplierInvoiceResponse represents a supplier invoice in responses
type SupplierInvoiceResponse struct {
	ID            uuid.UUID                         `json:"id"`
	InvoiceNumber string                            `json:"invoice_number"`
	SupplierID    uuid.UUID                         `json:"supplier_id"`
	OrderIDs      []uuid.UUID                       `json:"order_ids"`
	Status        procurement.SupplierInvoiceStatus `json:"status"`
	Lines         []InvoiceLineResponse             `json:"lines"`
	Payments      []InvoicePaymentResponse          `json:"payments"`
	TotalHT       decimal.Decimal                   `json:"total_ht"`
	TotalVAT      decimal.Decimal                   `json:"total_vat"`
	TotalTTC      decimal.Decimal                   `json:"total_ttc"`
	PaidAmount    decimal.Decimal                   `json:"paid_amount"`
	Notes         string                            `json:"notes,omitempty"`
	AttachmentURL string                            `json:"attachment_url,omitempty"`
	DueDate       *time.Time                        `json:"due_date,omitempty"`
	PaidAt        *time.Time                        `json:"paid_at,omitempty"`
	CancelledAt   *time.Time                        `json:"cancelled_at,omitempty"`
	VoidedAt      *time.Time                        `json:"voided_at,omitempty"`
	Version       int                               `json:"version"`
	CreatedAt     time.Time                         `json:"created_at"`
	UpdatedAt     time.Time                         `json:"updated_at"`
}

// ToSupplierInvoiceResponse converts a domain invoice to a response DTO
func ToSupplierInvoiceResponse(invoice *procurement.SupplierInvoice) SupplierInvoiceResponse {
	lines := make([]InvoiceLineResponse, len(invoice.Lines))
	for i, line := range invoice.Lines {
		lines[i] = InvoiceLineResponse{
			ID:              line.ID,
			ProductID:       line.ProductID,
			VariantID:       line.VariantID,
			ReceptionLineID: line.ReceptionLineID,
			Description:     line.Description,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			VatRate:         line.VatRate,
		}
	}

	payments := make([]InvoicePaymentResponse, len(invoice.Payments))
	for i, payment := range invoice.Payments {
		payments[i] = InvoicePaymentResponse{
			ID:        payment.ID,
			Amount:    payment.Amount,
			Method:    payment.Method,
			Reference: payment.Reference,
			PaidAt:    payment.PaidAt,
		}
	}

	return SupplierInvoiceResponse{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		SupplierID:    invoice.SupplierID,
		OrderIDs:      invoice.LinkedOrderIDs(),
		Status:        invoice.Status,
		Lines:         lines,
		Payments:      payments,
		TotalHT:       invoice.TotalHT,
		TotalVAT:      invoice.TotalVAT,
		TotalTTC:      invoice.TotalTTC,
		PaidAmount:    invoice.PaidAmount(),
		Notes:         invoice.Notes,
		AttachmentURL: invoice.AttachmentURL,
		DueDate:       invoice.DueDate,
		PaidAt:        invoice.PaidAt,
		CancelledAt:   invoice.CancelledAt,
		VoidedAt:      invoice.VoidedAt,
		Version:       invoice.Version,
		CreatedAt:     invoice.CreatedAt,
		UpdatedAt:     invoice.UpdatedAt,
	}
}

package procurement

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupplierInvoiceService handles supplier invoice business operations.
// Invoices reference orders and reception lines for three-way matching but
// never mutate them; drift between payments and the invoice total is logged,
// not blocked.
type SupplierInvoiceService struct {
	invoiceRepo       procurement.SupplierInvoiceRepository
	orderRepo         procurement.PurchaseOrderRepository
	receptionRepo     procurement.ReceptionRepository
	eventPublisher    shared.EventPublisher
	monetaryTolerance decimal.Decimal
	logger            *zap.Logger
}

// NewSupplierInvoiceService creates a new SupplierInvoiceService
func NewSupplierInvoiceService(
	invoiceRepo procurement.SupplierInvoiceRepository,
	orderRepo procurement.PurchaseOrderRepository,
	receptionRepo procurement.ReceptionRepository,
	monetaryTolerance decimal.Decimal,
	logger *zap.Logger,
) *SupplierInvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierInvoiceService{
		invoiceRepo:       invoiceRepo,
		orderRepo:         orderRepo,
		receptionRepo:     receptionRepo,
		monetaryTolerance: monetaryTolerance,
		logger:            logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *SupplierInvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create registers a new supplier invoice in DRAFT status
func (s *SupplierInvoiceService) Create(ctx context.Context, tenantID uuid.UUID, req CreateInvoiceRequest) (*SupplierInvoiceResponse, error) {
	exists, err := s.invoiceRepo.ExistsByInvoiceNumber(ctx, tenantID, req.InvoiceNumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "An invoice with this number already exists")
	}

	invoice, err := procurement.NewSupplierInvoice(tenantID, req.InvoiceNumber, req.SupplierID)
	if err != nil {
		return nil, err
	}

	for _, orderID := range req.OrderIDs {
		order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
		if err != nil {
			return nil, err
		}
		if order.SupplierID != req.SupplierID {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Linked order belongs to a different supplier")
		}
		if err := invoice.LinkOrder(orderID); err != nil {
			return nil, err
		}
	}

	if req.DueDate != nil {
		if err := invoice.SetDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}
	if req.Notes != "" {
		invoice.SetNotes(req.Notes)
	}

	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// GetByID retrieves an invoice by ID
func (s *SupplierInvoiceService) GetByID(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// List retrieves invoices with filtering and pagination
func (s *SupplierInvoiceService) List(ctx context.Context, tenantID uuid.UUID, filter InvoiceListFilter) ([]SupplierInvoiceResponse, int64, error) {
	f := shared.DefaultFilter()
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		f.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		f.OrderDir = filter.OrderDir
	}
	if filter.Status != nil {
		f.Filters["status"] = filter.Status.String()
	}
	if filter.SupplierID != nil {
		f.Filters["supplier_id"] = *filter.SupplierID
	}

	var invoices []procurement.SupplierInvoice
	var err error
	if filter.OrderID != nil {
		invoices, err = s.invoiceRepo.FindByOrder(ctx, tenantID, *filter.OrderID, f)
	} else {
		invoices, err = s.invoiceRepo.FindAllForTenant(ctx, tenantID, f)
	}
	if err != nil {
		return nil, 0, err
	}
	total, err := s.invoiceRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]SupplierInvoiceResponse, len(invoices))
	for i := range invoices {
		responses[i] = ToSupplierInvoiceResponse(&invoices[i])
	}
	return responses, total, nil
}

// AddLine adds a line to a draft invoice. A reception line reference is
// validated against the reception it came from; the link is informational and
// never feeds back into received quantities.
func (s *SupplierInvoiceService) AddLine(ctx context.Context, tenantID, invoiceID uuid.UUID, req AddInvoiceLineRequest) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if req.ReceptionLineID != nil {
		if req.ReceptionID == nil {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Reception ID is required when referencing a reception line")
		}
		reception, err := s.receptionRepo.FindByIDForTenant(ctx, tenantID, *req.ReceptionID)
		if err != nil {
			return nil, err
		}
		receptionLine := reception.GetLine(*req.ReceptionLineID)
		if receptionLine == nil || !receptionLine.Active {
			return nil, shared.NewDomainError("NOT_FOUND", "Reception line not found or removed")
		}
		if receptionLine.ProductID != req.ProductID {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Product must match the referenced reception line")
		}
	}

	line, err := invoice.AddLine(req.ProductID, req.VariantID, req.ReceptionLineID, req.Quantity, req.UnitPrice, req.VatRate)
	if err != nil {
		return nil, err
	}
	if req.Description != "" {
		for i := range invoice.Lines {
			if invoice.Lines[i].ID == line.ID {
				invoice.Lines[i].Description = req.Description
			}
		}
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// RemoveLine removes a line from a draft invoice
func (s *SupplierInvoiceService) RemoveLine(ctx context.Context, tenantID, invoiceID, lineID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.RemoveLine(lineID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// LinkOrder links a draft invoice to a purchase order
func (s *SupplierInvoiceService) LinkOrder(ctx context.Context, tenantID, invoiceID, orderID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.SupplierID != invoice.SupplierID {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Linked order belongs to a different supplier")
	}

	if err := invoice.LinkOrder(orderID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// UnlinkOrder removes an order link from a draft invoice
func (s *SupplierInvoiceService) UnlinkOrder(ctx context.Context, tenantID, invoiceID, orderID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.UnlinkOrder(orderID); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// Issue moves a draft invoice to PENDING_PAYMENT
func (s *SupplierInvoiceService) Issue(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Issue(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// RecordPayment applies a payment to an issued invoice
func (s *SupplierInvoiceService) RecordPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req RecordPaymentRequest) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	if err := invoice.RecordPayment(req.Amount, req.Method, req.Reference, paidAt); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// MarkPaid marks an invoice as paid. A mismatch between recorded payments and
// the invoice total is logged as a warning but does not block the transition.
func (s *SupplierInvoiceService) MarkPaid(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if mismatch := invoice.PaymentMismatch(s.monetaryTolerance); !mismatch.IsZero() {
		s.logger.Warn("invoice marked paid with payment mismatch",
			zap.String("invoice_id", invoice.ID.String()),
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("total_ttc", invoice.TotalTTC.String()),
			zap.String("paid_amount", invoice.PaidAmount().String()),
			zap.String("mismatch", mismatch.String()),
		)
	}

	if err := invoice.MarkPaid(); err != nil {
		return nil, err
	}

	events := invoice.GetDomainEvents()
	invoice.ClearDomainEvents()

	if err := s.invoiceRepo.SaveWithLockAndEvents(ctx, invoice, events); err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// Cancel cancels an unpaid invoice
func (s *SupplierInvoiceService) Cancel(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Cancel(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// Void voids an issued invoice, partially paid ones included
func (s *SupplierInvoiceService) Void(ctx context.Context, tenantID, invoiceID uuid.UUID) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if err := invoice.Void(); err != nil {
		return nil, err
	}

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// SetNotes updates the notes; allowed in every status
func (s *SupplierInvoiceService) SetNotes(ctx context.Context, tenantID, invoiceID uuid.UUID, notes string) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	invoice.SetNotes(notes)

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// SetAttachmentURL updates the attachment URL; allowed in every status
func (s *SupplierInvoiceService) SetAttachmentURL(ctx context.Context, tenantID, invoiceID uuid.UUID, url string) (*SupplierInvoiceResponse, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	invoice.SetAttachmentURL(url)

	if err := s.invoiceRepo.SaveWithLock(ctx, invoice); err != nil {
		return nil, err
	}

	response := ToSupplierInvoiceResponse(invoice)
	return &response, nil
}

// Delete deletes a draft invoice
func (s *SupplierInvoiceService) Delete(ctx context.Context, tenantID, invoiceID uuid.UUID) error {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return err
	}

	if invoice.Status != procurement.SupplierInvoiceStatusDraft {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Only draft invoices can be deleted")
	}

	return s.invoiceRepo.DeleteForTenant(ctx, tenantID, invoiceID)
}

func (s *SupplierInvoiceService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err), zap.Int("count", len(events)))
	}
}

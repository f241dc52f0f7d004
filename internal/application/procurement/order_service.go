package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseOrderService handles purchase order business operations
type PurchaseOrderService struct {
	orderRepo      procurement.PurchaseOrderRepository
	receptionRepo  procurement.ReceptionRepository
	invoiceRepo    procurement.SupplierInvoiceRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	orderRepo procurement.PurchaseOrderRepository,
	receptionRepo procurement.ReceptionRepository,
	invoiceRepo procurement.SupplierInvoiceRepository,
	logger *zap.Logger,
) *PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{
		orderRepo:     orderRepo,
		receptionRepo: receptionRepo,
		invoiceRepo:   invoiceRepo,
		logger:        logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new purchase order in DRAFT status
func (s *PurchaseOrderService) Create(ctx context.Context, tenantID uuid.UUID, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	order, err := procurement.NewPurchaseOrder(tenantID, orderNumber, req.SupplierID)
	if err != nil {
		return nil, err
	}

	if req.WarehouseID != nil {
		if err := order.SetWarehouse(*req.WarehouseID); err != nil {
			return nil, err
		}
	}

	for _, input := range req.Lines {
		line, err := order.AddLine(input.ProductID, input.VariantID, input.Quantity, input.UnitPrice, input.VatRate)
		if err != nil {
			return nil, err
		}
		if input.Remark != "" {
			if l := order.GetLine(line.ID); l != nil {
				l.Remark = input.Remark
			}
		}
	}

	if req.Remark != "" {
		order.SetRemark(req.Remark)
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.Save(ctx, order); err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetByID retrieves a purchase order by ID
func (s *PurchaseOrderService) GetByID(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// GetByOrderNumber retrieves a purchase order by order number
func (s *PurchaseOrderService) GetByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, tenantID, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// List retrieves purchase orders with filtering and pagination
func (s *PurchaseOrderService) List(ctx context.Context, tenantID uuid.UUID, filter PurchaseOrderListFilter) ([]PurchaseOrderResponse, int64, error) {
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

	orders, err := s.orderRepo.FindAllForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.orderRepo.CountForTenant(ctx, tenantID, f)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]PurchaseOrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToPurchaseOrderResponse(&orders[i])
	}
	return responses, total, nil
}

// AddLine adds a line to a draft purchase order
func (s *PurchaseOrderService) AddLine(ctx context.Context, tenantID, orderID uuid.UUID, req AddOrderLineRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := order.AddLine(req.ProductID, req.VariantID, req.Quantity, req.UnitPrice, req.VatRate); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// UpdateLine updates quantity and/or price of a draft order line
func (s *PurchaseOrderService) UpdateLine(ctx context.Context, tenantID, orderID, lineID uuid.UUID, req UpdateOrderLineRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		if err := order.UpdateLineQuantity(lineID, *req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.UnitPrice != nil {
		if err := order.UpdateLinePrice(lineID, *req.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// RemoveLine removes a line from a draft purchase order
func (s *PurchaseOrderService) RemoveLine(ctx context.Context, tenantID, orderID, lineID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.RemoveLine(lineID); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// SetWarehouse sets the default receiving warehouse on a pre-send order
func (s *PurchaseOrderService) SetWarehouse(ctx context.Context, tenantID, orderID, warehouseID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.SetWarehouse(warehouseID); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// SubmitForApproval moves a draft order to PENDING_APPROVAL
func (s *PurchaseOrderService) SubmitForApproval(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.SubmitForApproval(); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		return nil, err
	}

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Approve approves a pending order
func (s *PurchaseOrderService) Approve(ctx context.Context, tenantID, orderID, approverID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Approve(approverID); err != nil {
		return nil, err
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.SaveWithLockAndEvents(ctx, order, events); err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Send marks an approved order as sent to the supplier, opening it for receipts
func (s *PurchaseOrderService) Send(ctx context.Context, tenantID, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	if err := order.Send(); err != nil {
		return nil, err
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.SaveWithLockAndEvents(ctx, order, events); err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Cancel cancels a purchase order. Orders with active receptions cannot be
// cancelled even if their cached counters read zero.
func (s *PurchaseOrderService) Cancel(ctx context.Context, tenantID, orderID uuid.UUID, req CancelOrderRequest) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}

	activeReceptions, err := s.receptionRepo.CountActiveByOrder(ctx, tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if activeReceptions > 0 {
		return nil, shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot cancel order with active receptions")
	}

	if err := order.Cancel(req.Reason); err != nil {
		return nil, err
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.SaveWithLockAndEvents(ctx, order, events); err != nil {
		return nil, err
	}

	s.publish(ctx, events)

	response := ToPurchaseOrderResponse(order)
	return &response, nil
}

// Delete deletes a draft or cancelled order that nothing references
func (s *PurchaseOrderService) Delete(ctx context.Context, tenantID, orderID uuid.UUID) error {
	order, err := s.orderRepo.FindByIDForTenant(ctx, tenantID, orderID)
	if err != nil {
		return err
	}

	if !order.CanDelete() {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Only draft or cancelled orders can be deleted")
	}

	receptions, err := s.receptionRepo.CountActiveByOrder(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if receptions > 0 {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot delete order referenced by receptions")
	}

	invoices, err := s.invoiceRepo.CountOpenByOrder(ctx, tenantID, orderID)
	if err != nil {
		return err
	}
	if invoices > 0 {
		return shared.NewDomainError("INVALID_STATE_TRANSITION", "Cannot delete order referenced by invoices")
	}

	return s.orderRepo.DeleteForTenant(ctx, tenantID, orderID)
}

// GetStatusSummary retrieves order counts by status for a tenant
func (s *PurchaseOrderService) GetStatusSummary(ctx context.Context, tenantID uuid.UUID) (*OrderStatusSummaryResponse, error) {
	summary := &OrderStatusSummaryResponse{}
	counts := []struct {
		status procurement.PurchaseOrderStatus
		target *int64
	}{
		{procurement.PurchaseOrderStatusDraft, &summary.Draft},
		{procurement.PurchaseOrderStatusPendingApproval, &summary.PendingApproval},
		{procurement.PurchaseOrderStatusApproved, &summary.Approved},
		{procurement.PurchaseOrderStatusSentToSupplier, &summary.SentToSupplier},
		{procurement.PurchaseOrderStatusPartiallyReceived, &summary.PartiallyReceived},
		{procurement.PurchaseOrderStatusFullyReceived, &summary.FullyReceived},
		{procurement.PurchaseOrderStatusCancelled, &summary.Cancelled},
	}

	for _, c := range counts {
		count, err := s.orderRepo.CountByStatus(ctx, tenantID, c.status)
		if err != nil {
			return nil, err
		}
		*c.target = count
	}

	return summary, nil
}

func (s *PurchaseOrderService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err), zap.Int("count", len(events)))
	}
}

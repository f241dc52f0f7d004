package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockLevelInvalidator drops cached stock levels after a committed movement.
// Implementations must tolerate being called for keys that were never cached.
type StockLevelInvalidator interface {
	InvalidateLevel(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) error
}

// ReceptionService handles goods reception operations. Every mutation runs in
// a single transaction scope covering the reception, the linked purchase order
// and the stock ledger, so partial writes cannot occur.
type ReceptionService struct {
	scope                TransactionScope
	eventPublisher       shared.EventPublisher
	levelInvalidator     StockLevelInvalidator
	overReceiptTolerance decimal.Decimal
	logger               *zap.Logger
}

// NewReceptionService creates a new ReceptionService
func NewReceptionService(scope TransactionScope, overReceiptTolerance decimal.Decimal, logger *zap.Logger) *ReceptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceptionService{
		scope:                scope,
		overReceiptTolerance: overReceiptTolerance,
		logger:               logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ReceptionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetStockLevelInvalidator sets the cache invalidator for stock levels
func (s *ReceptionService) SetStockLevelInvalidator(inv StockLevelInvalidator) {
	s.levelInvalidator = inv
}

// Create creates a new reception, optionally linked to a purchase order
func (s *ReceptionService) Create(ctx context.Context, tenantID uuid.UUID, req CreateReceptionRequest) (*ReceptionResponse, error) {
	var reception *procurement.Reception

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		location := stock.Location{WarehouseID: req.WarehouseID, ShopID: req.ShopID}
		supplierID := req.SupplierID

		if req.OrderID != nil {
			order, err := repos.OrderRepo().FindByIDForTenant(ctx, tenantID, *req.OrderID)
			if err != nil {
				return err
			}
			if !order.Status.CanReceive() {
				return shared.NewDomainError("INVALID_STATE_TRANSITION", "Order is not open for receiving")
			}
			if supplierID == nil {
				supplierID = &order.SupplierID
			}
			if req.WarehouseID == nil && req.ShopID == nil && order.WarehouseID != nil {
				location = stock.WarehouseLocation(*order.WarehouseID)
			}
		}

		number, err := repos.ReceptionRepo().GenerateReceptionNumber(ctx, tenantID)
		if err != nil {
			return err
		}

		reception, err = procurement.NewReception(tenantID, number, req.OrderID, supplierID, location)
		if err != nil {
			return err
		}
		if req.Remark != "" {
			reception.Remark = req.Remark
		}

		return repos.ReceptionRepo().Save(ctx, reception)
	})
	if err != nil {
		return nil, err
	}

	response := ToReceptionResponse(reception)
	return &response, nil
}

// GetByID retrieves a reception by ID
func (s *ReceptionService) GetByID(ctx context.Context, tenantID, receptionID uuid.UUID) (*ReceptionResponse, error) {
	var reception *procurement.Reception
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reception, err = repos.ReceptionRepo().FindByIDForTenant(ctx, tenantID, receptionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	response := ToReceptionResponse(reception)
	return &response, nil
}

// List retrieves receptions with filtering and pagination
func (s *ReceptionService) List(ctx context.Context, tenantID uuid.UUID, filter ReceptionListFilter) ([]ReceptionResponse, int64, error) {
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
	if filter.OrderID != nil {
		f.Filters["order_id"] = *filter.OrderID
	}

	var receptions []procurement.Reception
	var total int64
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		receptions, err = repos.ReceptionRepo().FindAllForTenant(ctx, tenantID, f)
		if err != nil {
			return err
		}
		total, err = repos.ReceptionRepo().CountForTenant(ctx, tenantID, f)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ReceptionResponse, len(receptions))
	for i := range receptions {
		responses[i] = ToReceptionResponse(&receptions[i])
	}
	return responses, total, nil
}

// AddLine books goods in: it appends the reception line, increments the linked
// order line's received counter, writes the inbound ledger entry and recomputes
// both document statuses, all in one transaction.
func (s *ReceptionService) AddLine(ctx context.Context, tenantID, receptionID uuid.UUID, req AddReceptionLineRequest) (*ReceptionResponse, error) {
	var reception *procurement.Reception
	var pending []shared.DomainEvent
	var key stock.LevelKey

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reception, err = repos.ReceptionRepo().FindByIDForTenant(ctx, tenantID, receptionID)
		if err != nil {
			return err
		}
		if !reception.IsMutable() {
			return shared.NewDomainError("INVALID_STATE_TRANSITION", "Reception is not open for changes")
		}

		unitCost := decimal.Zero
		if req.UnitCost != nil {
			unitCost = *req.UnitCost
		}

		var order *procurement.PurchaseOrder
		if req.OrderLineID != nil {
			if !reception.IsOrderLinked() {
				return shared.NewDomainError("VALIDATION_ERROR", "Cannot reference an order line from an order-less reception")
			}
			order, err = repos.OrderRepo().FindByIDForTenant(ctx, tenantID, *reception.OrderID)
			if err != nil {
				return err
			}
			orderLine := order.GetLine(*req.OrderLineID)
			if orderLine == nil {
				return shared.NewDomainError("NOT_FOUND", "Order line not found on linked order")
			}
			if orderLine.ProductID != req.ProductID || !orderLine.MatchesVariant(req.VariantID) {
				return shared.NewDomainError("VALIDATION_ERROR", "Product and variant must match the referenced order line")
			}
			if req.UnitCost == nil {
				unitCost = orderLine.UnitPrice
			}
			if err := s.verifyOrderLineCounter(ctx, repos, tenantID, reception, orderLine); err != nil {
				return err
			}
			if err := order.ApplyReceipt(orderLine.ID, req.Quantity, s.overReceiptTolerance); err != nil {
				return err
			}
		}

		line, err := reception.AddLine(req.ProductID, req.VariantID, req.OrderLineID, req.Quantity, unitCost)
		if err != nil {
			return err
		}
		if req.LotNumber != "" || req.ExpiryDate != nil {
			reception.GetLine(line.ID).SetLot(req.LotNumber, req.ExpiryDate)
		}

		if err := s.appendLedgerDelta(ctx, repos, reception, line, req.Quantity, unitCost, stock.MovementTypeReceptionIn, ""); err != nil {
			return err
		}

		orderFully := false
		if order != nil {
			order.RecalculateFulfilmentStatus()
			orderFully = order.IsFullyReceived()
			if err := s.saveOrder(ctx, repos, order, &pending); err != nil {
				return err
			}
		}

		reception.RecalculateStatus(orderFully)
		reception.AddDomainEvent(procurement.NewReceptionLineAddedEvent(reception, line))
		if err := s.saveReception(ctx, repos, reception, &pending); err != nil {
			return err
		}

		key = stock.LevelKey{ProductID: req.ProductID, VariantID: req.VariantID, Location: reception.Location}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	s.invalidate(ctx, tenantID, key)

	response := ToReceptionResponse(reception)
	return &response, nil
}

// UpdateLine corrects the quantity on an active reception line. The signed
// difference flows to the order line counter and the ledger.
func (s *ReceptionService) UpdateLine(ctx context.Context, tenantID, receptionID, lineID uuid.UUID, req UpdateReceptionLineRequest) (*ReceptionResponse, error) {
	var reception *procurement.Reception
	var pending []shared.DomainEvent
	var key stock.LevelKey

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reception, err = repos.ReceptionRepo().FindByIDForTenant(ctx, tenantID, receptionID)
		if err != nil {
			return err
		}

		line := reception.GetLine(lineID)
		if line == nil {
			return shared.NewDomainError("NOT_FOUND", "Reception line not found")
		}

		var order *procurement.PurchaseOrder
		if line.OrderLineID != nil {
			order, err = repos.OrderRepo().FindByIDForTenant(ctx, tenantID, *reception.OrderID)
			if err != nil {
				return err
			}
			orderLine := order.GetLine(*line.OrderLineID)
			if orderLine == nil {
				return shared.NewDomainError("NOT_FOUND", "Order line not found on linked order")
			}
			if err := s.verifyOrderLineCounter(ctx, repos, tenantID, reception, orderLine); err != nil {
				return err
			}
		}

		delta, err := reception.UpdateLineQuantity(lineID, req.Quantity)
		if err != nil {
			return err
		}
		if delta.IsZero() {
			return nil // nothing changed
		}

		if order != nil {
			if err := order.ApplyReceipt(*line.OrderLineID, delta, s.overReceiptTolerance); err != nil {
				return err
			}
		}

		if delta.IsNegative() {
			if err := s.appendReversal(ctx, repos, reception, line, delta, "quantity correction"); err != nil {
				return err
			}
		} else if err := s.appendLedgerDelta(ctx, repos, reception, line, delta, line.UnitCost, stock.MovementTypeReceptionIn, "quantity correction"); err != nil {
			return err
		}

		orderFully := false
		if order != nil {
			order.RecalculateFulfilmentStatus()
			orderFully = order.IsFullyReceived()
			if err := s.saveOrder(ctx, repos, order, &pending); err != nil {
				return err
			}
		}

		reception.RecalculateStatus(orderFully)
		reception.AddDomainEvent(procurement.NewReceptionLineUpdatedEvent(reception, line, delta))
		if err := s.saveReception(ctx, repos, reception, &pending); err != nil {
			return err
		}

		key = stock.LevelKey{ProductID: line.ProductID, VariantID: line.VariantID, Location: reception.Location}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	s.invalidate(ctx, tenantID, key)

	response := ToReceptionResponse(reception)
	return &response, nil
}

// RemoveLine deactivates a reception line, reverses its stock movement and
// decrements the order line counter. The line row is kept for the audit trail.
func (s *ReceptionService) RemoveLine(ctx context.Context, tenantID, receptionID, lineID uuid.UUID) (*ReceptionResponse, error) {
	var reception *procurement.Reception
	var pending []shared.DomainEvent
	var key stock.LevelKey

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reception, err = repos.ReceptionRepo().FindByIDForTenant(ctx, tenantID, receptionID)
		if err != nil {
			return err
		}

		current := reception.GetLine(lineID)
		if current == nil {
			return shared.NewDomainError("NOT_FOUND", "Reception line not found")
		}

		var order *procurement.PurchaseOrder
		if current.OrderLineID != nil {
			order, err = repos.OrderRepo().FindByIDForTenant(ctx, tenantID, *reception.OrderID)
			if err != nil {
				return err
			}
			orderLine := order.GetLine(*current.OrderLineID)
			if orderLine == nil {
				return shared.NewDomainError("NOT_FOUND", "Order line not found on linked order")
			}
			if err := s.verifyOrderLineCounter(ctx, repos, tenantID, reception, orderLine); err != nil {
				return err
			}
		}

		removed, err := reception.RemoveLine(lineID)
		if err != nil {
			return err
		}

		if order != nil {
			if err := order.ApplyReceipt(*removed.OrderLineID, removed.Quantity.Neg(), s.overReceiptTolerance); err != nil {
				return err
			}
		}

		if err := s.appendReversal(ctx, repos, reception, removed, removed.Quantity.Neg(), "reception line removed"); err != nil {
			return err
		}

		orderFully := false
		if order != nil {
			order.RecalculateFulfilmentStatus()
			orderFully = order.IsFullyReceived()
			if err := s.saveOrder(ctx, repos, order, &pending); err != nil {
				return err
			}
		}

		reception.RecalculateStatus(orderFully)
		reception.AddDomainEvent(procurement.NewReceptionLineRemovedEvent(reception, removed))
		if err := s.saveReception(ctx, repos, reception, &pending); err != nil {
			return err
		}

		key = stock.LevelKey{ProductID: removed.ProductID, VariantID: removed.VariantID, Location: reception.Location}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	s.invalidate(ctx, tenantID, key)

	response := ToReceptionResponse(reception)
	return &response, nil
}

// Complete explicitly closes a reception
func (s *ReceptionService) Complete(ctx context.Context, tenantID, receptionID uuid.UUID) (*ReceptionResponse, error) {
	var reception *procurement.Reception
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reception, err = repos.ReceptionRepo().FindByIDForTenant(ctx, tenantID, receptionID)
		if err != nil {
			return err
		}
		if err := reception.Complete(); err != nil {
			return err
		}
		return repos.ReceptionRepo().SaveWithLock(ctx, reception)
	})
	if err != nil {
		return nil, err
	}

	response := ToReceptionResponse(reception)
	return &response, nil
}

// Cancel cancels a reception and reverses every active line's effect on the
// order counters and the stock ledger.
func (s *ReceptionService) Cancel(ctx context.Context, tenantID, receptionID uuid.UUID) (*ReceptionResponse, error) {
	var reception *procurement.Reception
	var pending []shared.DomainEvent
	var keys []stock.LevelKey

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reception, err = repos.ReceptionRepo().FindByIDForTenant(ctx, tenantID, receptionID)
		if err != nil {
			return err
		}
		if !reception.IsMutable() {
			return shared.NewDomainError("INVALID_STATE_TRANSITION", "Reception is already closed")
		}

		var order *procurement.PurchaseOrder
		if reception.IsOrderLinked() {
			order, err = repos.OrderRepo().FindByIDForTenant(ctx, tenantID, *reception.OrderID)
			if err != nil {
				return err
			}
		}

		active := reception.ActiveLines()
		for i := range active {
			removed, err := reception.RemoveLine(active[i].ID)
			if err != nil {
				return err
			}
			if order != nil && removed.OrderLineID != nil {
				if err := order.ApplyReceipt(*removed.OrderLineID, removed.Quantity.Neg(), s.overReceiptTolerance); err != nil {
					return err
				}
			}
			if err := s.appendReversal(ctx, repos, reception, removed, removed.Quantity.Neg(), "reception cancelled"); err != nil {
				return err
			}
			keys = append(keys, stock.LevelKey{ProductID: removed.ProductID, VariantID: removed.VariantID, Location: reception.Location})
		}

		if err := reception.Cancel(); err != nil {
			return err
		}

		if order != nil {
			order.RecalculateFulfilmentStatus()
			if err := s.saveOrder(ctx, repos, order, &pending); err != nil {
				return err
			}
		}

		reception.AddDomainEvent(procurement.NewReceptionCancelledEvent(reception, len(active)))
		return s.saveReception(ctx, repos, reception, &pending)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, pending)
	for _, key := range keys {
		s.invalidate(ctx, tenantID, key)
	}

	response := ToReceptionResponse(reception)
	return &response, nil
}

// verifyOrderLineCounter cross-checks the order line's cached received counter
// against the authoritative sum of active reception lines. Drift means a bug
// or a lost write somewhere; the operation is aborted rather than compounding
// the inconsistency.
func (s *ReceptionService) verifyOrderLineCounter(ctx context.Context, repos TransactionalRepositories, tenantID uuid.UUID, reception *procurement.Reception, orderLine *procurement.OrderLine) error {
	others, err := repos.ReceptionRepo().SumActiveReceivedByOrderLine(ctx, tenantID, orderLine.ID, &reception.ID)
	if err != nil {
		return err
	}

	local := decimal.Zero
	for _, line := range reception.ActiveLines() {
		if line.OrderLineID != nil && *line.OrderLineID == orderLine.ID {
			local = local.Add(line.Quantity)
		}
	}

	authoritative := others.Add(local)
	if !authoritative.Equal(orderLine.ReceivedQuantity) {
		s.logger.Error("order line received counter out of sync",
			zap.String("order_line_id", orderLine.ID.String()),
			zap.String("cached", orderLine.ReceivedQuantity.String()),
			zap.String("authoritative", authoritative.String()),
		)
		return shared.NewDomainError("CONCURRENCY_CONFLICT", "Order line received counter does not match reception lines")
	}
	return nil
}

// appendLedgerDelta writes one signed ledger entry for a reception line
func (s *ReceptionService) appendLedgerDelta(ctx context.Context, repos TransactionalRepositories, reception *procurement.Reception, line *procurement.ReceptionLine, delta, unitCost decimal.Decimal, movement stock.MovementType, reason string) error {
	entry, err := stock.NewLedgerEntry(
		reception.TenantID, line.ProductID, line.VariantID, reception.Location,
		delta, unitCost, movement, stock.DocumentTypeReception,
	)
	if err != nil {
		return err
	}
	entry.WithDocument(reception.ID, line.ID)
	if reason != "" {
		entry.WithReason(reason)
	}
	return repos.LedgerRepo().Append(ctx, entry)
}

// appendReversal books delta units against a line's prior movement as a
// REVERSAL entry. The line's earliest original entry is back-referenced when
// present.
func (s *ReceptionService) appendReversal(ctx context.Context, repos TransactionalRepositories, reception *procurement.Reception, line *procurement.ReceptionLine, delta decimal.Decimal, reason string) error {
	originals, err := repos.LedgerRepo().FindByDocumentLine(ctx, reception.TenantID, line.ID)
	if err != nil {
		return err
	}

	entry, err := stock.NewLedgerEntry(
		reception.TenantID, line.ProductID, line.VariantID, reception.Location,
		delta, line.UnitCost, stock.MovementTypeReversal, stock.DocumentTypeReception,
	)
	if err != nil {
		return err
	}
	entry.WithDocument(reception.ID, line.ID).WithReason(reason)
	if len(originals) > 0 {
		entry.ReversedEntryID = &originals[0].ID
	}
	return repos.LedgerRepo().Append(ctx, entry)
}

func (s *ReceptionService) saveOrder(ctx context.Context, repos TransactionalRepositories, order *procurement.PurchaseOrder, pending *[]shared.DomainEvent) error {
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if err := repos.OrderRepo().SaveWithLockAndEvents(ctx, order, events); err != nil {
		return err
	}
	*pending = append(*pending, events...)
	return nil
}

func (s *ReceptionService) saveReception(ctx context.Context, repos TransactionalRepositories, reception *procurement.Reception, pending *[]shared.DomainEvent) error {
	events := reception.GetDomainEvents()
	reception.ClearDomainEvents()
	if err := repos.ReceptionRepo().SaveWithLockAndEvents(ctx, reception, events); err != nil {
		return err
	}
	*pending = append(*pending, events...)
	return nil
}

func (s *ReceptionService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish domain events", zap.Error(err), zap.Int("count", len(events)))
	}
}

func (s *ReceptionService) invalidate(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) {
	if s.levelInvalidator == nil || key.ProductID == uuid.Nil {
		return
	}
	if err := s.levelInvalidator.InvalidateLevel(ctx, tenantID, key); err != nil {
		s.logger.Warn("failed to invalidate stock level cache", zap.Error(err))
	}
}

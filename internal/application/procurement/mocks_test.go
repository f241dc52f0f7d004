package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, filter shared.Filter) ([]procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, supplierID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status procurement.PurchaseOrderStatus, filter shared.Filter) ([]procurement.PurchaseOrder, error) {
	args := m.Called(ctx, tenantID, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLockAndEvents(ctx context.Context, order *procurement.PurchaseOrder, events []shared.DomainEvent) error {
	args := m.Called(ctx, order, events)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseOrderRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status procurement.PurchaseOrderStatus) (int64, error) {
	args := m.Called(ctx, tenantID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, tenantID uuid.UUID, orderNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockReceptionRepository is a mock implementation of ReceptionRepository
type MockReceptionRepository struct {
	mock.Mock
}

func (m *MockReceptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.Reception, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.Reception), args.Error(1)
}

func (m *MockReceptionRepository) FindByReceptionNumber(ctx context.Context, tenantID uuid.UUID, receptionNumber string) (*procurement.Reception, error) {
	args := m.Called(ctx, tenantID, receptionNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.Reception), args.Error(1)
}

func (m *MockReceptionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.Reception, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.Reception), args.Error(1)
}

func (m *MockReceptionRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID, filter shared.Filter) ([]procurement.Reception, error) {
	args := m.Called(ctx, tenantID, orderID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.Reception), args.Error(1)
}

func (m *MockReceptionRepository) Save(ctx context.Context, reception *procurement.Reception) error {
	args := m.Called(ctx, reception)
	return args.Error(0)
}

func (m *MockReceptionRepository) SaveWithLock(ctx context.Context, reception *procurement.Reception) error {
	args := m.Called(ctx, reception)
	return args.Error(0)
}

func (m *MockReceptionRepository) SaveWithLockAndEvents(ctx context.Context, reception *procurement.Reception, events []shared.DomainEvent) error {
	args := m.Called(ctx, reception, events)
	return args.Error(0)
}

func (m *MockReceptionRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReceptionRepository) CountActiveByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReceptionRepository) SumActiveReceivedByOrderLine(ctx context.Context, tenantID, orderLineID uuid.UUID, excludeReceptionID *uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, orderLineID, excludeReceptionID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockReceptionRepository) ExistsByReceptionNumber(ctx context.Context, tenantID uuid.UUID, receptionNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, receptionNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockReceptionRepository) GenerateReceptionNumber(ctx context.Context, tenantID uuid.UUID) (string, error) {
	args := m.Called(ctx, tenantID)
	return args.String(0), args.Error(1)
}

// MockSupplierInvoiceRepository is a mock implementation of SupplierInvoiceRepository
type MockSupplierInvoiceRepository struct {
	mock.Mock
}

func (m *MockSupplierInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*procurement.SupplierInvoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.SupplierInvoice), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*procurement.SupplierInvoice, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.SupplierInvoice), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]procurement.SupplierInvoice, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.SupplierInvoice), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) FindByOrder(ctx context.Context, tenantID, orderID uuid.UUID, filter shared.Filter) ([]procurement.SupplierInvoice, error) {
	args := m.Called(ctx, tenantID, orderID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.SupplierInvoice), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) FindBySupplier(ctx context.Context, tenantID, supplierID uuid.UUID, filter shared.Filter) ([]procurement.SupplierInvoice, error) {
	args := m.Called(ctx, tenantID, supplierID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]procurement.SupplierInvoice), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) Save(ctx context.Context, invoice *procurement.SupplierInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockSupplierInvoiceRepository) SaveWithLock(ctx context.Context, invoice *procurement.SupplierInvoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockSupplierInvoiceRepository) SaveWithLockAndEvents(ctx context.Context, invoice *procurement.SupplierInvoice, events []shared.DomainEvent) error {
	args := m.Called(ctx, invoice, events)
	return args.Error(0)
}

func (m *MockSupplierInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

func (m *MockSupplierInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) CountOpenByOrder(ctx context.Context, tenantID, orderID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID, orderID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSupplierInvoiceRepository) ExistsByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (bool, error) {
	args := m.Called(ctx, tenantID, invoiceNumber)
	return args.Bool(0), args.Error(1)
}

// MockLedgerRepository is a mock implementation of stock.LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Append(ctx context.Context, entry *stock.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*stock.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stock.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindByDocumentLine(ctx context.Context, tenantID, documentLineID uuid.UUID) ([]stock.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, documentLineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stock.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) ([]stock.LedgerEntry, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]stock.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) SumDeltas(ctx context.Context, tenantID uuid.UUID, key stock.LevelKey) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedgerRepository) HasEntriesForDocument(ctx context.Context, tenantID, documentID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, documentID)
	return args.Bool(0), args.Error(1)
}

// newTestScope wires the mocks into a no-op transaction scope
func newTestScope(orderRepo *MockPurchaseOrderRepository, receptionRepo *MockReceptionRepository, invoiceRepo *MockSupplierInvoiceRepository, ledgerRepo *MockLedgerRepository) *NoOpTransactionScope {
	return NewNoOpTransactionScope(orderRepo, receptionRepo, invoiceRepo, ledgerRepo)
}

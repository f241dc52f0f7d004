package procurement

import (
	"context"
	"testing"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type invoiceServiceFixture struct {
	service       *SupplierInvoiceService
	invoiceRepo   *MockSupplierInvoiceRepository
	orderRepo     *MockPurchaseOrderRepository
	receptionRepo *MockReceptionRepository
	publisher     *capturingPublisher
	tenantID      uuid.UUID
	supplierID    uuid.UUID
}

func newInvoiceServiceFixture() *invoiceServiceFixture {
	f := &invoiceServiceFixture{
		invoiceRepo:   new(MockSupplierInvoiceRepository),
		orderRepo:     new(MockPurchaseOrderRepository),
		receptionRepo: new(MockReceptionRepository),
		publisher:     &capturingPublisher{},
		tenantID:      uuid.New(),
		supplierID:    uuid.New(),
	}
	f.service = NewSupplierInvoiceService(f.invoiceRepo, f.orderRepo, f.receptionRepo, decimal.RequireFromString("0.001"), nil)
	f.service.SetEventPublisher(f.publisher)
	return f
}

// issuedInvoice builds an invoice with one 10x10.00 line at 20% VAT (TTC 120)
// in PENDING_PAYMENT status.
func (f *invoiceServiceFixture) issuedInvoice(t *testing.T) *procurement.SupplierInvoice {
	t.Helper()
	invoice, err := procurement.NewSupplierInvoice(f.tenantID, "INV-2025-001", f.supplierID)
	require.NoError(t, err)
	rate := decimal.RequireFromString("20")
	_, err = invoice.AddLine(uuid.New(), nil, nil, decimal.NewFromInt(10), decimal.RequireFromString("10.00"), &rate)
	require.NoError(t, err)
	require.NoError(t, invoice.Issue())
	invoice.ClearDomainEvents()
	return invoice
}

func TestSupplierInvoiceService_Create(t *testing.T) {
	t.Run("registers a draft linked to matching orders", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		order, err := procurement.NewPurchaseOrder(f.tenantID, "PO-2025-0001", f.supplierID)
		require.NoError(t, err)

		f.invoiceRepo.On("ExistsByInvoiceNumber", mock.Anything, f.tenantID, "INV-2025-010").Return(false, nil)
		f.orderRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)
		f.invoiceRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.service.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
			InvoiceNumber: "INV-2025-010",
			SupplierID:    f.supplierID,
			OrderIDs:      []uuid.UUID{order.ID},
			Notes:         "Q3 delivery",
		})

		require.NoError(t, err)
		assert.Equal(t, procurement.SupplierInvoiceStatusDraft, resp.Status)
		assert.Equal(t, []uuid.UUID{order.ID}, resp.OrderIDs)
		assert.Equal(t, "Q3 delivery", resp.Notes)
	})

	t.Run("rejects duplicate invoice numbers", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		f.invoiceRepo.On("ExistsByInvoiceNumber", mock.Anything, f.tenantID, "INV-2025-010").Return(true, nil)

		_, err := f.service.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
			InvoiceNumber: "INV-2025-010",
			SupplierID:    f.supplierID,
		})

		assertServiceErrorCode(t, err, "ALREADY_EXISTS")
	})

	t.Run("rejects orders from another supplier", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		order, err := procurement.NewPurchaseOrder(f.tenantID, "PO-2025-0002", uuid.New())
		require.NoError(t, err)

		f.invoiceRepo.On("ExistsByInvoiceNumber", mock.Anything, f.tenantID, "INV-2025-011").Return(false, nil)
		f.orderRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, order.ID).Return(order, nil)

		_, err = f.service.Create(context.Background(), f.tenantID, CreateInvoiceRequest{
			InvoiceNumber: "INV-2025-011",
			SupplierID:    f.supplierID,
			OrderIDs:      []uuid.UUID{order.ID},
		})

		assertServiceErrorCode(t, err, "VALIDATION_ERROR")
	})
}

func TestSupplierInvoiceService_AddLine(t *testing.T) {
	t.Run("validates the referenced reception line", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice, err := procurement.NewSupplierInvoice(f.tenantID, "INV-2025-020", f.supplierID)
		require.NoError(t, err)

		productID := uuid.New()
		reception, err := procurement.NewReception(f.tenantID, "REC-2025-0001", nil, &f.supplierID, stock.WarehouseLocation(uuid.New()))
		require.NoError(t, err)
		receptionLine, err := reception.AddLine(productID, nil, nil, decimal.NewFromInt(5), decimal.NewFromInt(2))
		require.NoError(t, err)

		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)
		f.receptionRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, reception.ID).Return(reception, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)

		resp, err := f.service.AddLine(context.Background(), f.tenantID, invoice.ID, AddInvoiceLineRequest{
			ProductID:       productID,
			ReceptionLineID: &receptionLine.ID,
			ReceptionID:     &reception.ID,
			Description:     "widgets",
			Quantity:        decimal.NewFromInt(5),
			UnitPrice:       decimal.NewFromInt(2),
		})

		require.NoError(t, err)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, "widgets", resp.Lines[0].Description)
		require.NotNil(t, resp.Lines[0].ReceptionLineID)
		assert.Equal(t, receptionLine.ID, *resp.Lines[0].ReceptionLineID)
	})

	t.Run("requires the reception when a reception line is referenced", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice, err := procurement.NewSupplierInvoice(f.tenantID, "INV-2025-021", f.supplierID)
		require.NoError(t, err)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)

		lineID := uuid.New()
		_, err = f.service.AddLine(context.Background(), f.tenantID, invoice.ID, AddInvoiceLineRequest{
			ProductID:       uuid.New(),
			ReceptionLineID: &lineID,
			Quantity:        decimal.NewFromInt(1),
			UnitPrice:       decimal.NewFromInt(1),
		})

		assertServiceErrorCode(t, err, "VALIDATION_ERROR")
	})

	t.Run("rejects a removed reception line", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice, err := procurement.NewSupplierInvoice(f.tenantID, "INV-2025-022", f.supplierID)
		require.NoError(t, err)

		productID := uuid.New()
		reception, err := procurement.NewReception(f.tenantID, "REC-2025-0002", nil, &f.supplierID, stock.WarehouseLocation(uuid.New()))
		require.NoError(t, err)
		receptionLine, err := reception.AddLine(productID, nil, nil, decimal.NewFromInt(5), decimal.NewFromInt(2))
		require.NoError(t, err)
		_, err = reception.RemoveLine(receptionLine.ID)
		require.NoError(t, err)

		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)
		f.receptionRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, reception.ID).Return(reception, nil)

		_, err = f.service.AddLine(context.Background(), f.tenantID, invoice.ID, AddInvoiceLineRequest{
			ProductID:       productID,
			ReceptionLineID: &receptionLine.ID,
			ReceptionID:     &reception.ID,
			Quantity:        decimal.NewFromInt(5),
			UnitPrice:       decimal.NewFromInt(2),
		})

		assertServiceErrorCode(t, err, "NOT_FOUND")
	})
}

func TestSupplierInvoiceService_PaymentFlow(t *testing.T) {
	t.Run("payments accumulate and mark paid emits an event", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice := f.issuedInvoice(t)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)
		f.invoiceRepo.On("SaveWithLockAndEvents", mock.Anything, invoice, mock.Anything).Return(nil)

		resp, err := f.service.RecordPayment(context.Background(), f.tenantID, invoice.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("50.00"), Method: "transfer", Reference: "T-1",
		})
		require.NoError(t, err)
		assert.Equal(t, procurement.SupplierInvoiceStatusPartiallyPaid, resp.Status)
		assert.True(t, resp.PaidAmount.Equal(decimal.RequireFromString("50.00")))

		_, err = f.service.RecordPayment(context.Background(), f.tenantID, invoice.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("70.00"), Method: "transfer", Reference: "T-2",
		})
		require.NoError(t, err)

		resp, err = f.service.MarkPaid(context.Background(), f.tenantID, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.SupplierInvoiceStatusPaid, resp.Status)
		assert.NotNil(t, resp.PaidAt)

		require.NotEmpty(t, f.publisher.events)
		assert.Equal(t, procurement.EventTypeSupplierInvoicePaid, f.publisher.events[0].EventType())
	})

	t.Run("mark paid proceeds despite a payment mismatch", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice := f.issuedInvoice(t)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)
		f.invoiceRepo.On("SaveWithLock", mock.Anything, invoice).Return(nil)
		f.invoiceRepo.On("SaveWithLockAndEvents", mock.Anything, invoice, mock.Anything).Return(nil)

		_, err := f.service.RecordPayment(context.Background(), f.tenantID, invoice.ID, RecordPaymentRequest{
			Amount: decimal.RequireFromString("100.00"),
		})
		require.NoError(t, err)

		// 20.00 short of the 120.00 total, still accepted
		resp, err := f.service.MarkPaid(context.Background(), f.tenantID, invoice.ID)
		require.NoError(t, err)
		assert.Equal(t, procurement.SupplierInvoiceStatusPaid, resp.Status)
	})
}

func TestSupplierInvoiceService_Delete(t *testing.T) {
	t.Run("deletes a draft", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice, err := procurement.NewSupplierInvoice(f.tenantID, "INV-2025-030", f.supplierID)
		require.NoError(t, err)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)
		f.invoiceRepo.On("DeleteForTenant", mock.Anything, f.tenantID, invoice.ID).Return(nil)

		require.NoError(t, f.service.Delete(context.Background(), f.tenantID, invoice.ID))
	})

	t.Run("refuses to delete an issued invoice", func(t *testing.T) {
		f := newInvoiceServiceFixture()
		invoice := f.issuedInvoice(t)
		f.invoiceRepo.On("FindByIDForTenant", mock.Anything, f.tenantID, invoice.ID).Return(invoice, nil)

		err := f.service.Delete(context.Background(), f.tenantID, invoice.ID)

		assertServiceErrorCode(t, err, "INVALID_STATE_TRANSITION")
		f.invoiceRepo.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
	})
}

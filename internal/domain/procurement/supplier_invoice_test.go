package procurement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monetaryTolerance = decimal.RequireFromString("0.001")

func createTestInvoice(t *testing.T) *SupplierInvoice {
	invoice, err := NewSupplierInvoice(uuid.New(), "INV-2026-001", uuid.New())
	require.NoError(t, err)
	return invoice
}

func addTestInvoiceLine(t *testing.T, invoice *SupplierInvoice, quantity, unitPrice string, rate *decimal.Decimal) *InvoiceLine {
	line, err := invoice.AddLine(uuid.New(), nil, nil, decimal.RequireFromString(quantity), decimal.RequireFromString(unitPrice), rate)
	require.NoError(t, err)
	return line
}

func issueTestInvoice(t *testing.T) *SupplierInvoice {
	invoice := createTestInvoice(t)
	addTestInvoiceLine(t, invoice, "10", "10.00", vatRate("20"))
	require.NoError(t, invoice.Issue())
	return invoice
}

// ============================================
// SupplierInvoiceStatus Tests
// ============================================

func TestSupplierInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     SupplierInvoiceStatus
		to       SupplierInvoiceStatus
		canTrans bool
	}{
		{SupplierInvoiceStatusDraft, SupplierInvoiceStatusPendingPayment, true},
		{SupplierInvoiceStatusDraft, SupplierInvoiceStatusCancelled, true},
		{SupplierInvoiceStatusDraft, SupplierInvoiceStatusPaid, false},
		{SupplierInvoiceStatusDraft, SupplierInvoiceStatusVoided, false},
		{SupplierInvoiceStatusPendingPayment, SupplierInvoiceStatusPartiallyPaid, true},
		{SupplierInvoiceStatusPendingPayment, SupplierInvoiceStatusPaid, true},
		{SupplierInvoiceStatusPendingPayment, SupplierInvoiceStatusCancelled, true},
		{SupplierInvoiceStatusPendingPayment, SupplierInvoiceStatusVoided, true},
		{SupplierInvoiceStatusPartiallyPaid, SupplierInvoiceStatusPaid, true},
		{SupplierInvoiceStatusPartiallyPaid, SupplierInvoiceStatusPartiallyPaid, true},
		{SupplierInvoiceStatusPartiallyPaid, SupplierInvoiceStatusVoided, true},
		{SupplierInvoiceStatusPartiallyPaid, SupplierInvoiceStatusCancelled, false},
		{SupplierInvoiceStatusPaid, SupplierInvoiceStatusVoided, false},
		{SupplierInvoiceStatusCancelled, SupplierInvoiceStatusDraft, false},
		{SupplierInvoiceStatusVoided, SupplierInvoiceStatusPendingPayment, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// SupplierInvoice Tests
// ============================================

func TestNewSupplierInvoice(t *testing.T) {
	tenantID := uuid.New()
	supplierID := uuid.New()

	invoice, err := NewSupplierInvoice(tenantID, "INV-1", supplierID)

	require.NoError(t, err)
	assert.Equal(t, tenantID, invoice.TenantID)
	assert.Equal(t, supplierID, invoice.SupplierID)
	assert.Equal(t, SupplierInvoiceStatusDraft, invoice.Status)
	assert.True(t, invoice.TotalTTC.IsZero())
}

func TestSupplierInvoice_AddLine_RecalculatesTotals(t *testing.T) {
	invoice := createTestInvoice(t)

	addTestInvoiceLine(t, invoice, "2", "10.00", vatRate("20"))
	addTestInvoiceLine(t, invoice, "1", "5.00", nil)
	addTestInvoiceLine(t, invoice, "3", "7.50", vatRate("10"))

	assert.True(t, decimal.RequireFromString("47.50").Equal(invoice.TotalHT), "TotalHT = %s", invoice.TotalHT)
	assert.True(t, decimal.RequireFromString("6.25").Equal(invoice.TotalVAT), "TotalVAT = %s", invoice.TotalVAT)
	assert.True(t, decimal.RequireFromString("53.75").Equal(invoice.TotalTTC), "TotalTTC = %s", invoice.TotalTTC)
}

func TestSupplierInvoice_RemoveLine(t *testing.T) {
	invoice := createTestInvoice(t)
	line := addTestInvoiceLine(t, invoice, "2", "10.00", nil)
	addTestInvoiceLine(t, invoice, "1", "5.00", nil)

	require.NoError(t, invoice.RemoveLine(line.ID))

	assert.Len(t, invoice.Lines, 1)
	assert.True(t, decimal.NewFromInt(5).Equal(invoice.TotalHT))
}

func TestSupplierInvoice_LinkOrder(t *testing.T) {
	invoice := createTestInvoice(t)
	orderA := uuid.New()
	orderB := uuid.New()

	require.NoError(t, invoice.LinkOrder(orderA))
	require.NoError(t, invoice.LinkOrder(orderB))
	require.NoError(t, invoice.LinkOrder(orderA)) // idempotent

	assert.ElementsMatch(t, []uuid.UUID{orderA, orderB}, invoice.LinkedOrderIDs())

	require.NoError(t, invoice.UnlinkOrder(orderA))
	assert.Equal(t, []uuid.UUID{orderB}, invoice.LinkedOrderIDs())
}

func TestSupplierInvoice_Issue(t *testing.T) {
	invoice := createTestInvoice(t)
	addTestInvoiceLine(t, invoice, "1", "10.00", nil)

	require.NoError(t, invoice.Issue())
	assert.Equal(t, SupplierInvoiceStatusPendingPayment, invoice.Status)

	// issued invoices reject line mutation
	_, err := invoice.AddLine(uuid.New(), nil, nil, decimal.NewFromInt(1), decimal.NewFromInt(1), nil)
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestSupplierInvoice_Issue_RequiresLines(t *testing.T) {
	invoice := createTestInvoice(t)

	err := invoice.Issue()
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")
}

func TestSupplierInvoice_PaymentFlow(t *testing.T) {
	invoice := issueTestInvoice(t) // TTC = 120.00

	require.NoError(t, invoice.RecordPayment(decimal.NewFromInt(50), "TRANSFER", "PAY-1", time.Now()))
	assert.Equal(t, SupplierInvoiceStatusPartiallyPaid, invoice.Status)
	assert.True(t, decimal.NewFromInt(50).Equal(invoice.PaidAmount()))

	require.NoError(t, invoice.RecordPayment(decimal.NewFromInt(70), "TRANSFER", "PAY-2", time.Now()))
	assert.True(t, decimal.NewFromInt(120).Equal(invoice.PaidAmount()))
	assert.True(t, invoice.PaymentMismatch(monetaryTolerance).IsZero())

	require.NoError(t, invoice.MarkPaid())
	assert.Equal(t, SupplierInvoiceStatusPaid, invoice.Status)
	assert.NotNil(t, invoice.PaidAt)

	events := invoice.GetDomainEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeSupplierInvoicePaid, events[0].EventType())
}

func TestSupplierInvoice_PaymentMismatch(t *testing.T) {
	invoice := issueTestInvoice(t) // TTC = 120.00
	require.NoError(t, invoice.RecordPayment(decimal.NewFromInt(100), "TRANSFER", "PAY-1", time.Now()))

	mismatch := invoice.PaymentMismatch(monetaryTolerance)
	assert.True(t, decimal.NewFromInt(-20).Equal(mismatch), "mismatch = %s", mismatch)

	// mismatch does not block MarkPaid
	require.NoError(t, invoice.MarkPaid())
	assert.Equal(t, SupplierInvoiceStatusPaid, invoice.Status)
}

func TestSupplierInvoice_RecordPayment_Validation(t *testing.T) {
	invoice := issueTestInvoice(t)

	err := invoice.RecordPayment(decimal.Zero, "CASH", "", time.Now())
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")

	draft := createTestInvoice(t)
	err = draft.RecordPayment(decimal.NewFromInt(10), "CASH", "", time.Now())
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestSupplierInvoice_Cancel(t *testing.T) {
	invoice := issueTestInvoice(t)

	require.NoError(t, invoice.Cancel())
	assert.Equal(t, SupplierInvoiceStatusCancelled, invoice.Status)
	assert.NotNil(t, invoice.CancelledAt)

	require.NoError(t, invoice.Cancel()) // idempotent
}

func TestSupplierInvoice_Cancel_AfterPayment(t *testing.T) {
	invoice := issueTestInvoice(t)
	require.NoError(t, invoice.RecordPayment(decimal.NewFromInt(10), "CASH", "", time.Now()))

	err := invoice.Cancel()
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestSupplierInvoice_Void_AfterPartialPayment(t *testing.T) {
	invoice := issueTestInvoice(t)
	require.NoError(t, invoice.RecordPayment(decimal.NewFromInt(10), "CASH", "", time.Now()))

	require.NoError(t, invoice.Void())
	assert.Equal(t, SupplierInvoiceStatusVoided, invoice.Status)
	assert.NotNil(t, invoice.VoidedAt)
}

func TestSupplierInvoice_TerminalAllowList(t *testing.T) {
	invoice := issueTestInvoice(t)
	require.NoError(t, invoice.RecordPayment(decimal.NewFromInt(120), "TRANSFER", "PAY-1", time.Now()))
	require.NoError(t, invoice.MarkPaid())

	// notes and attachment stay editable after the terminal transition
	invoice.SetNotes("archived scan attached")
	invoice.SetAttachmentURL("https://files.example.com/inv-1.pdf")
	assert.Equal(t, "archived scan attached", invoice.Notes)

	// everything else is frozen
	err := invoice.SetDueDate(time.Now())
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
	err = invoice.RemoveLine(invoice.Lines[0].ID)
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
	err = invoice.LinkOrder(uuid.New())
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

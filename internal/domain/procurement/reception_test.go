package procurement

import (
	"testing"
	"time"

	"github.com/erp/procurement/internal/domain/stock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers for Reception
func createTestReception(t *testing.T) *Reception {
	orderID := uuid.New()
	supplierID := uuid.New()
	reception, err := NewReception(uuid.New(), "REC-2026-001", &orderID, &supplierID, stock.WarehouseLocation(uuid.New()))
	require.NoError(t, err)
	return reception
}

func createStandaloneReception(t *testing.T) *Reception {
	reception, err := NewReception(uuid.New(), "REC-2026-002", nil, nil, stock.ShopLocation(uuid.New()))
	require.NoError(t, err)
	return reception
}

func addTestReceptionLine(t *testing.T, r *Reception, quantity string) *ReceptionLine {
	orderLineID := uuid.New()
	line, err := r.AddLine(uuid.New(), nil, &orderLineID, decimal.RequireFromString(quantity), decimal.RequireFromString("1.50"))
	require.NoError(t, err)
	return line
}

// ============================================
// ReceptionStatus Tests
// ============================================

func TestReceptionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     ReceptionStatus
		to       ReceptionStatus
		canTrans bool
	}{
		{ReceptionStatusPendingQualityCheck, ReceptionStatusPartial, true},
		{ReceptionStatusPendingQualityCheck, ReceptionStatusComplete, true},
		{ReceptionStatusPendingQualityCheck, ReceptionStatusCancelled, true},
		{ReceptionStatusPartial, ReceptionStatusPartial, true},
		{ReceptionStatusPartial, ReceptionStatusComplete, true},
		{ReceptionStatusPartial, ReceptionStatusCancelled, true},
		{ReceptionStatusComplete, ReceptionStatusPartial, false},
		{ReceptionStatusComplete, ReceptionStatusCancelled, false},
		{ReceptionStatusCancelled, ReceptionStatusPartial, false},
		{ReceptionStatusCancelled, ReceptionStatusComplete, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestReceptionStatus_IsMutable(t *testing.T) {
	assert.True(t, ReceptionStatusPendingQualityCheck.IsMutable())
	assert.True(t, ReceptionStatusPartial.IsMutable())
	assert.False(t, ReceptionStatusComplete.IsMutable())
	assert.False(t, ReceptionStatusCancelled.IsMutable())
}

// ============================================
// Reception Tests
// ============================================

func TestNewReception(t *testing.T) {
	tenantID := uuid.New()
	warehouseID := uuid.New()

	reception, err := NewReception(tenantID, "REC-1", nil, nil, stock.WarehouseLocation(warehouseID))

	require.NoError(t, err)
	assert.Equal(t, tenantID, reception.TenantID)
	assert.Equal(t, ReceptionStatusPendingQualityCheck, reception.Status)
	assert.False(t, reception.IsOrderLinked())
	require.NotNil(t, reception.Location.WarehouseID)
	assert.Equal(t, warehouseID, *reception.Location.WarehouseID)
}

func TestNewReception_InvalidLocation(t *testing.T) {
	_, err := NewReception(uuid.New(), "REC-1", nil, nil, stock.Location{})
	assertDomainErrorCode(t, err, "INVALID_LOCATION")

	warehouseID := uuid.New()
	shopID := uuid.New()
	_, err = NewReception(uuid.New(), "REC-1", nil, nil, stock.Location{WarehouseID: &warehouseID, ShopID: &shopID})
	assertDomainErrorCode(t, err, "INVALID_LOCATION")
}

func TestReception_AddLine(t *testing.T) {
	reception := createTestReception(t)

	line := addTestReceptionLine(t, reception, "4")

	assert.Len(t, reception.Lines, 1)
	assert.True(t, line.Active)
	assert.True(t, decimal.NewFromInt(4).Equal(reception.TotalReceivedQuantity()))
}

func TestReception_AddLine_DuplicateTriple(t *testing.T) {
	reception := createTestReception(t)
	productID := uuid.New()
	orderLineID := uuid.New()

	_, err := reception.AddLine(productID, nil, &orderLineID, decimal.NewFromInt(2), decimal.NewFromInt(1))
	require.NoError(t, err)

	_, err = reception.AddLine(productID, nil, &orderLineID, decimal.NewFromInt(3), decimal.NewFromInt(1))
	assertDomainErrorCode(t, err, "ALREADY_EXISTS")
}

func TestReception_AddLine_ReaddAfterRemove(t *testing.T) {
	reception := createTestReception(t)
	productID := uuid.New()
	orderLineID := uuid.New()

	line, err := reception.AddLine(productID, nil, &orderLineID, decimal.NewFromInt(2), decimal.NewFromInt(1))
	require.NoError(t, err)
	_, err = reception.RemoveLine(line.ID)
	require.NoError(t, err)

	// the inactive line no longer blocks the triple
	_, err = reception.AddLine(productID, nil, &orderLineID, decimal.NewFromInt(5), decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Len(t, reception.ActiveLines(), 1)
	assert.Len(t, reception.Lines, 2)
}

func TestReception_UpdateLineQuantity_ReturnsDelta(t *testing.T) {
	reception := createTestReception(t)
	line := addTestReceptionLine(t, reception, "4")

	delta, err := reception.UpdateLineQuantity(line.ID, decimal.NewFromInt(7))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(3).Equal(delta))

	delta, err = reception.UpdateLineQuantity(line.ID, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-5).Equal(delta))
}

func TestReception_UpdateLineQuantity_Invalid(t *testing.T) {
	reception := createTestReception(t)
	line := addTestReceptionLine(t, reception, "4")

	_, err := reception.UpdateLineQuantity(line.ID, decimal.Zero)
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")

	_, err = reception.UpdateLineQuantity(uuid.New(), decimal.NewFromInt(1))
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestReception_RemoveLine(t *testing.T) {
	reception := createTestReception(t)
	line := addTestReceptionLine(t, reception, "4")

	removed, err := reception.RemoveLine(line.ID)

	require.NoError(t, err)
	assert.False(t, removed.Active)
	assert.True(t, decimal.NewFromInt(4).Equal(removed.Quantity))
	assert.Empty(t, reception.ActiveLines())
	assert.True(t, reception.TotalReceivedQuantity().IsZero())
}

func TestReception_RemoveLine_Twice(t *testing.T) {
	reception := createTestReception(t)
	line := addTestReceptionLine(t, reception, "4")

	_, err := reception.RemoveLine(line.ID)
	require.NoError(t, err)

	_, err = reception.RemoveLine(line.ID)
	assertDomainErrorCode(t, err, "NOT_FOUND")
}

func TestReception_RecalculateStatus(t *testing.T) {
	reception := createTestReception(t)

	reception.RecalculateStatus(false)
	assert.Equal(t, ReceptionStatusPendingQualityCheck, reception.Status)

	addTestReceptionLine(t, reception, "4")
	reception.RecalculateStatus(false)
	assert.Equal(t, ReceptionStatusPartial, reception.Status)

	reception.RecalculateStatus(true)
	assert.Equal(t, ReceptionStatusComplete, reception.Status)
	assert.NotNil(t, reception.CompletedAt)

	// terminal: further recalculation is a no-op
	reception.RecalculateStatus(false)
	assert.Equal(t, ReceptionStatusComplete, reception.Status)
}

func TestReception_Standalone_StaysPartialUntilCompleted(t *testing.T) {
	reception := createStandaloneReception(t)
	_, err := reception.AddLine(uuid.New(), nil, nil, decimal.NewFromInt(4), decimal.NewFromInt(1))
	require.NoError(t, err)

	// order-less receptions never auto-complete
	reception.RecalculateStatus(true)
	assert.Equal(t, ReceptionStatusPartial, reception.Status)

	require.NoError(t, reception.Complete())
	assert.Equal(t, ReceptionStatusComplete, reception.Status)
}

func TestReception_Complete_RequiresLines(t *testing.T) {
	reception := createTestReception(t)

	err := reception.Complete()
	assertDomainErrorCode(t, err, "VALIDATION_ERROR")
}

func TestReception_Cancel(t *testing.T) {
	reception := createTestReception(t)
	addTestReceptionLine(t, reception, "4")

	require.NoError(t, reception.Cancel())
	assert.Equal(t, ReceptionStatusCancelled, reception.Status)
	assert.NotNil(t, reception.CancelledAt)

	// no mutation after cancel
	_, err := reception.AddLine(uuid.New(), nil, nil, decimal.NewFromInt(1), decimal.NewFromInt(1))
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestReception_Cancel_Terminal(t *testing.T) {
	reception := createTestReception(t)
	addTestReceptionLine(t, reception, "4")
	require.NoError(t, reception.Complete())

	err := reception.Cancel()
	assertDomainErrorCode(t, err, "INVALID_STATE_TRANSITION")
}

func TestReceptionLine_SetLot(t *testing.T) {
	reception := createTestReception(t)
	line := addTestReceptionLine(t, reception, "4")
	expiry := time.Now().AddDate(1, 0, 0)

	line.SetLot("LOT-42", &expiry)

	assert.Equal(t, "LOT-42", line.LotNumber)
	require.NotNil(t, line.ExpiryDate)
	assert.Equal(t, expiry, *line.ExpiryDate)
}

package procurement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func vatRate(rate string) *decimal.Decimal {
	r := decimal.RequireFromString(rate)
	return &r
}

func TestCalculateTotals_Empty(t *testing.T) {
	totals := CalculateTotals(nil)

	assert.True(t, totals.TotalHT.IsZero())
	assert.True(t, totals.TotalVAT.IsZero())
	assert.True(t, totals.TotalTTC.IsZero())
}

func TestCalculateTotals_MixedVatRates(t *testing.T) {
	lines := []TotalsLine{
		{Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("10.00"), VatRate: vatRate("20")},
		{Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("5.00"), VatRate: nil},
		{Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("7.50"), VatRate: vatRate("10")},
	}

	totals := CalculateTotals(lines)

	assert.True(t, decimal.RequireFromString("47.50").Equal(totals.TotalHT), "TotalHT = %s", totals.TotalHT)
	assert.True(t, decimal.RequireFromString("6.25").Equal(totals.TotalVAT), "TotalVAT = %s", totals.TotalVAT)
	assert.True(t, decimal.RequireFromString("53.75").Equal(totals.TotalTTC), "TotalTTC = %s", totals.TotalTTC)
}

func TestCalculateTotals_ZeroVatRateEqualsNil(t *testing.T) {
	withZero := CalculateTotals([]TotalsLine{
		{Quantity: decimal.NewFromInt(4), UnitPrice: decimal.RequireFromString("2.25"), VatRate: vatRate("0")},
	})
	withNil := CalculateTotals([]TotalsLine{
		{Quantity: decimal.NewFromInt(4), UnitPrice: decimal.RequireFromString("2.25"), VatRate: nil},
	})

	assert.True(t, withZero.TotalHT.Equal(withNil.TotalHT))
	assert.True(t, withZero.TotalVAT.IsZero())
	assert.True(t, withNil.TotalVAT.IsZero())
	assert.True(t, withZero.TotalTTC.Equal(withNil.TotalTTC))
}

func TestCalculateTotals_RoundsPerLineBeforeSummation(t *testing.T) {
	// 3 * 0.33335 = 1.000050 rounds to 1.0001 per line, then the header sums
	// rounded line totals
	lines := []TotalsLine{
		{Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("0.33335")},
		{Quantity: decimal.NewFromInt(3), UnitPrice: decimal.RequireFromString("0.33335")},
	}

	totals := CalculateTotals(lines)

	assert.True(t, decimal.RequireFromString("2.0002").Equal(totals.TotalHT), "TotalHT = %s", totals.TotalHT)
}

func TestCalculateTotals_Deterministic(t *testing.T) {
	lines := []TotalsLine{
		{Quantity: decimal.RequireFromString("1.5"), UnitPrice: decimal.RequireFromString("9.99"), VatRate: vatRate("5.5")},
		{Quantity: decimal.NewFromInt(7), UnitPrice: decimal.RequireFromString("0.07"), VatRate: vatRate("20")},
	}

	first := CalculateTotals(lines)
	second := CalculateTotals(lines)

	assert.True(t, first.TotalHT.Equal(second.TotalHT))
	assert.True(t, first.TotalVAT.Equal(second.TotalVAT))
	assert.True(t, first.TotalTTC.Equal(second.TotalTTC))
}

func TestZeroTotals(t *testing.T) {
	totals := ZeroTotals()

	assert.True(t, totals.TotalHT.IsZero())
	assert.True(t, totals.TotalVAT.IsZero())
	assert.True(t, totals.TotalTTC.IsZero())
}

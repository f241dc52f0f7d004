package procurement

import (
	"github.com/shopspring/decimal"
)

// totalsScale is the number of decimal places every line and header total is
// rounded to before summation, so drift cannot compound across lines.
const totalsScale = 4

// TotalsLine is the projection of any document line the totals calculator needs
type TotalsLine struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	VatRate   *decimal.Decimal // percentage, nil means no VAT
}

// DocumentTotals holds the recomputed header amounts of a document
type DocumentTotals struct {
	TotalHT  decimal.Decimal `json:"total_ht"`  // untaxed
	TotalVAT decimal.Decimal `json:"total_vat"` // tax
	TotalTTC decimal.Decimal `json:"total_ttc"` // gross
}

// ZeroTotals returns all-zero document totals
func ZeroTotals() DocumentTotals {
	return DocumentTotals{
		TotalHT:  decimal.Zero,
		TotalVAT: decimal.Zero,
		TotalTTC: decimal.Zero,
	}
}

// CalculateTotals recomputes header totals from the current line collection.
// Pure function: the same lines always yield the same totals. Each line total
// is rounded before summation and each header total is rounded again.
func CalculateTotals(lines []TotalsLine) DocumentTotals {
	totalHT := decimal.Zero
	totalVAT := decimal.Zero

	for _, line := range lines {
		lineHT := line.Quantity.Mul(line.UnitPrice).Round(totalsScale)
		totalHT = totalHT.Add(lineHT)

		if line.VatRate != nil && !line.VatRate.IsZero() {
			lineVAT := lineHT.Mul(*line.VatRate).Div(decimal.NewFromInt(100)).Round(totalsScale)
			totalVAT = totalVAT.Add(lineVAT)
		}
	}

	totalHT = totalHT.Round(totalsScale)
	totalVAT = totalVAT.Round(totalsScale)

	return DocumentTotals{
		TotalHT:  totalHT,
		TotalVAT: totalVAT,
		TotalTTC: totalHT.Add(totalVAT).Round(totalsScale),
	}
}

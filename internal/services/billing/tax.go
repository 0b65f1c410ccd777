package billing

import "github.com/shopspring/decimal"

// vatFactor is 1 + the fixed 25% VAT rate. Prices are VAT-inclusive.
var vatFactor = decimal.NewFromFloat(1.25)

// splitTax decomposes a VAT-inclusive total (minor units) into the ex-tax
// amount and the tax share. The ex-tax amount truncates toward zero; the tax
// picks up the remainder so the parts always sum to the total.
func splitTax(totalMinor int64) (exTax, tax int64) {
	exTax = decimal.NewFromInt(totalMinor).Div(vatFactor).IntPart()
	tax = totalMinor - exTax
	return exTax, tax
}

package money

import (
	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// FromInt creates decimal from int
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// FromFloat creates decimal from float with rounding to 2 places (COP cents)
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Round2 rounds to 2 decimal places
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineSubtotal computes quantity * unit price, rounded to 2 places
func LineSubtotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}

// TaxAmount computes amount * (ratePercent/100), rounded to 2 places
func TaxAmount(amount, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return Zero
	}
	return amount.Mul(ratePercent).Div(hundred).Round(2)
}

// Render formats an amount with exactly two decimal places
func Render(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

package domain

import "github.com/shopspring/decimal"

var (
	percentDivisor = decimal.NewFromInt(100)
	maxPercent     = decimal.NewFromInt(100)
)

// Totals holds the derived amounts for a cart snapshot
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Total          decimal.Decimal `json:"total"`
}

// ComputeTotals derives subtotal, discount amount and grand total from a
// cart snapshot. It is pure and stateless.
//
// A percentage value is clamped into [0,100] before it is applied, so an
// out-of-range spec can never produce a negative total. A fixed discount is
// clamped to the subtotal. All amounts are rounded half away from zero to
// 2 decimal places.
func ComputeTotals(cart *Cart) Totals {
	subtotal := decimal.Zero
	for i := range cart.Lines {
		subtotal = subtotal.Add(cart.Lines[i].Subtotal)
	}
	subtotal = subtotal.Round(2)

	discount := discountAmount(cart.Discount, subtotal)

	return Totals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		Total:          subtotal.Sub(discount).Round(2),
	}
}

func discountAmount(spec DiscountSpec, subtotal decimal.Decimal) decimal.Decimal {
	if spec.Type == DiscountNone || spec.Value.IsZero() {
		return decimal.Zero
	}

	switch spec.Type {
	case DiscountPercentage:
		pct := spec.Value
		if pct.IsNegative() {
			pct = decimal.Zero
		}
		if pct.GreaterThan(maxPercent) {
			pct = maxPercent
		}
		return subtotal.Mul(pct).Div(percentDivisor).Round(2)
	case DiscountFixed:
		value := spec.Value
		if value.IsNegative() {
			return decimal.Zero
		}
		// Clamp so the discount never exceeds what it is applied to.
		if value.GreaterThan(subtotal) {
			return subtotal
		}
		return value.Round(2)
	}
	return decimal.Zero
}

// Package compute holds the pure business computations of the POS client:
// order totals, margins, stock classification, utilization, analytics
// windows, date-range validation, and pagination. Nothing here performs I/O
// or reads the wall clock, and every function is defined for every input.
package compute

import (
	"github.com/shopspring/decimal"

	"posync/internal/domain"
)

// MoneyPlaces is the number of fractional digits kept on money outputs.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// OrderTotals computes subtotal, discount, tax, and total for a set of order
// lines. A percentage discount is taken from the subtotal; any other discount
// type is a fixed amount. The discount is clamped to [0, subtotal] and a
// negative tax rate is treated as 0.
//
// Intermediates stay unrounded; only the four returned fields are rounded
// half-up to two places.
func OrderTotals(items []domain.OrderLine, taxRate, discountAmount decimal.Decimal, discountType domain.DiscountType) domain.OrderTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		qty := it.Quantity
		if qty < 0 {
			qty = 0
		}
		price := it.UnitPrice
		if price.IsNegative() {
			price = decimal.Zero
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(qty)))
	}

	var raw decimal.Decimal
	if discountType == domain.DiscountPercentage {
		raw = subtotal.Mul(discountAmount).Div(hundred)
	} else {
		raw = discountAmount
	}
	discount := clamp(raw, decimal.Zero, subtotal)

	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}
	taxable := subtotal.Sub(discount)
	tax := taxable.Mul(taxRate).Div(hundred)
	total := taxable.Add(tax)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return domain.OrderTotals{
		Subtotal:       roundMoney(subtotal),
		DiscountAmount: roundMoney(discount),
		TaxAmount:      roundMoney(tax),
		TotalAmount:    roundMoney(total),
	}
}

// Totals computes the totals of an OrderInput.
func Totals(in domain.OrderInput) domain.OrderTotals {
	return OrderTotals(in.Items, in.TaxRate, in.Discount.Amount, in.Discount.Type)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// roundMoney rounds half away from zero, which is half-up for the
// non-negative amounts produced here.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

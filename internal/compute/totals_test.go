package compute

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"posync/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lines() []domain.OrderLine {
	return []domain.OrderLine{
		{Name: "Burger", Quantity: 2, UnitPrice: dec("5.00")},
		{Name: "Salad", Quantity: 1, UnitPrice: dec("8.50")},
	}
}

func assertTotals(t *testing.T, got domain.OrderTotals, subtotal, discount, tax, total string) {
	t.Helper()
	if !got.Subtotal.Equal(dec(subtotal)) {
		t.Errorf("Subtotal = %s, want %s", got.Subtotal, subtotal)
	}
	if !got.DiscountAmount.Equal(dec(discount)) {
		t.Errorf("DiscountAmount = %s, want %s", got.DiscountAmount, discount)
	}
	if !got.TaxAmount.Equal(dec(tax)) {
		t.Errorf("TaxAmount = %s, want %s", got.TaxAmount, tax)
	}
	if !got.TotalAmount.Equal(dec(total)) {
		t.Errorf("TotalAmount = %s, want %s", got.TotalAmount, total)
	}
}

func TestOrderTotalsNoDiscount(t *testing.T) {
	got := OrderTotals(lines(), dec("10"), decimal.Zero, domain.DiscountFixed)
	assertTotals(t, got, "18.50", "0.00", "1.85", "20.35")
	if got.TotalAmount.StringFixed(2) != "20.35" {
		t.Errorf("TotalAmount.StringFixed(2) = %s, want 20.35", got.TotalAmount.StringFixed(2))
	}
}

func TestOrderTotalsPercentageDiscount(t *testing.T) {
	got := OrderTotals(lines(), dec("10"), dec("10"), domain.DiscountPercentage)
	// taxable 16.65, tax 1.665 rounds half-up to 1.67, total 18.315 -> 18.32
	assertTotals(t, got, "18.50", "1.85", "1.67", "18.32")
}

func TestOrderTotalsFixedDiscountClamped(t *testing.T) {
	got := OrderTotals(lines(), dec("10"), dec("25"), domain.DiscountFixed)
	assertTotals(t, got, "18.50", "18.50", "0", "0")

	got = OrderTotals(lines(), dec("10"), dec("-3"), domain.DiscountFixed)
	assertTotals(t, got, "18.50", "0", "1.85", "20.35")

	got = OrderTotals(lines(), dec("0"), dec("150"), domain.DiscountPercentage)
	assertTotals(t, got, "18.50", "18.50", "0", "0")
}

func TestOrderTotalsUnknownDiscountTypeIsFixed(t *testing.T) {
	got := OrderTotals(lines(), dec("0"), dec("2.5"), domain.DiscountType("coupon"))
	assertTotals(t, got, "18.50", "2.50", "0", "16.00")
}

func TestOrderTotalsEmptyAndNegativeLines(t *testing.T) {
	got := OrderTotals(nil, dec("10"), dec("5"), domain.DiscountFixed)
	assertTotals(t, got, "0", "0", "0", "0")

	bad := []domain.OrderLine{
		{Quantity: -2, UnitPrice: dec("4")},
		{Quantity: 3, UnitPrice: dec("-1")},
		{Quantity: 1, UnitPrice: dec("1.005")},
	}
	got = OrderTotals(bad, decimal.Zero, decimal.Zero, domain.DiscountFixed)
	assertTotals(t, got, "1.01", "0", "0", "1.01")
}

func TestOrderTotalsNegativeTaxRateIsZero(t *testing.T) {
	got := OrderTotals(lines(), dec("-8.25"), decimal.Zero, domain.DiscountFixed)
	assertTotals(t, got, "18.50", "0", "0", "18.50")

	// -0.5% of 1.00 would round to -0.01 away from zero.
	items := []domain.OrderLine{{Quantity: 1, UnitPrice: dec("1.00")}}
	got = OrderTotals(items, dec("-0.5"), decimal.Zero, domain.DiscountFixed)
	assertTotals(t, got, "1.00", "0", "0", "1.00")
}

func TestOrderTotalsRoundsFromUnroundedIntermediates(t *testing.T) {
	// subtotal 1.004 -> 1.00, tax 0.502 -> 0.50, total 1.506 -> 1.51.
	// Adding the rounded parts would give 1.50.
	items := []domain.OrderLine{{Quantity: 4, UnitPrice: dec("0.251")}}
	got := OrderTotals(items, dec("50"), decimal.Zero, domain.DiscountFixed)
	assertTotals(t, got, "1.00", "0", "0.50", "1.51")

	// 7.5% tax on 0.10: tax 0.0075 -> 0.01, total 0.1075 -> 0.11.
	items = []domain.OrderLine{{Quantity: 1, UnitPrice: dec("0.10")}}
	got = OrderTotals(items, dec("7.5"), decimal.Zero, domain.DiscountFixed)
	assertTotals(t, got, "0.10", "0", "0.01", "0.11")
}

func TestTotalsFromInput(t *testing.T) {
	in := domain.OrderInput{
		Items:    lines(),
		TaxRate:  dec("10"),
		Discount: domain.Discount{Type: domain.DiscountPercentage, Amount: dec("10")},
	}
	assertTotals(t, Totals(in), "18.50", "1.85", "1.67", "18.32")
}

func TestOrderTotalsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []domain.DiscountType{domain.DiscountFixed, domain.DiscountPercentage}

	for i := 0; i < 500; i++ {
		n := rng.Intn(6)
		items := make([]domain.OrderLine, n)
		want := decimal.Zero
		for j := range items {
			qty := int64(rng.Intn(20))
			price := decimal.New(int64(rng.Intn(100000)), -2)
			items[j] = domain.OrderLine{Quantity: qty, UnitPrice: price}
			want = want.Add(price.Mul(decimal.NewFromInt(qty)))
		}
		tax := decimal.New(int64(rng.Intn(3000)), -2)
		disc := decimal.New(int64(rng.Intn(40000)-5000), -2)
		typ := types[rng.Intn(len(types))]

		got := OrderTotals(items, tax, disc, typ)

		if !got.Subtotal.Equal(want.Round(2)) {
			t.Fatalf("case %d: Subtotal = %s, want %s", i, got.Subtotal, want.Round(2))
		}
		if got.DiscountAmount.IsNegative() || got.DiscountAmount.GreaterThan(got.Subtotal) {
			t.Fatalf("case %d: DiscountAmount %s outside [0, %s]", i, got.DiscountAmount, got.Subtotal)
		}
		if got.TotalAmount.IsNegative() {
			t.Fatalf("case %d: TotalAmount %s is negative", i, got.TotalAmount)
		}
		if got.TotalAmount.Exponent() < -2 || got.TaxAmount.Exponent() < -2 {
			t.Fatalf("case %d: outputs not rounded to cents: %+v", i, got)
		}
		// Deterministic: same input, same output.
		again := OrderTotals(items, tax, disc, typ)
		if !again.TotalAmount.Equal(got.TotalAmount) || !again.TaxAmount.Equal(got.TaxAmount) {
			t.Fatalf("case %d: non-deterministic totals %+v vs %+v", i, got, again)
		}
	}
}

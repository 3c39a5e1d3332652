package domain

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how an order discount amount is interpreted.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// OrderLine is a single line of an order. Name and ProductID are carried
// through but never computed on.
type OrderLine struct {
	Name      string          `json:"name,omitempty"`
	ProductID string          `json:"product_id,omitempty"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// UnmarshalJSON decodes an order line leniently: quantity and unit_price may
// arrive as numbers or numeric strings, and anything malformed or negative
// becomes zero. Partially-filled form state must never fail to decode.
func (l *OrderLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string          `json:"name"`
		ProductID string          `json:"product_id"`
		Quantity  json.RawMessage `json:"quantity"`
		UnitPrice json.RawMessage `json:"unit_price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.Name = raw.Name
	l.ProductID = raw.ProductID
	l.Quantity = LooseDecimal(raw.Quantity).IntPart()
	if l.Quantity < 0 {
		l.Quantity = 0
	}
	l.UnitPrice = LooseDecimal(raw.UnitPrice)
	if l.UnitPrice.IsNegative() {
		l.UnitPrice = decimal.Zero
	}
	return nil
}

// Discount describes an order-level discount.
type Discount struct {
	Type   DiscountType    `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// UnmarshalJSON decodes the amount leniently.
func (d *Discount) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   DiscountType    `json:"type"`
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Type = raw.Type
	d.Amount = LooseDecimal(raw.Amount)
	return nil
}

// OrderInput is what callers supply to compute order totals.
type OrderInput struct {
	Items    []OrderLine     `json:"items"`
	TaxRate  decimal.Decimal `json:"taxRate"`
	Discount Discount        `json:"discount"`
}

// UnmarshalJSON decodes the tax rate leniently.
func (in *OrderInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Items    []OrderLine     `json:"items"`
		TaxRate  json.RawMessage `json:"taxRate"`
		Discount Discount        `json:"discount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	in.Items = raw.Items
	in.TaxRate = LooseDecimal(raw.TaxRate)
	in.Discount = raw.Discount
	return nil
}

// OrderTotals holds the computed money fields of an order, each rounded to
// two decimal places.
type OrderTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
}

// CompletedOrder is the payload of an order:completed message.
type CompletedOrder struct {
	OrderID string `json:"order_id"`
	// CompletedAt is when the POS closed the order, read from completed_at
	// or completedAt. Zero when the payload carries neither.
	CompletedAt time.Time `json:"completed_at"`
	OrderInput
}

// UnmarshalJSON decodes the embedded input leniently. The embedded type's
// UnmarshalJSON would otherwise be promoted and drop OrderID.
func (o *CompletedOrder) UnmarshalJSON(data []byte) error {
	var head struct {
		OrderID     string          `json:"order_id"`
		CompletedAt json.RawMessage `json:"completed_at"`
		CamelAt     json.RawMessage `json:"completedAt"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if err := o.OrderInput.UnmarshalJSON(data); err != nil {
		return err
	}
	o.OrderID = head.OrderID
	o.CompletedAt = ParseTimestamp(head.CompletedAt)
	if o.CompletedAt.IsZero() {
		o.CompletedAt = ParseTimestamp(head.CamelAt)
	}
	return nil
}

// ItemCount returns the total quantity across all lines.
func (in OrderInput) ItemCount() int64 {
	var n int64
	for _, l := range in.Items {
		n += l.Quantity
	}
	return n
}

// LooseDecimal decodes a JSON number or numeric string into a decimal. Empty,
// null, or malformed input yields zero.
func LooseDecimal(raw json.RawMessage) decimal.Decimal {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unq)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

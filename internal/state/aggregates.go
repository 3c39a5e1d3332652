package state

import (
	"github.com/shopspring/decimal"

	"posync/internal/compute"
)

// Stock summarizes inventory across products.
type Stock struct {
	TotalProducts int64           `json:"total_products"`
	TotalUnits    int64           `json:"total_units"`
	TotalValue    decimal.Decimal `json:"total_value"`
	OutOfStock    int64           `json:"out_of_stock"`
	ReorderNeeded int64           `json:"reorder_needed"`
	LowStock      int64           `json:"low_stock"`

	// Derived.
	AverageUnitValue decimal.Decimal `json:"average_unit_value"`
	InStock          int64           `json:"in_stock"`
	OutOfStockPct    float64         `json:"out_of_stock_pct"`
	ReorderNeededPct float64         `json:"reorder_needed_pct"`
	LowStockPct      float64         `json:"low_stock_pct"`
	InStockPct       float64         `json:"in_stock_pct"`
}

// StockPartial carries the Stock base fields to change. Nil fields are left
// untouched.
type StockPartial struct {
	TotalProducts *int64           `json:"total_products,omitempty"`
	TotalUnits    *int64           `json:"total_units,omitempty"`
	TotalValue    *decimal.Decimal `json:"total_value,omitempty"`
	OutOfStock    *int64           `json:"out_of_stock,omitempty"`
	ReorderNeeded *int64           `json:"reorder_needed,omitempty"`
	LowStock      *int64           `json:"low_stock,omitempty"`
}

func (s *Stock) merge(p StockPartial) {
	setInt(&s.TotalProducts, p.TotalProducts)
	setInt(&s.TotalUnits, p.TotalUnits)
	setDec(&s.TotalValue, p.TotalValue)
	setInt(&s.OutOfStock, p.OutOfStock)
	setInt(&s.ReorderNeeded, p.ReorderNeeded)
	setInt(&s.LowStock, p.LowStock)
}

func (s *Stock) derive() {
	s.AverageUnitValue = ratio(s.TotalValue, s.TotalUnits)
	s.InStock = s.TotalProducts - s.OutOfStock - s.ReorderNeeded - s.LowStock
	if s.InStock < 0 {
		s.InStock = 0
	}
	whole := float64(s.TotalProducts)
	s.OutOfStockPct = compute.Percent(float64(s.OutOfStock), whole)
	s.ReorderNeededPct = compute.Percent(float64(s.ReorderNeeded), whole)
	s.LowStockPct = compute.Percent(float64(s.LowStock), whole)
	s.InStockPct = compute.Percent(float64(s.InStock), whole)
}

// Expense summarizes spending over a reporting period.
type Expense struct {
	Total      decimal.Decimal            `json:"total"`
	Count      int64                      `json:"count"`
	PeriodDays int64                      `json:"period_days"`
	ByCategory map[string]decimal.Decimal `json:"by_category"`

	// Derived.
	AveragePerDay     decimal.Decimal    `json:"average_per_day"`
	AveragePerExpense decimal.Decimal    `json:"average_per_expense"`
	CategoryPct       map[string]float64 `json:"category_pct"`
}

// ExpensePartial carries the Expense base fields to change. ByCategory is
// merged key by key.
type ExpensePartial struct {
	Total      *decimal.Decimal           `json:"total,omitempty"`
	Count      *int64                     `json:"count,omitempty"`
	PeriodDays *int64                     `json:"period_days,omitempty"`
	ByCategory map[string]decimal.Decimal `json:"by_category,omitempty"`
}

func (e *Expense) merge(p ExpensePartial) {
	setDec(&e.Total, p.Total)
	setInt(&e.Count, p.Count)
	setInt(&e.PeriodDays, p.PeriodDays)
	if len(p.ByCategory) > 0 && e.ByCategory == nil {
		e.ByCategory = make(map[string]decimal.Decimal, len(p.ByCategory))
	}
	for k, v := range p.ByCategory {
		e.ByCategory[k] = v
	}
}

func (e *Expense) derive() {
	e.AveragePerDay = ratio(e.Total, e.PeriodDays)
	e.AveragePerExpense = ratio(e.Total, e.Count)
	e.CategoryPct = make(map[string]float64, len(e.ByCategory))
	total := e.Total.InexactFloat64()
	for k, v := range e.ByCategory {
		e.CategoryPct[k] = compute.Percent(v.InexactFloat64(), total)
	}
}

func (e Expense) clone() Expense {
	out := e
	if e.ByCategory != nil {
		out.ByCategory = make(map[string]decimal.Decimal, len(e.ByCategory))
		for k, v := range e.ByCategory {
			out.ByCategory[k] = v
		}
	}
	if e.CategoryPct != nil {
		out.CategoryPct = make(map[string]float64, len(e.CategoryPct))
		for k, v := range e.CategoryPct {
			out.CategoryPct[k] = v
		}
	}
	return out
}

// Dashboard holds the headline figures of the sales floor.
type Dashboard struct {
	TotalSales     decimal.Decimal `json:"total_sales"`
	OrderCount     int64           `json:"order_count"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TablesTotal    int             `json:"tables_total"`
	TablesOccupied int             `json:"tables_occupied"`

	// Derived.
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	ProfitMargin      float64         `json:"profit_margin"`
	TableUtilization  float64         `json:"table_utilization"`
}

// DashboardPartial carries the Dashboard base fields to change.
type DashboardPartial struct {
	TotalSales     *decimal.Decimal `json:"total_sales,omitempty"`
	OrderCount     *int64           `json:"order_count,omitempty"`
	TotalCost      *decimal.Decimal `json:"total_cost,omitempty"`
	TablesTotal    *int             `json:"tables_total,omitempty"`
	TablesOccupied *int             `json:"tables_occupied,omitempty"`
}

func (d *Dashboard) merge(p DashboardPartial) {
	setDec(&d.TotalSales, p.TotalSales)
	setInt(&d.OrderCount, p.OrderCount)
	setDec(&d.TotalCost, p.TotalCost)
	if p.TablesTotal != nil {
		d.TablesTotal = *p.TablesTotal
	}
	if p.TablesOccupied != nil {
		d.TablesOccupied = *p.TablesOccupied
	}
}

func (d *Dashboard) derive() {
	d.AverageOrderValue = ratio(d.TotalSales, d.OrderCount)
	d.ProfitMargin = compute.ProfitMargin(d.TotalSales.InexactFloat64(), d.TotalCost.InexactFloat64())
	d.TableUtilization = compute.TableUtilization(d.TablesTotal, d.TablesOccupied)
}

// Sales accumulates completed-order totals.
type Sales struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Orders    int64           `json:"orders"`
	ItemsSold int64           `json:"items_sold"`
	Discounts decimal.Decimal `json:"discounts"`
	Tax       decimal.Decimal `json:"tax"`

	// Derived.
	AverageOrderValue    decimal.Decimal `json:"average_order_value"`
	AverageItemsPerOrder float64         `json:"average_items_per_order"`
}

// SalesPartial carries the Sales base fields to change.
type SalesPartial struct {
	Revenue   *decimal.Decimal `json:"revenue,omitempty"`
	Orders    *int64           `json:"orders,omitempty"`
	ItemsSold *int64           `json:"items_sold,omitempty"`
	Discounts *decimal.Decimal `json:"discounts,omitempty"`
	Tax       *decimal.Decimal `json:"tax,omitempty"`
}

func (s *Sales) merge(p SalesPartial) {
	setDec(&s.Revenue, p.Revenue)
	setInt(&s.Orders, p.Orders)
	setInt(&s.ItemsSold, p.ItemsSold)
	setDec(&s.Discounts, p.Discounts)
	setDec(&s.Tax, p.Tax)
}

func (s *Sales) derive() {
	s.AverageOrderValue = ratio(s.Revenue, s.Orders)
	s.AverageItemsPerOrder = 0
	if s.Orders > 0 {
		s.AverageItemsPerOrder = float64(s.ItemsSold) / float64(s.Orders)
	}
}

func setInt(dst *int64, v *int64) {
	if v != nil {
		*dst = *v
	}
}

func setDec(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

// ratio returns num/den rounded to cents, or zero when den is not positive.
func ratio(num decimal.Decimal, den int64) decimal.Decimal {
	if den <= 0 {
		return decimal.Zero
	}
	return num.Div(decimal.NewFromInt(den)).Round(compute.MoneyPlaces)
}

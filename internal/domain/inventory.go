package domain

import "time"

// StockStatus classifies a product's stock level.
type StockStatus string

const (
	StockOutOfStock    StockStatus = "out_of_stock"
	StockReorderNeeded StockStatus = "reorder_needed"
	StockLow           StockStatus = "low_stock"
	StockIn            StockStatus = "in_stock"
)

// StockRecord is the stock position of one product. Values are validated as
// non-negative by the caller.
type StockRecord struct {
	ProductID    string  `json:"product_id,omitempty"`
	CurrentStock int64   `json:"current_stock"`
	MinimumStock int64   `json:"minimum_stock"`
	ReorderPoint int64   `json:"reorder_point"`
	UnitCost     float64 `json:"unit_cost,omitempty"`
}

// AnalyticsPeriod is a half-open reporting window [Start, End).
type AnalyticsPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AnalyticsPeriods holds the named reporting windows derived from a single
// reference instant.
type AnalyticsPeriods struct {
	Today     AnalyticsPeriod `json:"today"`
	Yesterday AnalyticsPeriod `json:"yesterday"`
	ThisWeek  AnalyticsPeriod `json:"thisWeek"`
	ThisMonth AnalyticsPeriod `json:"thisMonth"`
	ThisYear  AnalyticsPeriod `json:"thisYear"`
}

// Pagination is the page metadata returned alongside list results.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	TotalCount int  `json:"totalCount"`
	TotalPages int  `json:"totalPages"`
	Offset     int  `json:"offset"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// Validation is a field-level validation result. Validators return it
// instead of an error so callers can render every problem at once.
type Validation struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

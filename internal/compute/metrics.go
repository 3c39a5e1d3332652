package compute

import "posync/internal/domain"

// ProfitMargin returns the margin of sellingPrice over cost as a percentage
// of sellingPrice. It returns 0 when cost is zero, and also when
// sellingPrice is zero so the function stays total.
func ProfitMargin(sellingPrice, cost float64) float64 {
	if cost == 0 || sellingPrice == 0 {
		return 0
	}
	return (sellingPrice - cost) / sellingPrice * 100
}

// StockStatus classifies a stock level. The checks run in a fixed priority
// order and the first match wins:
//
//	current <= 0            -> out_of_stock
//	current <= reorderPoint -> reorder_needed
//	current <= minimum      -> low_stock
//	otherwise               -> in_stock
//
// When reorderPoint > minimum this yields reorder_needed for levels above
// minimum. That ordering is kept as-is; see DESIGN.md.
func StockStatus(current, minimum, reorderPoint int64) domain.StockStatus {
	switch {
	case current <= 0:
		return domain.StockOutOfStock
	case current <= reorderPoint:
		return domain.StockReorderNeeded
	case current <= minimum:
		return domain.StockLow
	default:
		return domain.StockIn
	}
}

// RecordStatus classifies a StockRecord.
func RecordStatus(r domain.StockRecord) domain.StockStatus {
	return StockStatus(r.CurrentStock, r.MinimumStock, r.ReorderPoint)
}

// TableUtilization returns occupied tables as a percentage of total tables,
// or 0 when there are no tables.
func TableUtilization(total, occupied int) float64 {
	if total == 0 {
		return 0
	}
	return float64(occupied) / float64(total) * 100
}

// Percent returns part/whole*100, or 0 when whole is zero.
func Percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

package httpapi

import (
	"github.com/shopspring/decimal"

	"posync/internal/compute"
	"posync/internal/store"
)

// LedgerDayJSON is the JSON representation of one day of completed orders.
type LedgerDayJSON struct {
	Date              string              `json:"date"`
	Orders            int                 `json:"orders"`
	ItemsSold         int64               `json:"itemsSold"`
	Revenue           decimal.Decimal     `json:"revenue"`
	Discounts         decimal.Decimal     `json:"discounts"`
	Tax               decimal.Decimal     `json:"tax"`
	AverageOrderValue decimal.Decimal     `json:"averageOrderValue"`
	Entries           []store.LedgerEntry `json:"entries"`
}

func summarize(date string, entries []store.LedgerEntry) LedgerDayJSON {
	out := LedgerDayJSON{Date: date, Orders: len(entries), Entries: entries}
	if out.Entries == nil {
		out.Entries = []store.LedgerEntry{}
	}
	for _, e := range entries {
		out.ItemsSold += e.ItemCount
		out.Revenue = out.Revenue.Add(e.Totals.TotalAmount)
		out.Discounts = out.Discounts.Add(e.Totals.DiscountAmount)
		out.Tax = out.Tax.Add(e.Totals.TaxAmount)
	}
	if len(entries) > 0 {
		out.AverageOrderValue = out.Revenue.Div(decimal.NewFromInt(int64(len(entries)))).Round(compute.MoneyPlaces)
	}
	return out
}

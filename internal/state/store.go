// Package state holds the canonical in-memory mirror of the business
// aggregates (stock, expense, dashboard, sales). Aggregates change only
// through merge-and-recompute updates, so derived fields always agree with
// their base fields. Watchers get a snapshot after every change.
package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"posync/internal/compute"
	"posync/internal/domain"
	"posync/internal/router"
)

// Aggregate names used in Change events.
const (
	AggStock     = "stock"
	AggExpense   = "expense"
	AggDashboard = "dashboard"
	AggSales     = "sales"
)

// Snapshot is a deep copy of every aggregate.
type Snapshot struct {
	Stock     Stock     `json:"stock"`
	Expense   Expense   `json:"expense"`
	Dashboard Dashboard `json:"dashboard"`
	Sales     Sales     `json:"sales"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Change is sent to watchers after an aggregate is updated.
type Change struct {
	Aggregate string   `json:"aggregate"`
	Snapshot  Snapshot `json:"snapshot"`
}

// Store holds the aggregates. All methods are safe for concurrent use; the
// last update to a field wins.
type Store struct {
	mu        sync.RWMutex
	stock     Stock
	expense   Expense
	dashboard Dashboard
	sales     Sales
	updatedAt time.Time
	now       func() time.Time
	log       *slog.Logger

	subsMu    sync.Mutex
	nextSubID int
	subs      map[int]chan Change
}

// New creates an empty Store with every derived field computed.
func New(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	s := &Store{
		now:  time.Now,
		log:  log.With("component", "state"),
		subs: make(map[int]chan Change),
	}
	s.stock.derive()
	s.expense.derive()
	s.dashboard.derive()
	s.sales.derive()
	return s
}

// UpdateStock merges p into the stock aggregate and recomputes it.
func (s *Store) UpdateStock(p StockPartial) {
	s.apply(AggStock, func() {
		s.stock.merge(p)
		s.stock.derive()
	})
}

// UpdateExpense merges p into the expense aggregate and recomputes it.
func (s *Store) UpdateExpense(p ExpensePartial) {
	s.apply(AggExpense, func() {
		s.expense.merge(p)
		s.expense.derive()
	})
}

// UpdateDashboard merges p into the dashboard aggregate and recomputes it.
func (s *Store) UpdateDashboard(p DashboardPartial) {
	s.apply(AggDashboard, func() {
		s.dashboard.merge(p)
		s.dashboard.derive()
	})
}

// UpdateSales merges p into the sales aggregate and recomputes it.
func (s *Store) UpdateSales(p SalesPartial) {
	s.apply(AggSales, func() {
		s.sales.merge(p)
		s.sales.derive()
	})
}

// RecordOrder folds one completed order into the sales and dashboard
// aggregates.
func (s *Store) RecordOrder(t domain.OrderTotals, itemCount int64) {
	if itemCount < 0 {
		itemCount = 0
	}
	s.apply(AggSales, func() {
		s.sales.Revenue = s.sales.Revenue.Add(t.TotalAmount)
		s.sales.Orders++
		s.sales.ItemsSold += itemCount
		s.sales.Discounts = s.sales.Discounts.Add(t.DiscountAmount)
		s.sales.Tax = s.sales.Tax.Add(t.TaxAmount)
		s.sales.derive()

		s.dashboard.TotalSales = s.dashboard.TotalSales.Add(t.TotalAmount)
		s.dashboard.OrderCount++
		s.dashboard.derive()
	})
}

// ClassifyStock rebuilds the stock aggregate from per-product records.
func (s *Store) ClassifyStock(records []domain.StockRecord) {
	s.UpdateStock(StockPartialFromRecords(records))
}

// StockPartialFromRecords summarizes records into a complete stock partial.
func StockPartialFromRecords(records []domain.StockRecord) StockPartial {
	var units, out, reorder, low int64
	value := decimal.Zero
	for _, r := range records {
		if r.CurrentStock > 0 {
			units += r.CurrentStock
			value = value.Add(decimal.NewFromFloat(r.UnitCost).Mul(decimal.NewFromInt(r.CurrentStock)))
		}
		switch compute.RecordStatus(r) {
		case domain.StockOutOfStock:
			out++
		case domain.StockReorderNeeded:
			reorder++
		case domain.StockLow:
			low++
		}
	}
	total := int64(len(records))
	value = value.Round(compute.MoneyPlaces)
	return StockPartial{
		TotalProducts: &total,
		TotalUnits:    &units,
		TotalValue:    &value,
		OutOfStock:    &out,
		ReorderNeeded: &reorder,
		LowStock:      &low,
	}
}

// Snapshot returns a deep copy of all aggregates.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Restore replaces the base fields of every aggregate with those in snap
// and recomputes all derived fields. Derived values in snap are ignored.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	s.stock = Stock{}
	s.stock.merge(StockPartial{
		TotalProducts: &snap.Stock.TotalProducts,
		TotalUnits:    &snap.Stock.TotalUnits,
		TotalValue:    &snap.Stock.TotalValue,
		OutOfStock:    &snap.Stock.OutOfStock,
		ReorderNeeded: &snap.Stock.ReorderNeeded,
		LowStock:      &snap.Stock.LowStock,
	})
	s.stock.derive()

	s.expense = Expense{}
	s.expense.merge(ExpensePartial{
		Total:      &snap.Expense.Total,
		Count:      &snap.Expense.Count,
		PeriodDays: &snap.Expense.PeriodDays,
		ByCategory: snap.Expense.ByCategory,
	})
	s.expense.derive()

	s.dashboard = Dashboard{}
	s.dashboard.merge(DashboardPartial{
		TotalSales:     &snap.Dashboard.TotalSales,
		OrderCount:     &snap.Dashboard.OrderCount,
		TotalCost:      &snap.Dashboard.TotalCost,
		TablesTotal:    &snap.Dashboard.TablesTotal,
		TablesOccupied: &snap.Dashboard.TablesOccupied,
	})
	s.dashboard.derive()

	s.sales = Sales{}
	s.sales.merge(SalesPartial{
		Revenue:   &snap.Sales.Revenue,
		Orders:    &snap.Sales.Orders,
		ItemsSold: &snap.Sales.ItemsSold,
		Discounts: &snap.Sales.Discounts,
		Tax:       &snap.Sales.Tax,
	})
	s.sales.derive()

	s.updatedAt = snap.UpdatedAt
	s.mu.Unlock()
	s.log.Info("restored aggregates", "updatedAt", snap.UpdatedAt)
}

// Watch returns a channel that receives a Change after every update.
// bufSize controls the channel buffer; slow watchers have changes dropped.
func (s *Store) Watch(bufSize int) (int, <-chan Change) {
	ch := make(chan Change, bufSize)
	s.subsMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subsMu.Unlock()
	return id, ch
}

// Unwatch removes a watcher and closes its channel.
func (s *Store) Unwatch(id int) {
	s.subsMu.Lock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()
}

// Bind subscribes the store to the domain messages that feed it and returns
// a function that removes those subscriptions.
func (s *Store) Bind(r *router.Router) (unbind func()) {
	ids := []int{
		r.Subscribe(domain.MsgInventoryUpdate, s.onInventory),
		r.Subscribe(domain.MsgDashboardUpdate, s.onDashboard),
		r.Subscribe(domain.MsgSalesMetrics, s.onSales),
		r.Subscribe(domain.MsgOrderCompleted, s.onOrder),
	}
	return func() {
		for _, id := range ids {
			r.Unsubscribe(id)
		}
	}
}

// onInventory accepts either a list of per-product records or a stock partial.
func (s *Store) onInventory(payload json.RawMessage) error {
	var msg struct {
		StockPartial
		Records *[]domain.StockRecord `json:"records"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding inventory update: %w", err)
	}
	// A records list, even an empty one, is the full product set.
	if msg.Records != nil {
		s.ClassifyStock(*msg.Records)
		return nil
	}
	s.UpdateStock(msg.StockPartial)
	return nil
}

func (s *Store) onDashboard(payload json.RawMessage) error {
	var p DashboardPartial
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding dashboard update: %w", err)
	}
	s.UpdateDashboard(p)
	return nil
}

func (s *Store) onSales(payload json.RawMessage) error {
	var p SalesPartial
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding sales metrics: %w", err)
	}
	s.UpdateSales(p)
	return nil
}

func (s *Store) onOrder(payload json.RawMessage) error {
	var o domain.CompletedOrder
	if err := json.Unmarshal(payload, &o); err != nil {
		return fmt.Errorf("decoding completed order: %w", err)
	}
	s.RecordOrder(compute.Totals(o.OrderInput), o.ItemCount())
	return nil
}

// apply runs mutate under the write lock and notifies watchers.
// apply takes subsMu before releasing mu so watchers see changes in the
// order they were applied.
func (s *Store) apply(agg string, mutate func()) {
	s.mu.Lock()
	mutate()
	s.updatedAt = s.now().UTC()
	snap := s.snapshotLocked()
	s.subsMu.Lock()
	s.mu.Unlock()

	s.broadcastLocked(Change{Aggregate: agg, Snapshot: snap})
	s.subsMu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Stock:     s.stock,
		Expense:   s.expense.clone(),
		Dashboard: s.dashboard,
		Sales:     s.sales,
		UpdatedAt: s.updatedAt,
	}
}

// broadcastLocked sends c to every watcher. subsMu must be held.
func (s *Store) broadcastLocked(c Change) {
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
			s.log.Debug("dropping change for slow watcher", "aggregate", c.Aggregate)
		}
	}
}

package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/shopspring/decimal"

	"posync/internal/domain"
)

// Compile-time interface check.
var _ OrderLedger = (*ParquetLedger)(nil)

// ParquetLedger implements OrderLedger using one Parquet file per UTC day.
type ParquetLedger struct {
	DataDir string

	mu sync.Mutex // serializes read-merge-write of a day file
}

// NewParquetLedger creates a ledger rooted at the given data directory.
func NewParquetLedger(dataDir string) *ParquetLedger {
	return &ParquetLedger{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// OrderRecord is the Parquet schema for a completed order. Money is stored
// in integer cents.
type OrderRecord struct {
	OrderID       string `parquet:"order_id"`
	Timestamp     int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	ItemCount     int64  `parquet:"item_count"`
	SubtotalCents int64  `parquet:"subtotal_cents"`
	DiscountCents int64  `parquet:"discount_cents"`
	TaxCents      int64  `parquet:"tax_cents"`
	TotalCents    int64  `parquet:"total_cents"`
}

func toRecord(e LedgerEntry) OrderRecord {
	return OrderRecord{
		OrderID:       e.OrderID,
		Timestamp:     e.CompletedAt.UnixMilli(),
		ItemCount:     e.ItemCount,
		SubtotalCents: cents(e.Totals.Subtotal),
		DiscountCents: cents(e.Totals.DiscountAmount),
		TaxCents:      cents(e.Totals.TaxAmount),
		TotalCents:    cents(e.Totals.TotalAmount),
	}
}

func fromRecord(r OrderRecord) LedgerEntry {
	return LedgerEntry{
		OrderID:     r.OrderID,
		CompletedAt: time.UnixMilli(r.Timestamp).UTC(),
		ItemCount:   r.ItemCount,
		Totals: domain.OrderTotals{
			Subtotal:       decimal.New(r.SubtotalCents, -2),
			DiscountAmount: decimal.New(r.DiscountCents, -2),
			TaxAmount:      decimal.New(r.TaxCents, -2),
			TotalAmount:    decimal.New(r.TotalCents, -2),
		},
	}
}

func cents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// ---------------------------------------------------------------------------
// OrderLedger implementation
// ---------------------------------------------------------------------------

// AppendOrders writes entries into their day files, merging with what is
// already on disk.
func (l *ParquetLedger) AppendOrders(_ context.Context, entries []LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}

	groups := make(map[string][]OrderRecord)
	for _, e := range entries {
		date := e.CompletedAt.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], toRecord(e))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for date, records := range groups {
		path := filepath.Join(l.DataDir, "orders", date+".parquet")

		existing, err := readParquetFile[OrderRecord](path)
		if err != nil {
			return fmt.Errorf("reading ledger %s: %w", date, err)
		}
		merged := mergeOrderRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing ledger %s: %w", date, err)
		}
	}
	return nil
}

// ReadDay returns the ledger entries for day's UTC date.
func (l *ParquetLedger) ReadDay(_ context.Context, day time.Time) ([]LedgerEntry, error) {
	l.mu.Lock()
	records, err := readParquetFile[OrderRecord](l.dayPath(day))
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entries := make([]LedgerEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, fromRecord(r))
	}
	return entries, nil
}

// dayPath returns the filesystem path for a day's ledger file.
// Layout: <dataDir>/orders/<YYYY-MM-DD>.parquet
func (l *ParquetLedger) dayPath(day time.Time) string {
	return filepath.Join(l.DataDir, "orders", day.UTC().Format("2006-01-02")+".parquet")
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

// readParquetFile returns the rows in path, or nil when the file does not
// exist.
func readParquetFile[T any](path string) ([]T, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return parquet.ReadFile[T](path)
}

// mergeOrderRecords deduplicates records by order ID, preferring incoming
// records over existing ones. Results are sorted by timestamp.
func mergeOrderRecords(existing, incoming []OrderRecord) []OrderRecord {
	seen := make(map[string]OrderRecord, len(existing)+len(incoming))
	var anon []OrderRecord
	for _, group := range [][]OrderRecord{existing, incoming} {
		for _, r := range group {
			if r.OrderID == "" {
				anon = append(anon, r)
				continue
			}
			seen[r.OrderID] = r
		}
	}

	merged := make([]OrderRecord, 0, len(seen)+len(anon))
	for _, r := range seen {
		merged = append(merged, r)
	}
	merged = append(merged, anon...)
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Timestamp != merged[j].Timestamp {
			return merged[i].Timestamp < merged[j].Timestamp
		}
		return merged[i].OrderID < merged[j].OrderID
	})
	return merged
}

// Package store defines storage interfaces for persisting the aggregate
// mirror and the ledger of completed orders.
package store

import (
	"context"
	"errors"
	"time"

	"posync/internal/compute"
	"posync/internal/domain"
	"posync/internal/state"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing has been saved yet.
var ErrNoSnapshot = errors.New("no snapshot saved")

// SnapshotStore persists state snapshots.
type SnapshotStore interface {
	// SaveSnapshot stores snap as the latest snapshot.
	SaveSnapshot(ctx context.Context, snap state.Snapshot) error

	// LoadSnapshot returns the most recently saved snapshot.
	LoadSnapshot(ctx context.Context) (state.Snapshot, error)
}

// OrderLedger persists completed orders.
type OrderLedger interface {
	// AppendOrders adds entries to the ledger. Entries with an OrderID
	// already present on the same day replace the earlier entry.
	AppendOrders(ctx context.Context, entries []LedgerEntry) error

	// ReadDay returns the entries completed on the UTC date of day, oldest
	// first.
	ReadDay(ctx context.Context, day time.Time) ([]LedgerEntry, error)
}

// LedgerEntry is one completed order.
type LedgerEntry struct {
	OrderID     string             `json:"order_id"`
	CompletedAt time.Time          `json:"completed_at"`
	ItemCount   int64              `json:"item_count"`
	Totals      domain.OrderTotals `json:"totals"`
}

// EntryFromOrder builds the ledger entry for o. The order's own completion
// time decides its ledger day; received is used when the payload has none.
func EntryFromOrder(o domain.CompletedOrder, received time.Time) LedgerEntry {
	at := o.CompletedAt
	if at.IsZero() {
		at = received
	}
	return LedgerEntry{
		OrderID:     o.OrderID,
		CompletedAt: at.UTC(),
		ItemCount:   o.ItemCount(),
		Totals:      compute.Totals(o.OrderInput),
	}
}

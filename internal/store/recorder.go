package store

import (
	"context"
	"log/slog"
	"time"
)

// Recorder batches ledger entries in memory and appends them to an
// OrderLedger on a fixed interval. Record never blocks the caller.
type Recorder struct {
	ledger   OrderLedger
	interval time.Duration
	in       chan LedgerEntry
	log      *slog.Logger

	// maxPending bounds entries held across failed flushes; the oldest are
	// dropped first.
	maxPending int
}

// NewRecorder creates a Recorder that flushes every interval. bufSize bounds
// the queue between Record and the flush loop; up to 16×bufSize entries are
// kept while the ledger keeps failing.
func NewRecorder(ledger OrderLedger, interval time.Duration, bufSize int, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if bufSize <= 0 {
		bufSize = 256
	}
	return &Recorder{
		ledger:   ledger,
		interval: interval,
		in:       make(chan LedgerEntry, bufSize),
		log:      log.With("component", "ledger"),

		maxPending: 16 * bufSize,
	}
}

// Record queues e for the next flush. It returns false and drops e when the
// queue is full.
func (r *Recorder) Record(e LedgerEntry) bool {
	select {
	case r.in <- e:
		return true
	default:
		r.log.Warn("ledger queue full, dropping order", "orderID", e.OrderID)
		return false
	}
}

// Run flushes queued entries until ctx is cancelled, then performs a final
// flush of whatever is still queued.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var pending []LedgerEntry
	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		if err := r.ledger.AppendOrders(ctx, pending); err != nil {
			r.log.Error("flushing ledger", "orders", len(pending), "error", err)
			return
		}
		r.log.Debug("flushed ledger", "orders", len(pending))
		pending = pending[:0]
	}
	add := func(e LedgerEntry) {
		if len(pending) >= r.maxPending {
			r.log.Warn("ledger backlog full, dropping oldest order", "orderID", pending[0].OrderID, "pending", len(pending))
			pending = append(pending[:0], pending[1:]...)
		}
		pending = append(pending, e)
	}

	for {
		select {
		case e := <-r.in:
			add(e)
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
		drain:
			for {
				select {
				case e := <-r.in:
					add(e)
				default:
					break drain
				}
			}
			flush(context.Background())
			return nil
		}
	}
}

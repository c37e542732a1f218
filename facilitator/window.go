package facilitator

import (
	"math/big"
	"sync"
	"time"
)

// WindowSpan is the trailing retention period for settlement accounting.
const WindowSpan = 24 * time.Hour

// SettlementEntry is one completed settlement as retained by the window.
// Entries are created exactly once, never mutated, and removed only by
// pruning from the front.
type SettlementEntry struct {
	At       time.Time
	Asset    string
	Decimals int
	Amount   *big.Int
}

// TotalKey groups rolling totals. Asset and decimals together form the key:
// two entries with the same mint but different precision stay distinct,
// because merging them would corrupt the displayed amount.
type TotalKey struct {
	Asset    string
	Decimals int
}

// Window is an append-only, time-pruned log of settlements. Insertion order
// equals timestamp order because timestamps are assigned at insertion, so
// pruning is a prefix scan, never a full one. Recomputing totals is O(window
// size) per insert, which is fine at facilitator settlement rates.
type Window struct {
	mu      sync.Mutex
	span    time.Duration
	entries []SettlementEntry
}

// NewWindow builds a window with the standard 24-hour span.
func NewWindow() *Window {
	return &Window{span: WindowSpan}
}

// NewWindowWithSpan builds a window with a custom span. Used by tests; the
// facilitator always runs the 24-hour window.
func NewWindowWithSpan(span time.Duration) *Window {
	return &Window{span: span}
}

// Record appends a settlement, prunes entries older than the span, and
// returns the recomputed per-asset rolling totals along with the retained
// entry count. A nil amount is never recorded; callers must only pass
// successfully parsed amounts, and the guard keeps a slipped nil from
// corrupting the totals.
func (w *Window) Record(now time.Time, asset string, decimals int, amount *big.Int) (map[TotalKey]*big.Int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if amount != nil {
		w.entries = append(w.entries, SettlementEntry{
			At:       now,
			Asset:    asset,
			Decimals: decimals,
			Amount:   new(big.Int).Set(amount),
		})
	}
	w.prune(now)
	return w.totals(), len(w.entries)
}

// Snapshot returns the rolling totals and count as of now, pruning first.
func (w *Window) Snapshot(now time.Time) (map[TotalKey]*big.Int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(now)
	return w.totals(), len(w.entries)
}

// prune drops the expired prefix. Re-slicing keeps eviction amortized O(1);
// the append in Record reallocates once the backing array's dead prefix grows
// large enough.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.span)
	i := 0
	for i < len(w.entries) && w.entries[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = w.entries[i:]
	}
}

func (w *Window) totals() map[TotalKey]*big.Int {
	totals := make(map[TotalKey]*big.Int)
	for _, e := range w.entries {
		key := TotalKey{Asset: e.Asset, Decimals: e.Decimals}
		if t, ok := totals[key]; ok {
			t.Add(t, e.Amount)
		} else {
			totals[key] = new(big.Int).Set(e.Amount)
		}
	}
	return totals
}

// Package minmax tracks the minimum and maximum price observed in a
// sliding time window using two monotonic deques, giving amortized O(1)
// inserts with memory bounded by the number of distinct extrema
// currently in the window.
package minmax

import (
	"time"

	"github.com/algotrade/execd/internal/ids"
)

type entry struct {
	ts    ids.Timestamp
	price ids.Price
}

// WindowedMinMax reports the min and max price over the trailing window
// of duration L ending at the most recent timestamp added.
type WindowedMinMax struct {
	window time.Duration

	// minDeque holds prices in non-decreasing order, front = oldest.
	minDeque []entry
	// maxDeque holds prices in non-increasing order, front = oldest.
	maxDeque []entry
}

// New creates an empty tracker for a window of the given duration.
func New(window time.Duration) *WindowedMinMax {
	return &WindowedMinMax{window: window}
}

// Add records a price observation. t must be UTC; non-UTC input fails
// with ids.ErrTimestampNotUtc. Scale mismatches against entries already
// in the window fail with ids.ErrPrecisionMismatch.
func (w *WindowedMinMax) Add(t time.Time, price ids.Price) error {
	ts, err := ids.NewTimestamp(t)
	if err != nil {
		return err
	}
	return w.AddTimestamp(ts, price)
}

// AddTimestamp is the ids.Timestamp-typed variant of Add, used by
// callers that already hold a validated Timestamp (e.g. the engine,
// relaying a venue-supplied event_timestamp).
func (w *WindowedMinMax) AddTimestamp(ts ids.Timestamp, price ids.Price) error {
	if err := w.pushMin(ts, price); err != nil {
		return err
	}
	if err := w.pushMax(ts, price); err != nil {
		return err
	}
	w.evictExpired(ts)
	return nil
}

func (w *WindowedMinMax) pushMin(ts ids.Timestamp, price ids.Price) error {
	for len(w.minDeque) > 0 {
		tail := w.minDeque[len(w.minDeque)-1]
		cmp, err := tail.price.Compare(price)
		if err != nil {
			return err
		}
		if cmp < 0 {
			break
		}
		w.minDeque = w.minDeque[:len(w.minDeque)-1]
	}
	w.minDeque = append(w.minDeque, entry{ts: ts, price: price})
	return nil
}

func (w *WindowedMinMax) pushMax(ts ids.Timestamp, price ids.Price) error {
	for len(w.maxDeque) > 0 {
		tail := w.maxDeque[len(w.maxDeque)-1]
		cmp, err := tail.price.Compare(price)
		if err != nil {
			return err
		}
		if cmp > 0 {
			break
		}
		w.maxDeque = w.maxDeque[:len(w.maxDeque)-1]
	}
	w.maxDeque = append(w.maxDeque, entry{ts: ts, price: price})
	return nil
}

func (w *WindowedMinMax) evictExpired(now ids.Timestamp) {
	cutoff := now.Time().Add(-w.window)
	for len(w.minDeque) > 0 && w.minDeque[0].ts.Time().Before(cutoff) {
		w.minDeque = w.minDeque[1:]
	}
	for len(w.maxDeque) > 0 && w.maxDeque[0].ts.Time().Before(cutoff) {
		w.maxDeque = w.maxDeque[1:]
	}
}

// MinPrice returns the minimum price currently in the window.
func (w *WindowedMinMax) MinPrice() (ids.Price, bool) {
	if len(w.minDeque) == 0 {
		return ids.Price{}, false
	}
	return w.minDeque[0].price, true
}

// MaxPrice returns the maximum price currently in the window.
func (w *WindowedMinMax) MaxPrice() (ids.Price, bool) {
	if len(w.maxDeque) == 0 {
		return ids.Price{}, false
	}
	return w.maxDeque[0].price, true
}

// Reset clears all tracked observations.
func (w *WindowedMinMax) Reset() {
	w.minDeque = nil
	w.maxDeque = nil
}

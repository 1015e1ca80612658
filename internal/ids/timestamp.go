package ids

import (
	"errors"
	"time"
)

// ErrTimestampNotUtc is returned when a Timestamp is constructed from a
// non-UTC time.Time.
var ErrTimestampNotUtc = errors.New("ids: timestamp is not UTC")

// Timestamp is a UTC instant with sub-second precision. Comparisons are
// monotone per stream source; the engine never reorders by wall clock.
type Timestamp struct {
	t time.Time
}

// NewTimestamp validates that t carries the UTC location and wraps it.
func NewTimestamp(t time.Time) (Timestamp, error) {
	if t.Location() != time.UTC {
		return Timestamp{}, ErrTimestampNotUtc
	}
	return Timestamp{t: t}, nil
}

// NewTimestampFromUnixNano builds a Timestamp from UTC Unix nanoseconds.
func NewTimestampFromUnixNano(ns int64) Timestamp {
	return Timestamp{t: time.Unix(0, ns).UTC()}
}

// Time returns the underlying time.Time.
func (ts Timestamp) Time() time.Time { return ts.t }

// UnixNano returns UTC Unix nanoseconds.
func (ts Timestamp) UnixNano() int64 { return ts.t.UnixNano() }

// Before reports whether ts is strictly before other.
func (ts Timestamp) Before(other Timestamp) bool { return ts.t.Before(other.t) }

// After reports whether ts is strictly after other.
func (ts Timestamp) After(other Timestamp) bool { return ts.t.After(other.t) }

// Add returns ts+d.
func (ts Timestamp) Add(d time.Duration) Timestamp { return Timestamp{t: ts.t.Add(d)} }

// Sub returns the duration ts-other.
func (ts Timestamp) Sub(other Timestamp) time.Duration { return ts.t.Sub(other.t) }

// IsZero reports whether ts is the zero value.
func (ts Timestamp) IsZero() bool { return ts.t.IsZero() }

// String renders RFC3339Nano.
func (ts Timestamp) String() string { return ts.t.Format(time.RFC3339Nano) }

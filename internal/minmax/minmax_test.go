package minmax

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algotrade/execd/internal/ids"
)

func price(t *testing.T, v int64) ids.Price {
	t.Helper()
	p, err := ids.NewPrice(v, 2)
	require.NoError(t, err)
	return p
}

func utc(t *testing.T, y, mo, d, h, mi, s int) time.Time {
	t.Helper()
	return time.Date(y, time.Month(mo), d, h, mi, s, 0, time.UTC)
}

func TestEmptyTrackerReportsNoExtrema(t *testing.T) {
	w := New(5 * time.Minute)
	_, ok := w.MinPrice()
	assert.False(t, ok)
	_, ok = w.MaxPrice()
	assert.False(t, ok)
}

func TestSinglePriceIsBothExtrema(t *testing.T) {
	w := New(5 * time.Minute)
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 0, 0), price(t, 100)))

	min, ok := w.MinPrice()
	require.True(t, ok)
	max, ok := w.MaxPrice()
	require.True(t, ok)
	assert.Equal(t, int64(100), min.Int64())
	assert.Equal(t, int64(100), max.Int64())
}

func TestMultiplePricesWithinWindow(t *testing.T) {
	w := New(5 * time.Minute)
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 0, 0), price(t, 100)))
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 5, 0), price(t, 90)))

	min, _ := w.MinPrice()
	max, _ := w.MaxPrice()
	assert.Equal(t, int64(90), min.Int64())
	assert.Equal(t, int64(100), max.Int64())
}

// Mirrors the expiry-plus-new-extremum case: the oldest entry falls out
// of the window on the third insert, and the newest entry becomes the
// new max even though it is not itself the minimum.
func TestExpiresOldestEntryAndTracksNewExtremum(t *testing.T) {
	w := New(5 * time.Minute)
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 0, 0), price(t, 100)))
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 5, 0), price(t, 90)))
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 5, 1), price(t, 95)))

	min, _ := w.MinPrice()
	max, _ := w.MaxPrice()
	assert.Equal(t, int64(90), min.Int64())
	assert.Equal(t, int64(95), max.Int64())
}

func TestResetClearsExtrema(t *testing.T) {
	w := New(5 * time.Minute)
	require.NoError(t, w.Add(utc(t, 2020, 1, 1, 0, 0, 0), price(t, 100)))
	w.Reset()

	_, ok := w.MinPrice()
	assert.False(t, ok)
	_, ok = w.MaxPrice()
	assert.False(t, ok)
}

func TestAddRejectsNonUtcTimestamp(t *testing.T) {
	w := New(5 * time.Minute)
	loc := time.FixedZone("UTC+1", 3600)
	nonUTC := time.Date(2020, 1, 1, 0, 0, 0, 0, loc)

	err := w.Add(nonUTC, price(t, 100))
	assert.ErrorIs(t, err, ids.ErrTimestampNotUtc)
}

// A strictly increasing price stream evicts every prior entry from the
// max-sequence on each insert, since each new price exceeds all that
// came before it; the min-sequence instead retains every entry because
// none is ever superseded by a later, larger price.
func TestMonotonicDequeStaysBoundedUnderIncreasingPrices(t *testing.T) {
	w := New(time.Hour)
	base := utc(t, 2020, 1, 1, 0, 0, 0)
	for i := int64(0); i < 100; i++ {
		require.NoError(t, w.Add(base.Add(time.Duration(i)*time.Second), price(t, 100+i)))
	}

	min, _ := w.MinPrice()
	max, _ := w.MaxPrice()
	assert.Equal(t, int64(100), min.Int64())
	assert.Equal(t, int64(199), max.Int64())
	assert.Len(t, w.maxDeque, 1)
	assert.Len(t, w.minDeque, 100)
}

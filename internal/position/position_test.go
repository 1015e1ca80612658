package position

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algotrade/execd/internal/ids"
)

func mustTS(t *testing.T) ids.Timestamp {
	t.Helper()
	return ids.NewTimestampFromUnixNano(0)
}

func newLongPosition(t *testing.T, qty, price int64) *Position {
	t.Helper()
	strategyID, err := ids.NewStrategyId("strat-1")
	require.NoError(t, err)
	symbol, err := ids.NewSymbol("BTC-USD")
	require.NoError(t, err)
	positionID, err := ids.NewPositionId("pos-1")
	require.NoError(t, err)
	q, err := ids.NewQuantity(qty, 0)
	require.NoError(t, err)
	p, err := ids.NewPrice(price, 2)
	require.NoError(t, err)
	return Open(positionID, strategyID, symbol, ids.SideBuy, q, p, mustTS(t))
}

func TestOpenPositionIsLong(t *testing.T) {
	pos := newLongPosition(t, 100, 1000)
	assert.Equal(t, ids.PositionLong, pos.Side)
	assert.False(t, pos.IsFlat())
	assert.Equal(t, int64(100), pos.Quantity.Int64())
	assert.Equal(t, int64(1000), pos.AvgOpenPrice.Int64())
}

func TestSameSideFillWeightsAveragePrice(t *testing.T) {
	pos := newLongPosition(t, 100, 1000) // 10.00

	addQty, err := ids.NewQuantity(100, 0)
	require.NoError(t, err)
	addPrice, err := ids.NewPrice(1200, 2) // 12.00
	require.NoError(t, err)

	require.NoError(t, pos.ApplyFill(ids.SideBuy, addQty, addPrice, mustTS(t)))

	assert.Equal(t, int64(200), pos.Quantity.Int64())
	// (100*10.00 + 100*12.00) / 200 = 11.00
	assert.Equal(t, int64(1100), pos.AvgOpenPrice.Int64())
}

func TestPartialCloseRealizesPnLWithoutFlattening(t *testing.T) {
	pos := newLongPosition(t, 100, 1000) // long 100 @ 10.00

	exitQty, err := ids.NewQuantity(40, 0)
	require.NoError(t, err)
	exitPrice, err := ids.NewPrice(1100, 2) // 11.00
	require.NoError(t, err)

	require.NoError(t, pos.ApplyFill(ids.SideSell, exitQty, exitPrice, mustTS(t)))

	assert.Equal(t, ids.PositionLong, pos.Side)
	assert.Equal(t, int64(60), pos.Quantity.Int64())
	// (11.00-10.00)*40 = 40.00 realized, scaled by 100 -> 4000
	assert.Equal(t, int64(4000), pos.RealizedPnL)
}

func TestExactCloseGoesFlat(t *testing.T) {
	pos := newLongPosition(t, 100, 1000)

	exitQty, err := ids.NewQuantity(100, 0)
	require.NoError(t, err)
	exitPrice, err := ids.NewPrice(1100, 2)
	require.NoError(t, err)

	ts := mustTS(t)
	require.NoError(t, pos.ApplyFill(ids.SideSell, exitQty, exitPrice, ts))

	assert.True(t, pos.IsFlat())
	assert.True(t, pos.Quantity.IsZero())
	assert.True(t, pos.HasTsClosed)
	assert.Equal(t, int64(10000), pos.RealizedPnL)
}

// Flip scenario: long 100 @ 10.00, sell 150 @ 11.00 crosses flat into a
// short 50 @ 11.00, realizing PnL on the 100 units that closed the long.
func TestFlipFromLongToShort(t *testing.T) {
	pos := newLongPosition(t, 100, 1000)

	exitQty, err := ids.NewQuantity(150, 0)
	require.NoError(t, err)
	exitPrice, err := ids.NewPrice(1100, 2) // 11.00
	require.NoError(t, err)

	require.NoError(t, pos.ApplyFill(ids.SideSell, exitQty, exitPrice, mustTS(t)))

	assert.Equal(t, ids.PositionShort, pos.Side)
	assert.Equal(t, int64(50), pos.Quantity.Int64())
	assert.Equal(t, int64(1100), pos.AvgOpenPrice.Int64())
	// (11.00-10.00)*100 = 100.00 realized on the closed long leg
	assert.Equal(t, int64(10000), pos.RealizedPnL)
	assert.False(t, pos.HasTsClosed)
}

func TestFlatQuantityInvariant(t *testing.T) {
	pos := newLongPosition(t, 100, 1000)
	exitQty, err := ids.NewQuantity(100, 0)
	require.NoError(t, err)
	exitPrice, err := ids.NewPrice(900, 2)
	require.NoError(t, err)
	require.NoError(t, pos.ApplyFill(ids.SideSell, exitQty, exitPrice, mustTS(t)))

	assert.Equal(t, pos.Side == ids.PositionFlat, pos.Quantity.IsZero())
}

func TestApplyFillRejectsScaleMismatch(t *testing.T) {
	pos := newLongPosition(t, 100, 1000)
	exitQty, err := ids.NewQuantity(10, 0)
	require.NoError(t, err)
	badPrice, err := ids.NewPrice(1100, 4)
	require.NoError(t, err)

	err = pos.ApplyFill(ids.SideSell, exitQty, badPrice, mustTS(t))
	assert.ErrorIs(t, err, ErrPrecisionMismatch)
}

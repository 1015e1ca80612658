package order

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

func newWorkingOrder(t *testing.T, typ ids.OrderType, qty int64) *Order {
	t.Helper()
	clOrdID, err := ids.NewClientOrderId("cl-1")
	require.NoError(t, err)
	strategyID, err := ids.NewStrategyId("strat-1")
	require.NoError(t, err)
	symbol, err := ids.NewSymbol("BTC-USD")
	require.NoError(t, err)
	q, err := ids.NewQuantity(qty, 0)
	require.NoError(t, err)
	price, err := ids.NewPrice(0, 2)
	require.NoError(t, err)
	tif := ids.TimeInForceGTC

	o, err := New(clOrdID, strategyID, symbol, ids.SideBuy, typ, q, price, tif, "init-1", mustTS(t))
	require.NoError(t, err)

	require.NoError(t, o.ApplySubmitted(mustTS(t)))
	orderID, err := ids.NewOrderId("venue-order-1")
	require.NoError(t, err)
	require.NoError(t, o.ApplyAccepted(orderID, mustTS(t)))
	require.NoError(t, o.ApplyWorking(mustTS(t)))
	return o
}

func TestMarketBuySingleFill(t *testing.T) {
	o := newWorkingOrder(t, ids.OrderTypeMarket, 100)

	fillPrice, err := ids.NewPrice(1000, 2) // 10.00
	require.NoError(t, err)
	fillQty, err := ids.NewQuantity(100, 0)
	require.NoError(t, err)

	require.NoError(t, o.ApplyFilled("exec-1", fillQty, fillPrice, mustTS(t)))

	assert.Equal(t, StateFilled, o.State)
	assert.Equal(t, int64(100), o.FilledQty.Int64())
	assert.True(t, o.HasAvgPrice)
	assert.Equal(t, int64(1000), o.AvgPrice.Int64())
}

func TestPartialThenComplete(t *testing.T) {
	o := newWorkingOrder(t, ids.OrderTypeLimit, 100)

	p1, err := ids.NewPrice(1000, 2) // 10.00
	require.NoError(t, err)
	q1, err := ids.NewQuantity(40, 0)
	require.NoError(t, err)
	require.NoError(t, o.ApplyFilled("exec-1", q1, p1, mustTS(t)))
	assert.Equal(t, StatePartiallyFilled, o.State)

	p2, err := ids.NewPrice(1050, 2) // 10.50
	require.NoError(t, err)
	q2, err := ids.NewQuantity(60, 0)
	require.NoError(t, err)
	require.NoError(t, o.ApplyFilled("exec-2", q2, p2, mustTS(t)))

	assert.Equal(t, StateFilled, o.State)
	assert.Equal(t, int64(100), o.FilledQty.Int64())
	// (40*10.00 + 60*10.50) / 100 = 10.30
	assert.Equal(t, int64(1030), o.AvgPrice.Int64())
}

func TestDuplicateFillIsNoOp(t *testing.T) {
	o := newWorkingOrder(t, ids.OrderTypeLimit, 100)

	price, err := ids.NewPrice(1000, 2)
	require.NoError(t, err)
	qty, err := ids.NewQuantity(30, 0)
	require.NoError(t, err)

	require.NoError(t, o.ApplyFilled("exec-x", qty, price, mustTS(t)))
	filledAfterFirst := o.FilledQty.Int64()

	require.NoError(t, o.ApplyFilled("exec-x", qty, price, mustTS(t)))
	assert.Equal(t, filledAfterFirst, o.FilledQty.Int64())
}

func TestAmendMarketOrderRejected(t *testing.T) {
	o := newWorkingOrder(t, ids.OrderTypeMarket, 100)

	qty, err := ids.NewQuantity(50, 0)
	require.NoError(t, err)
	price, err := ids.NewPrice(1100, 2)
	require.NoError(t, err)

	err = o.ApplyAmended(qty, price, mustTS(t))
	assert.ErrorIs(t, err, ErrAmendNotSupported)
	assert.Equal(t, StateWorking, o.State)
}

func TestAmendBelowFilledRejected(t *testing.T) {
	o := newWorkingOrder(t, ids.OrderTypeLimit, 100)

	fillPrice, err := ids.NewPrice(1000, 2)
	require.NoError(t, err)
	fillQty, err := ids.NewQuantity(60, 0)
	require.NoError(t, err)
	require.NoError(t, o.ApplyFilled("exec-1", fillQty, fillPrice, mustTS(t)))

	lowQty, err := ids.NewQuantity(50, 0)
	require.NoError(t, err)
	err = o.ApplyAmended(lowQty, fillPrice, mustTS(t))
	assert.ErrorIs(t, err, ErrQuantityBelowFilled)
}

func TestTerminalOrderRefusesFurtherEvents(t *testing.T) {
	o := newWorkingOrder(t, ids.OrderTypeLimit, 100)
	require.NoError(t, o.ApplyCancelled(mustTS(t)))
	assert.True(t, o.State.IsTerminal())

	qty, err := ids.NewQuantity(10, 0)
	require.NoError(t, err)
	price, err := ids.NewPrice(1000, 2)
	require.NoError(t, err)
	err = o.ApplyFilled("exec-after-terminal", qty, price, mustTS(t))
	assert.ErrorIs(t, err, ErrInvalidStateTransition)
}

func TestMarketOrderRequiresValidTimeInForce(t *testing.T) {
	clOrdID, err := ids.NewClientOrderId("cl-2")
	require.NoError(t, err)
	strategyID, err := ids.NewStrategyId("strat-1")
	require.NoError(t, err)
	symbol, err := ids.NewSymbol("BTC-USD")
	require.NoError(t, err)
	qty, err := ids.NewQuantity(1, 0)
	require.NoError(t, err)
	price, err := ids.NewPrice(0, 2)
	require.NoError(t, err)

	_, err = New(clOrdID, strategyID, symbol, ids.SideBuy, ids.OrderTypeMarket, qty, price, ids.TimeInForceUnknown, "init-2", mustTS(t))
	assert.ErrorIs(t, err, ErrTimeInForceInvalid)
}

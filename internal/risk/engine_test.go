package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/position"
)

func mustQty(t *testing.T, v int64, scale ids.Scale) ids.Quantity {
	t.Helper()
	q, err := ids.NewQuantity(v, scale)
	require.NoError(t, err)
	return q
}

func mustPrice(t *testing.T, v int64, scale ids.Scale) ids.Price {
	t.Helper()
	p, err := ids.NewPrice(v, scale)
	require.NoError(t, err)
	return p
}

func baseIntent(t *testing.T) Intent {
	t.Helper()
	return Intent{
		ClientOrderId: "cl-1",
		StrategyId:    "strat-1",
		Symbol:        "BTCUSDT",
		Side:          ids.SideBuy,
		Type:          ids.OrderTypeLimit,
		Quantity:      mustQty(t, 100, 2),
		Price:         mustPrice(t, 1000, 2),
	}
}

func TestKillSwitchDeniesEverything(t *testing.T) {
	e := NewEngine(Config{KillSwitch: true})
	d := e.Evaluate(baseIntent(t), StateView{})
	assert.Equal(t, ActionDeny, d.Action)
	assert.Equal(t, ReasonKillSwitch, d.Reason)
}

func TestMaxOrderQtyDeniesOversizedOrder(t *testing.T) {
	e := NewEngine(Config{MaxOrderQty: mustQty(t, 50, 2)})
	d := e.Evaluate(baseIntent(t), StateView{})
	assert.Equal(t, ActionDeny, d.Action)
	assert.Equal(t, ReasonMaxQty, d.Reason)
}

func TestAllowsWithinLimits(t *testing.T) {
	e := NewEngine(Config{MaxOrderQty: mustQty(t, 1000, 2)})
	d := e.Evaluate(baseIntent(t), StateView{})
	assert.Equal(t, ActionAllow, d.Action)
	assert.Equal(t, ReasonNone, d.Reason)
}

func TestOrderRateLimitDeniesBurst(t *testing.T) {
	e := NewEngine(Config{OrderRateLimit: 2, OrderRateWindow: time.Second})
	now, err := ids.NewTimestamp(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	state := StateView{Now: now}

	d1 := e.Evaluate(baseIntent(t), state)
	d2 := e.Evaluate(baseIntent(t), state)
	d3 := e.Evaluate(baseIntent(t), state)

	assert.Equal(t, ActionAllow, d1.Action)
	assert.Equal(t, ActionAllow, d2.Action)
	assert.Equal(t, ActionDeny, d3.Action)
	assert.Equal(t, ReasonRateLimit, d3.Reason)
}

func TestPriceBandDeniesOutsideDeviation(t *testing.T) {
	e := NewEngine(Config{MaxPriceDeviationBps: 100}) // 1%
	intent := baseIntent(t)
	intent.Price = mustPrice(t, 1200, 2) // 20% away from the 1000 reference
	state := StateView{ReferencePrice: mustPrice(t, 1000, 2), HasReference: true}

	d := e.Evaluate(intent, state)
	assert.Equal(t, ActionDeny, d.Action)
	assert.Equal(t, ReasonPriceBand, d.Reason)
}

func TestMaxNotionalDeniesExpensiveOrder(t *testing.T) {
	e := NewEngine(Config{MaxOrderNotional: ids.NewNotional(50_000, 2)})
	d := e.Evaluate(baseIntent(t), StateView{})
	assert.Equal(t, ActionDeny, d.Action)
	assert.Equal(t, ReasonMaxNotional, d.Reason)
}

func TestPositionLimitDeniesWhenNextPositionExceedsCap(t *testing.T) {
	e := NewEngine(Config{MaxPosition: mustQty(t, 120, 2)})
	openLong := position.Open("pos-1", "strat-1", "BTCUSDT", ids.SideBuy, mustQty(t, 100, 2), mustPrice(t, 1000, 2), ids.Timestamp{})
	state := StateView{Position: openLong}

	intent := baseIntent(t)
	intent.Quantity = mustQty(t, 50, 2) // would push long position to 150 > 120 cap

	d := e.Evaluate(intent, state)
	assert.Equal(t, ActionDeny, d.Action)
	assert.Equal(t, ReasonPositionLimit, d.Reason)
}

func TestPositionLimitAllowsReducingFill(t *testing.T) {
	e := NewEngine(Config{MaxPosition: mustQty(t, 120, 2)})
	openLong := position.Open("pos-1", "strat-1", "BTCUSDT", ids.SideBuy, mustQty(t, 100, 2), mustPrice(t, 1000, 2), ids.Timestamp{})
	state := StateView{Position: openLong}

	intent := baseIntent(t)
	intent.Side = ids.SideSell
	intent.Quantity = mustQty(t, 50, 2) // reduces the long position, stays within cap

	d := e.Evaluate(intent, state)
	assert.Equal(t, ActionAllow, d.Action)
}

package execdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
)

func newTestOrder(t *testing.T, clOrdID string, strategyID string, terminal bool) *order.Order {
	t.Helper()
	co, err := ids.NewClientOrderId(clOrdID)
	require.NoError(t, err)
	sid, err := ids.NewStrategyId(strategyID)
	require.NoError(t, err)
	sym, err := ids.NewSymbol("BTC-USD")
	require.NoError(t, err)
	qty, err := ids.NewQuantity(10, 0)
	require.NoError(t, err)
	price, err := ids.NewPrice(100, 2)
	require.NoError(t, err)
	ts := ids.NewTimestampFromUnixNano(0)

	o, err := order.New(co, sid, sym, ids.SideBuy, ids.OrderTypeLimit, qty, price, ids.TimeInForceGTC, "init", ts)
	require.NoError(t, err)
	require.NoError(t, o.ApplySubmitted(ts))
	oid, err := ids.NewOrderId("venue-" + clOrdID)
	require.NoError(t, err)
	require.NoError(t, o.ApplyAccepted(oid, ts))
	require.NoError(t, o.ApplyWorking(ts))
	if terminal {
		require.NoError(t, o.ApplyCancelled(ts))
	}
	return o
}

func TestMemoryDatabaseAddThenLoadRoundTrips(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o := newTestOrder(t, "cl-1", "strat-1", false)

	require.NoError(t, db.AddOrder(ctx, o))

	loaded, ok, err := db.LoadOrder(ctx, o.ClientOrderId)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, o.ClientOrderId, loaded.ClientOrderId)
	assert.Equal(t, o.State, loaded.State)
}

func TestMemoryDatabaseAddDuplicateFails(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o := newTestOrder(t, "cl-2", "strat-1", false)

	require.NoError(t, db.AddOrder(ctx, o))
	err := db.AddOrder(ctx, o)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestMemoryDatabaseUpdateMissingFails(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o := newTestOrder(t, "cl-3", "strat-1", false)

	err := db.UpdateOrder(ctx, o)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkingOrdersIndexDropsTerminalOrders(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()

	working := newTestOrder(t, "cl-working", "strat-1", false)
	terminal := newTestOrder(t, "cl-terminal", "strat-1", true)

	require.NoError(t, db.AddOrder(ctx, working))
	require.NoError(t, db.AddOrder(ctx, terminal))

	orders, err := db.WorkingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, working.ClientOrderId, orders[0].ClientOrderId)
}

func TestWorkingOrdersIndexUpdatesOnTransitionToTerminal(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o := newTestOrder(t, "cl-flip", "strat-1", false)
	require.NoError(t, db.AddOrder(ctx, o))

	orders, err := db.WorkingOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	require.NoError(t, o.ApplyCancelled(ids.NewTimestampFromUnixNano(1)))
	require.NoError(t, db.UpdateOrder(ctx, o))

	orders, err = db.WorkingOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 0)
}

func TestOrdersByStrategyIndex(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o1 := newTestOrder(t, "cl-a", "strat-a", false)
	o2 := newTestOrder(t, "cl-b", "strat-a", false)
	o3 := newTestOrder(t, "cl-c", "strat-b", false)

	require.NoError(t, db.AddOrder(ctx, o1))
	require.NoError(t, db.AddOrder(ctx, o2))
	require.NoError(t, db.AddOrder(ctx, o3))

	stratA, err := ids.NewStrategyId("strat-a")
	require.NoError(t, err)
	orders, err := db.OrdersByStrategy(ctx, stratA)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestOpenPositionsIndexDropsFlatPositions(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()

	posID, err := ids.NewPositionId("pos-1")
	require.NoError(t, err)
	stratID, err := ids.NewStrategyId("strat-1")
	require.NoError(t, err)
	sym, err := ids.NewSymbol("BTC-USD")
	require.NoError(t, err)
	qty, err := ids.NewQuantity(10, 0)
	require.NoError(t, err)
	price, err := ids.NewPrice(1000, 2)
	require.NoError(t, err)
	ts := ids.NewTimestampFromUnixNano(0)

	pos := position.Open(posID, stratID, sym, ids.SideBuy, qty, price, ts)
	require.NoError(t, db.AddPosition(ctx, pos))

	open, err := db.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	require.NoError(t, pos.ApplyFill(ids.SideSell, qty, price, ts))
	require.NoError(t, db.UpdatePosition(ctx, pos))

	open, err = db.OpenPositions(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 0)
}

func TestAccountAddAndUpdate(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()

	id, err := ids.NewAccountId("acct-1")
	require.NoError(t, err)
	usd, err := ids.NewQuantity(100, 2)
	require.NoError(t, err)
	a := account.New(id, map[string]ids.Quantity{"USD": usd}, nil, ids.NewTimestampFromUnixNano(0))

	require.NoError(t, db.AddAccount(ctx, a))

	loaded, ok, err := db.LoadAccount(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(100), loaded.Balances["USD"].Int64())

	a.ApplySnapshot(map[string]ids.Quantity{"USD": usd}, nil, ids.NewTimestampFromUnixNano(1))
	require.NoError(t, db.UpdateAccount(ctx, a))
}

func TestFlushRemovesAllRecordsAndIndices(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o := newTestOrder(t, "cl-flush", "strat-1", false)
	require.NoError(t, db.AddOrder(ctx, o))

	require.NoError(t, db.Flush(ctx))

	_, ok, err := db.LoadOrder(ctx, o.ClientOrderId)
	require.NoError(t, err)
	assert.False(t, ok)

	orders, err := db.WorkingOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 0)
}

func TestLoadOrdersReturnsIndependentCopies(t *testing.T) {
	db := NewMemoryDatabase()
	ctx := context.Background()
	o := newTestOrder(t, "cl-copy", "strat-1", false)
	require.NoError(t, db.AddOrder(ctx, o))

	loaded, ok, err := db.LoadOrder(ctx, o.ClientOrderId)
	require.NoError(t, err)
	require.True(t, ok)

	loaded.ExecutionIds["mutated"] = struct{}{}

	reloaded, ok, err := db.LoadOrder(ctx, o.ClientOrderId)
	require.NoError(t, err)
	require.True(t, ok)
	_, mutated := reloaded.ExecutionIds["mutated"]
	assert.False(t, mutated)
}

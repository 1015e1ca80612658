package execdb

import (
	"context"
	"sync"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
)

// MemoryDatabase implements Database with mutex-guarded maps. It is the
// authoritative store for single-process deployments and the default in
// tests.
type MemoryDatabase struct {
	mu sync.RWMutex

	accounts      map[ids.AccountId]*account.Account
	orders        map[ids.ClientOrderId]*order.Order
	positions     map[ids.PositionId]*position.Position
	strategyState map[ids.StrategyId]map[string][]byte

	ordersByStrategy    map[ids.StrategyId]map[ids.ClientOrderId]struct{}
	positionsByStrategy map[ids.StrategyId]map[ids.PositionId]struct{}
	workingOrders       map[ids.ClientOrderId]struct{}
	openPositions       map[ids.PositionId]struct{}
}

// NewMemoryDatabase creates an empty in-memory database.
func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{
		accounts:            make(map[ids.AccountId]*account.Account),
		orders:              make(map[ids.ClientOrderId]*order.Order),
		positions:           make(map[ids.PositionId]*position.Position),
		strategyState:       make(map[ids.StrategyId]map[string][]byte),
		ordersByStrategy:    make(map[ids.StrategyId]map[ids.ClientOrderId]struct{}),
		positionsByStrategy: make(map[ids.StrategyId]map[ids.PositionId]struct{}),
		workingOrders:       make(map[ids.ClientOrderId]struct{}),
		openPositions:       make(map[ids.PositionId]struct{}),
	}
}

func copyAccount(a *account.Account) *account.Account {
	c := *a
	c.Balances = make(map[string]ids.Quantity, len(a.Balances))
	for k, v := range a.Balances {
		c.Balances[k] = v
	}
	c.Margins = make(map[string]ids.Quantity, len(a.Margins))
	for k, v := range a.Margins {
		c.Margins[k] = v
	}
	return &c
}

func copyOrder(o *order.Order) *order.Order {
	c := *o
	c.ExecutionIds = make(map[string]struct{}, len(o.ExecutionIds))
	for k := range o.ExecutionIds {
		c.ExecutionIds[k] = struct{}{}
	}
	return &c
}

func copyPosition(p *position.Position) *position.Position {
	c := *p
	return &c
}

func (d *MemoryDatabase) LoadAccounts(_ context.Context) (map[ids.AccountId]*account.Account, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[ids.AccountId]*account.Account, len(d.accounts))
	for k, v := range d.accounts {
		out[k] = copyAccount(v)
	}
	return out, nil
}

func (d *MemoryDatabase) LoadOrders(_ context.Context) (map[ids.ClientOrderId]*order.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[ids.ClientOrderId]*order.Order, len(d.orders))
	for k, v := range d.orders {
		out[k] = copyOrder(v)
	}
	return out, nil
}

func (d *MemoryDatabase) LoadPositions(_ context.Context) (map[ids.PositionId]*position.Position, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[ids.PositionId]*position.Position, len(d.positions))
	for k, v := range d.positions {
		out[k] = copyPosition(v)
	}
	return out, nil
}

func (d *MemoryDatabase) LoadAccount(_ context.Context, id ids.AccountId) (*account.Account, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, false, nil
	}
	return copyAccount(a), true, nil
}

func (d *MemoryDatabase) LoadOrder(_ context.Context, id ids.ClientOrderId) (*order.Order, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o, ok := d.orders[id]
	if !ok {
		return nil, false, nil
	}
	return copyOrder(o), true, nil
}

func (d *MemoryDatabase) LoadPosition(_ context.Context, id ids.PositionId) (*position.Position, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.positions[id]
	if !ok {
		return nil, false, nil
	}
	return copyPosition(p), true, nil
}

func (d *MemoryDatabase) LoadStrategy(_ context.Context, strategyID ids.StrategyId) (map[string][]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	blobs := d.strategyState[strategyID]
	out := make(map[string][]byte, len(blobs))
	for k, v := range blobs {
		out[k] = append([]byte(nil), v...)
	}
	return out, nil
}

func (d *MemoryDatabase) AddAccount(_ context.Context, a *account.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[a.AccountId]; exists {
		return ErrAlreadyExists
	}
	d.accounts[a.AccountId] = copyAccount(a)
	return nil
}

func (d *MemoryDatabase) AddOrder(_ context.Context, o *order.Order) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.orders[o.ClientOrderId]; exists {
		return ErrAlreadyExists
	}
	d.orders[o.ClientOrderId] = copyOrder(o)
	d.indexOrder(o)
	return nil
}

func (d *MemoryDatabase) AddPosition(_ context.Context, p *position.Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.positions[p.PositionId]; exists {
		return ErrAlreadyExists
	}
	d.positions[p.PositionId] = copyPosition(p)
	d.indexPosition(p)
	return nil
}

func (d *MemoryDatabase) UpdateAccount(_ context.Context, a *account.Account) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accounts[a.AccountId]; !exists {
		return ErrNotFound
	}
	d.accounts[a.AccountId] = copyAccount(a)
	return nil
}

func (d *MemoryDatabase) UpdateOrder(_ context.Context, o *order.Order) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.orders[o.ClientOrderId]; !exists {
		return ErrNotFound
	}
	d.orders[o.ClientOrderId] = copyOrder(o)
	d.indexOrder(o)
	return nil
}

func (d *MemoryDatabase) UpdatePosition(_ context.Context, p *position.Position) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.positions[p.PositionId]; !exists {
		return ErrNotFound
	}
	d.positions[p.PositionId] = copyPosition(p)
	d.indexPosition(p)
	return nil
}

func (d *MemoryDatabase) UpdateStrategy(_ context.Context, strategyID ids.StrategyId, name string, blob []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	blobs, ok := d.strategyState[strategyID]
	if !ok {
		blobs = make(map[string][]byte)
		d.strategyState[strategyID] = blobs
	}
	blobs[name] = append([]byte(nil), blob...)
	return nil
}

func (d *MemoryDatabase) DeleteStrategy(_ context.Context, strategyID ids.StrategyId) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.strategyState, strategyID)
	return nil
}

func (d *MemoryDatabase) Flush(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accounts = make(map[ids.AccountId]*account.Account)
	d.orders = make(map[ids.ClientOrderId]*order.Order)
	d.positions = make(map[ids.PositionId]*position.Position)
	d.strategyState = make(map[ids.StrategyId]map[string][]byte)
	d.ordersByStrategy = make(map[ids.StrategyId]map[ids.ClientOrderId]struct{})
	d.positionsByStrategy = make(map[ids.StrategyId]map[ids.PositionId]struct{})
	d.workingOrders = make(map[ids.ClientOrderId]struct{})
	d.openPositions = make(map[ids.PositionId]struct{})
	return nil
}

func (d *MemoryDatabase) OrdersByStrategy(_ context.Context, strategyID ids.StrategyId) ([]*order.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	clOrdIDs := d.ordersByStrategy[strategyID]
	out := make([]*order.Order, 0, len(clOrdIDs))
	for clOrdID := range clOrdIDs {
		if o, ok := d.orders[clOrdID]; ok {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (d *MemoryDatabase) PositionsByStrategy(_ context.Context, strategyID ids.StrategyId) ([]*position.Position, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	posIDs := d.positionsByStrategy[strategyID]
	out := make([]*position.Position, 0, len(posIDs))
	for posID := range posIDs {
		if p, ok := d.positions[posID]; ok {
			out = append(out, copyPosition(p))
		}
	}
	return out, nil
}

func (d *MemoryDatabase) WorkingOrders(_ context.Context) ([]*order.Order, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*order.Order, 0, len(d.workingOrders))
	for clOrdID := range d.workingOrders {
		if o, ok := d.orders[clOrdID]; ok {
			out = append(out, copyOrder(o))
		}
	}
	return out, nil
}

func (d *MemoryDatabase) OpenPositions(_ context.Context) ([]*position.Position, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*position.Position, 0, len(d.openPositions))
	for posID := range d.openPositions {
		if p, ok := d.positions[posID]; ok {
			out = append(out, copyPosition(p))
		}
	}
	return out, nil
}

// indexOrder must be called with d.mu held. It maintains the
// orders-by-strategy and working-orders indices; an order is removed
// from working-orders on the update that makes its state terminal.
func (d *MemoryDatabase) indexOrder(o *order.Order) {
	byStrategy, ok := d.ordersByStrategy[o.StrategyId]
	if !ok {
		byStrategy = make(map[ids.ClientOrderId]struct{})
		d.ordersByStrategy[o.StrategyId] = byStrategy
	}
	byStrategy[o.ClientOrderId] = struct{}{}

	if o.State.IsTerminal() {
		delete(d.workingOrders, o.ClientOrderId)
	} else {
		d.workingOrders[o.ClientOrderId] = struct{}{}
	}
}

// indexPosition must be called with d.mu held. It maintains the
// positions-by-strategy and open-positions indices; a position is
// removed from open-positions on the update that flattens it.
func (d *MemoryDatabase) indexPosition(p *position.Position) {
	byStrategy, ok := d.positionsByStrategy[p.StrategyId]
	if !ok {
		byStrategy = make(map[ids.PositionId]struct{})
		d.positionsByStrategy[p.StrategyId] = byStrategy
	}
	byStrategy[p.PositionId] = struct{}{}

	if p.IsFlat() {
		delete(d.openPositions, p.PositionId)
	} else {
		d.openPositions[p.PositionId] = struct{}{}
	}
}

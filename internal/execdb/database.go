// Package execdb presents a uniform key/value view of accounts, orders,
// and positions behind one contract with two implementations: an
// in-memory variant authoritative in single-process deployments, and a
// persistent variant backed by PostgreSQL.
package execdb

import (
	"context"
	"errors"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
)

var (
	// ErrAlreadyExists is returned by Add* when the key is already present.
	ErrAlreadyExists = errors.New("execdb: record already exists")
	// ErrNotFound is returned by UpdateAccount, UpdateOrder, and
	// UpdatePosition when the key is absent. UpdateStrategy creates the
	// strategy's state when it is absent, and DeleteStrategy of an absent
	// strategy succeeds; neither returns ErrNotFound.
	ErrNotFound = errors.New("execdb: record not found")
	// ErrPersistenceUnavailable is returned once a persistent write
	// exhausts its retry budget.
	ErrPersistenceUnavailable = errors.New("execdb: persistence unavailable")
)

// Database is the engine's sole persistence contract. Every mutating
// method is called only from the engine's single writer thread; reads
// from other threads receive copies, never live pointers into the
// store's internal state.
type Database interface {
	LoadAccounts(ctx context.Context) (map[ids.AccountId]*account.Account, error)
	LoadOrders(ctx context.Context) (map[ids.ClientOrderId]*order.Order, error)
	LoadPositions(ctx context.Context) (map[ids.PositionId]*position.Position, error)

	LoadAccount(ctx context.Context, id ids.AccountId) (*account.Account, bool, error)
	LoadOrder(ctx context.Context, id ids.ClientOrderId) (*order.Order, bool, error)
	LoadPosition(ctx context.Context, id ids.PositionId) (*position.Position, bool, error)

	// LoadStrategy returns the opaque state blobs a strategy persisted
	// for itself, keyed by blob name.
	LoadStrategy(ctx context.Context, strategyID ids.StrategyId) (map[string][]byte, error)

	AddAccount(ctx context.Context, a *account.Account) error
	AddOrder(ctx context.Context, o *order.Order) error
	AddPosition(ctx context.Context, p *position.Position) error

	UpdateAccount(ctx context.Context, a *account.Account) error
	UpdateOrder(ctx context.Context, o *order.Order) error
	UpdatePosition(ctx context.Context, p *position.Position) error
	UpdateStrategy(ctx context.Context, strategyID ids.StrategyId, name string, blob []byte) error

	DeleteStrategy(ctx context.Context, strategyID ids.StrategyId) error

	// Flush removes every record. Test and recovery use only.
	Flush(ctx context.Context) error

	OrdersByStrategy(ctx context.Context, strategyID ids.StrategyId) ([]*order.Order, error)
	PositionsByStrategy(ctx context.Context, strategyID ids.StrategyId) ([]*position.Position, error)
	WorkingOrders(ctx context.Context) ([]*order.Order, error)
	OpenPositions(ctx context.Context) ([]*position.Position, error)
}

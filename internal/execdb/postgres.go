package execdb

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
)

// recordRow is the single key/value table backing the persistent
// variant: every account, order, position, strategy blob, and index is
// one opaque row, matching the key layout described for the engine's
// Database contract.
type recordRow struct {
	Key       string `gorm:"primaryKey;column:key"`
	Value     []byte `gorm:"column:value"`
	UpdatedAt time.Time
}

func (recordRow) TableName() string { return "execdb_records" }

// PostgresDatabase implements Database on top of a gorm connection,
// scoped to a single trader. Writes retry on transient errors with
// bounded exponential backoff before surfacing ErrPersistenceUnavailable.
type PostgresDatabase struct {
	db       *gorm.DB
	traderID ids.TraderId
}

// NewPostgresDatabase wraps an already-opened gorm connection (see
// OpenPostgres for one way to open it) and migrates the backing table if
// absent.
func NewPostgresDatabase(db *gorm.DB, traderID ids.TraderId) (*PostgresDatabase, error) {
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate execdb_records")
	}
	return &PostgresDatabase{db: db, traderID: traderID}, nil
}

// OpenPostgres dials dsn and wraps the resulting connection in a
// PostgresDatabase, for callers (cmd/execd) that don't otherwise need a
// *gorm.DB of their own.
func OpenPostgres(dsn string, traderID ids.TraderId) (*PostgresDatabase, error) {
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres connection")
	}
	return NewPostgresDatabase(db, traderID)
}

func (d *PostgresDatabase) accountKey(id ids.AccountId) string {
	return fmt.Sprintf("Trader-%s:Accounts:%s", d.traderID, id)
}

func (d *PostgresDatabase) orderKey(id ids.ClientOrderId) string {
	return fmt.Sprintf("Trader-%s:Orders:%s", d.traderID, id)
}

func (d *PostgresDatabase) positionKey(id ids.PositionId) string {
	return fmt.Sprintf("Trader-%s:Positions:%s", d.traderID, id)
}

func (d *PostgresDatabase) strategyKey(strategyID ids.StrategyId) string {
	return fmt.Sprintf("Trader-%s:Strategies:%s:State", d.traderID, strategyID)
}

func (d *PostgresDatabase) workingOrdersIndexKey() string {
	return fmt.Sprintf("Trader-%s:Index:OrdersWorking", d.traderID)
}

func (d *PostgresDatabase) openPositionsIndexKey() string {
	return fmt.Sprintf("Trader-%s:Index:PositionsOpen", d.traderID)
}

// ordersByStrategyIndexKey and positionsByStrategyIndexKey extend the
// spec's key layout with the strategy-scoped indices the Database
// contract requires but the wire layout leaves to the implementation.
func (d *PostgresDatabase) ordersByStrategyIndexKey(strategyID ids.StrategyId) string {
	return fmt.Sprintf("Trader-%s:Index:OrdersByStrategy:%s", d.traderID, strategyID)
}

func (d *PostgresDatabase) positionsByStrategyIndexKey(strategyID ids.StrategyId) string {
	return fmt.Sprintf("Trader-%s:Index:PositionsByStrategy:%s", d.traderID, strategyID)
}

// withRetry runs fn up to maxWriteAttempts times with bounded
// exponential backoff, surfacing ErrPersistenceUnavailable once the
// budget is exhausted. The context is checked before each attempt; a
// backoff sleep already started is not interrupted.
func withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(); err != nil {
			lastErr = err
			if attempt < maxWriteAttempts {
				time.Sleep(retryBackoff(attempt))
				continue
			}
			break
		}
		return nil
	}
	logs.Errorf("execdb: %s exhausted %d attempts, last error: %v", op, maxWriteAttempts, lastErr)
	return errors.Wrap(ErrPersistenceUnavailable, op)
}

func (d *PostgresDatabase) get(ctx context.Context, key string) ([]byte, bool, error) {
	var row recordRow
	err := d.db.WithContext(ctx).Where("key = ?", key).First(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return row.Value, true, nil
}

func (d *PostgresDatabase) put(ctx context.Context, key string, value []byte) error {
	row := recordRow{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return d.db.WithContext(ctx).Save(&row).Error
}

func (d *PostgresDatabase) delete(ctx context.Context, key string) error {
	return d.db.WithContext(ctx).Where("key = ?", key).Delete(&recordRow{}).Error
}

type strategySet map[string]struct{}

func (d *PostgresDatabase) addToSet(ctx context.Context, key, member string) error {
	raw, ok, err := d.get(ctx, key)
	if err != nil {
		return err
	}
	set := strategySet{}
	if ok {
		if err := json.Unmarshal(raw, &set); err != nil {
			return err
		}
	}
	set[member] = struct{}{}
	encoded, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return d.put(ctx, key, encoded)
}

func (d *PostgresDatabase) removeFromSet(ctx context.Context, key, member string) error {
	raw, ok, err := d.get(ctx, key)
	if err != nil || !ok {
		return err
	}
	set := strategySet{}
	if err := json.Unmarshal(raw, &set); err != nil {
		return err
	}
	delete(set, member)
	encoded, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return d.put(ctx, key, encoded)
}

func (d *PostgresDatabase) loadSet(ctx context.Context, key string) (strategySet, error) {
	raw, ok, err := d.get(ctx, key)
	if err != nil || !ok {
		return strategySet{}, err
	}
	set := strategySet{}
	if err := json.Unmarshal(raw, &set); err != nil {
		return nil, err
	}
	return set, nil
}

// --- Account ---

func (d *PostgresDatabase) LoadAccount(ctx context.Context, id ids.AccountId) (*account.Account, bool, error) {
	raw, ok, err := d.get(ctx, d.accountKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	a, err := decodeAccount(raw)
	return a, true, err
}

func (d *PostgresDatabase) LoadAccounts(ctx context.Context) (map[ids.AccountId]*account.Account, error) {
	var rows []recordRow
	prefix := fmt.Sprintf("Trader-%s:Accounts:", d.traderID)
	if err := d.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[ids.AccountId]*account.Account, len(rows))
	for _, row := range rows {
		a, err := decodeAccount(row.Value)
		if err != nil {
			return nil, err
		}
		out[a.AccountId] = a
	}
	return out, nil
}

func (d *PostgresDatabase) AddAccount(ctx context.Context, a *account.Account) error {
	if _, ok, err := d.LoadAccount(ctx, a.AccountId); err != nil {
		return err
	} else if ok {
		return ErrAlreadyExists
	}
	return d.writeAccount(ctx, a)
}

func (d *PostgresDatabase) UpdateAccount(ctx context.Context, a *account.Account) error {
	if _, ok, err := d.LoadAccount(ctx, a.AccountId); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	return d.writeAccount(ctx, a)
}

func (d *PostgresDatabase) writeAccount(ctx context.Context, a *account.Account) error {
	encoded, err := encodeAccount(a)
	if err != nil {
		return err
	}
	return withRetry(ctx, "write account", func() error {
		return d.put(ctx, d.accountKey(a.AccountId), encoded)
	})
}

// --- Order ---

func (d *PostgresDatabase) LoadOrder(ctx context.Context, id ids.ClientOrderId) (*order.Order, bool, error) {
	raw, ok, err := d.get(ctx, d.orderKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	o, err := decodeOrder(raw)
	return o, true, err
}

func (d *PostgresDatabase) LoadOrders(ctx context.Context) (map[ids.ClientOrderId]*order.Order, error) {
	var rows []recordRow
	prefix := fmt.Sprintf("Trader-%s:Orders:", d.traderID)
	if err := d.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[ids.ClientOrderId]*order.Order, len(rows))
	for _, row := range rows {
		o, err := decodeOrder(row.Value)
		if err != nil {
			return nil, err
		}
		out[o.ClientOrderId] = o
	}
	return out, nil
}

func (d *PostgresDatabase) AddOrder(ctx context.Context, o *order.Order) error {
	if _, ok, err := d.LoadOrder(ctx, o.ClientOrderId); err != nil {
		return err
	} else if ok {
		return ErrAlreadyExists
	}
	return d.writeOrder(ctx, o)
}

func (d *PostgresDatabase) UpdateOrder(ctx context.Context, o *order.Order) error {
	if _, ok, err := d.LoadOrder(ctx, o.ClientOrderId); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	return d.writeOrder(ctx, o)
}

func (d *PostgresDatabase) writeOrder(ctx context.Context, o *order.Order) error {
	encoded, err := encodeOrder(o)
	if err != nil {
		return err
	}
	return withRetry(ctx, "write order", func() error {
		if err := d.put(ctx, d.orderKey(o.ClientOrderId), encoded); err != nil {
			return err
		}
		if err := d.addToSet(ctx, d.ordersByStrategyIndexKey(o.StrategyId), string(o.ClientOrderId)); err != nil {
			return err
		}
		if o.State.IsTerminal() {
			return d.removeFromSet(ctx, d.workingOrdersIndexKey(), string(o.ClientOrderId))
		}
		return d.addToSet(ctx, d.workingOrdersIndexKey(), string(o.ClientOrderId))
	})
}

// --- Position ---

func (d *PostgresDatabase) LoadPosition(ctx context.Context, id ids.PositionId) (*position.Position, bool, error) {
	raw, ok, err := d.get(ctx, d.positionKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}
	p, err := decodePosition(raw)
	return p, true, err
}

func (d *PostgresDatabase) LoadPositions(ctx context.Context) (map[ids.PositionId]*position.Position, error) {
	var rows []recordRow
	prefix := fmt.Sprintf("Trader-%s:Positions:", d.traderID)
	if err := d.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[ids.PositionId]*position.Position, len(rows))
	for _, row := range rows {
		p, err := decodePosition(row.Value)
		if err != nil {
			return nil, err
		}
		out[p.PositionId] = p
	}
	return out, nil
}

func (d *PostgresDatabase) AddPosition(ctx context.Context, p *position.Position) error {
	if _, ok, err := d.LoadPosition(ctx, p.PositionId); err != nil {
		return err
	} else if ok {
		return ErrAlreadyExists
	}
	return d.writePosition(ctx, p)
}

func (d *PostgresDatabase) UpdatePosition(ctx context.Context, p *position.Position) error {
	if _, ok, err := d.LoadPosition(ctx, p.PositionId); err != nil {
		return err
	} else if !ok {
		return ErrNotFound
	}
	return d.writePosition(ctx, p)
}

func (d *PostgresDatabase) writePosition(ctx context.Context, p *position.Position) error {
	encoded, err := encodePosition(p)
	if err != nil {
		return err
	}
	return withRetry(ctx, "write position", func() error {
		if err := d.put(ctx, d.positionKey(p.PositionId), encoded); err != nil {
			return err
		}
		if err := d.addToSet(ctx, d.positionsByStrategyIndexKey(p.StrategyId), string(p.PositionId)); err != nil {
			return err
		}
		if p.IsFlat() {
			return d.removeFromSet(ctx, d.openPositionsIndexKey(), string(p.PositionId))
		}
		return d.addToSet(ctx, d.openPositionsIndexKey(), string(p.PositionId))
	})
}

// --- Strategy state ---

func (d *PostgresDatabase) LoadStrategy(ctx context.Context, strategyID ids.StrategyId) (map[string][]byte, error) {
	raw, ok, err := d.get(ctx, d.strategyKey(strategyID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string][]byte{}, nil
	}
	blobs := map[string][]byte{}
	if err := json.Unmarshal(raw, &blobs); err != nil {
		return nil, err
	}
	return blobs, nil
}

func (d *PostgresDatabase) UpdateStrategy(ctx context.Context, strategyID ids.StrategyId, name string, blob []byte) error {
	blobs, err := d.LoadStrategy(ctx, strategyID)
	if err != nil {
		return err
	}
	blobs[name] = blob
	encoded, err := json.Marshal(blobs)
	if err != nil {
		return err
	}
	return withRetry(ctx, "update strategy state", func() error {
		return d.put(ctx, d.strategyKey(strategyID), encoded)
	})
}

func (d *PostgresDatabase) DeleteStrategy(ctx context.Context, strategyID ids.StrategyId) error {
	return withRetry(ctx, "delete strategy state", func() error {
		return d.delete(ctx, d.strategyKey(strategyID))
	})
}

// --- Indices ---

func (d *PostgresDatabase) WorkingOrders(ctx context.Context) ([]*order.Order, error) {
	set, err := d.loadSet(ctx, d.workingOrdersIndexKey())
	if err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(set))
	for clOrdID := range set {
		id, err := ids.NewClientOrderId(clOrdID)
		if err != nil {
			return nil, err
		}
		o, ok, err := d.LoadOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (d *PostgresDatabase) OpenPositions(ctx context.Context) ([]*position.Position, error) {
	set, err := d.loadSet(ctx, d.openPositionsIndexKey())
	if err != nil {
		return nil, err
	}
	out := make([]*position.Position, 0, len(set))
	for posID := range set {
		id, err := ids.NewPositionId(posID)
		if err != nil {
			return nil, err
		}
		p, ok, err := d.LoadPosition(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *PostgresDatabase) OrdersByStrategy(ctx context.Context, strategyID ids.StrategyId) ([]*order.Order, error) {
	set, err := d.loadSet(ctx, d.ordersByStrategyIndexKey(strategyID))
	if err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(set))
	for clOrdID := range set {
		id, err := ids.NewClientOrderId(clOrdID)
		if err != nil {
			return nil, err
		}
		o, ok, err := d.LoadOrder(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (d *PostgresDatabase) PositionsByStrategy(ctx context.Context, strategyID ids.StrategyId) ([]*position.Position, error) {
	set, err := d.loadSet(ctx, d.positionsByStrategyIndexKey(strategyID))
	if err != nil {
		return nil, err
	}
	out := make([]*position.Position, 0, len(set))
	for posID := range set {
		id, err := ids.NewPositionId(posID)
		if err != nil {
			return nil, err
		}
		p, ok, err := d.LoadPosition(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (d *PostgresDatabase) Flush(ctx context.Context) error {
	prefix := fmt.Sprintf("Trader-%s:", d.traderID)
	return d.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Delete(&recordRow{}).Error
}

package core

import (
	"context"
	"time"

	"github.com/yanun0323/logs"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/bus"
	"github.com/algotrade/execd/internal/clock"
	"github.com/algotrade/execd/internal/event"
	"github.com/algotrade/execd/internal/execdb"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/minmax"
	"github.com/algotrade/execd/internal/obs"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
	"github.com/algotrade/execd/internal/risk"
	"github.com/algotrade/execd/internal/venue"
)

const defaultTimeoutCheckInterval = 200 * time.Millisecond

// positionKey identifies the one open position a (strategy_id, symbol)
// pair may have at a time; the engine is the sole owner of this mapping,
// since execdb's contract indexes positions only by strategy, not symbol.
type positionKey struct {
	StrategyId ids.StrategyId
	Symbol     ids.Symbol
}

// pendingCommand tracks one outgoing venue.Command awaiting either a
// venue acknowledgement or its command_timeout.
type pendingCommand struct {
	clOrdID    ids.ClientOrderId
	strategyID ids.StrategyId
	deadline   ids.Timestamp
}

// Engine is the single writer of Order, Position, and Account state.
type Engine struct {
	traderID       ids.TraderId
	db             execdb.Database
	client         venue.Client
	risk           *risk.Engine
	clock          clock.Clock
	metrics        *obs.Metrics
	correlations   *obs.CorrelationGenerator
	commandTimeout time.Duration

	commands *bus.Queue[commandEnvelope]
	events   *bus.Queue[event.Envelope]

	subscribers  map[ids.StrategyId][]Subscriber
	positionIdx  map[positionKey]ids.PositionId
	queuedCancel map[ids.ClientOrderId]struct{}
	pending      map[uint64]pendingCommand
	reconcile    map[string]struct{}
	seenEvents   map[event.ID]struct{}
	lastPrice    map[ids.Symbol]ids.Price
	windows      map[ids.Symbol]*minmax.WindowedMinMax
	priceWindow  time.Duration

	seq uint64
}

// Config bundles an Engine's constructor arguments.
type Config struct {
	TraderID         ids.TraderId
	Database         execdb.Database
	Client           venue.Client
	Risk             *risk.Engine
	Clock            clock.Clock
	Metrics          *obs.Metrics
	CommandTimeout   time.Duration
	CommandQueueSize int
	EventQueueSize   int
	// PriceWindow sizes the trailing window each symbol's windowed
	// min/max tracker retains. Defaults to 5 minutes.
	PriceWindow time.Duration
}

// NewEngine builds an Engine ready to Run.
func NewEngine(cfg Config) *Engine {
	timeout := cfg.CommandTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	cmdSize := cfg.CommandQueueSize
	if cmdSize <= 0 {
		cmdSize = 256
	}
	evtSize := cfg.EventQueueSize
	if evtSize <= 0 {
		evtSize = 1024
	}
	priceWindow := cfg.PriceWindow
	if priceWindow <= 0 {
		priceWindow = 5 * time.Minute
	}
	return &Engine{
		traderID:       cfg.TraderID,
		db:             cfg.Database,
		client:         cfg.Client,
		risk:           cfg.Risk,
		clock:          cfg.Clock,
		metrics:        cfg.Metrics,
		correlations:   obs.NewCorrelationGenerator(0),
		commandTimeout: timeout,
		commands:       bus.NewQueue[commandEnvelope](cmdSize),
		events:         bus.NewQueue[event.Envelope](evtSize),
		subscribers:    make(map[ids.StrategyId][]Subscriber),
		positionIdx:    make(map[positionKey]ids.PositionId),
		queuedCancel:   make(map[ids.ClientOrderId]struct{}),
		pending:        make(map[uint64]pendingCommand),
		reconcile:      make(map[string]struct{}),
		seenEvents:     make(map[event.ID]struct{}),
		lastPrice:      make(map[ids.Symbol]ids.Price),
		windows:        make(map[ids.Symbol]*minmax.WindowedMinMax),
		priceWindow:    priceWindow,
	}
}

// priceWindowFor returns the windowed min/max tracker for symbol,
// creating one on first use.
func (e *Engine) priceWindowFor(symbol ids.Symbol) *minmax.WindowedMinMax {
	w, ok := e.windows[symbol]
	if !ok {
		w = minmax.New(e.priceWindow)
		e.windows[symbol] = w
	}
	return w
}

// PriceWindow reports the trailing-window min/max price for symbol.
// Callers on another goroutine than Run must not call this concurrently
// with the engine; it exists for tests driving the engine synchronously.
func (e *Engine) PriceWindow(symbol ids.Symbol) (minPrice, maxPrice ids.Price, ok bool) {
	w, found := e.windows[symbol]
	if !found {
		return ids.Price{}, ids.Price{}, false
	}
	minP, minOK := w.MinPrice()
	maxP, maxOK := w.MaxPrice()
	return minP, maxP, minOK && maxOK
}

// Subscribe registers sub to receive every applied event tagged with
// strategyID, and every AccountState event regardless of strategy.
func (e *Engine) Subscribe(strategyID ids.StrategyId, sub Subscriber) {
	e.subscribers[strategyID] = append(e.subscribers[strategyID], sub)
}

// PublishVenueEvent enqueues env as if the execution client had produced
// it. Safe to call from any goroutine; the engine applies it on its own
// thread in the order received.
func (e *Engine) PublishVenueEvent(env event.Envelope) error {
	return e.events.TryPublish(env)
}

// forwardVenueEvents pumps the execution client's event stream onto the
// engine's own bounded event queue, so Run can select over command and
// venue ingress with one consistent Queue[T] shape instead of selecting
// directly on the client's channel.
func (e *Engine) forwardVenueEvents(ctx context.Context) {
	if e.client == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-e.client.Events():
			if !ok {
				return
			}
			if err := e.events.TryPublish(env); err != nil {
				if e.metrics != nil {
					e.metrics.EventDropsTotal.WithLabelValues("queue_full").Inc()
				}
				logs.Errorf("execd: dropping venue event %s: %v", env.EventID, err)
			}
		}
	}
}

// Run consumes the command and event queues on the calling goroutine
// until ctx is done. This is the engine's single writer thread: all
// Order/Position/Account/Database mutation happens here.
func (e *Engine) Run(ctx context.Context) {
	go e.forwardVenueEvents(ctx)
	timer := e.clock.After(defaultTimeoutCheckInterval)
	for {
		if e.metrics != nil {
			e.metrics.CommandQueueDepth.Set(float64(e.commands.Len()))
			e.metrics.EventQueueDepth.Set(float64(e.events.Len()))
		}
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-e.commands.Chan():
			if !ok {
				return
			}
			e.handleCommand(ctx, cmd)
		case env, ok := <-e.events.Chan():
			if !ok {
				return
			}
			e.handleVenueEvent(ctx, env)
		case <-timer:
			e.checkTimeouts()
			timer = e.clock.After(defaultTimeoutCheckInterval)
		}
	}
}

func (e *Engine) nextSeq() uint64 {
	e.seq++
	return e.seq
}

func (e *Engine) now() ids.Timestamp {
	ts, err := ids.NewTimestamp(e.clock.Now())
	if err != nil {
		// clock.Clock.Now is contractually UTC (clock.RealClock/ManualClock
		// both guarantee it); a non-UTC value here is a collaborator bug.
		return ids.Timestamp{}
	}
	return ts
}

func (e *Engine) publish(strategyID ids.StrategyId, env event.Envelope) {
	for _, sub := range e.subscribers[strategyID] {
		sub.OnEvent(env)
	}
}

func (e *Engine) broadcast(env event.Envelope) {
	for _, subs := range e.subscribers {
		for _, sub := range subs {
			sub.OnEvent(env)
		}
	}
}

func (e *Engine) flagReconciliation(kind, key string) {
	e.reconcile[kind+":"+key] = struct{}{}
	if e.metrics != nil {
		e.metrics.PersistenceFailures.Inc()
	}
	logs.Errorf("execd: flagged %s %s for reconciliation", kind, key)
}

// ReconciliationPending reports the keys currently flagged dirty after a
// persistence write exhausted its retry budget.
func (e *Engine) ReconciliationPending() []string {
	out := make([]string, 0, len(e.reconcile))
	for k := range e.reconcile {
		out = append(out, k)
	}
	return out
}

func (e *Engine) trackPending(corrID uint64, clOrdID ids.ClientOrderId, strategyID ids.StrategyId) {
	e.pending[corrID] = pendingCommand{
		clOrdID:    clOrdID,
		strategyID: strategyID,
		deadline:   e.now().Add(e.commandTimeout),
	}
}

func (e *Engine) checkTimeouts() {
	now := e.now()
	for corrID, p := range e.pending {
		if now.Before(p.deadline) {
			continue
		}
		delete(e.pending, corrID)
		if e.metrics != nil {
			e.metrics.CommandTimeouts.Inc()
		}
		env := event.Envelope{
			EventID:        event.NewID(),
			EventTimestamp: now,
			Seq:            e.nextSeq(),
			Kind:           event.KindOrderCommandTimeout,
			Payload:        event.OrderCommandTimeout{ClientOrderId: p.clOrdID},
		}
		e.publish(p.strategyID, env)
	}
}

func (e *Engine) positionFor(ctx context.Context, strategyID ids.StrategyId, symbol ids.Symbol) (*position.Position, error) {
	key := positionKey{StrategyId: strategyID, Symbol: symbol}
	posID, ok := e.positionIdx[key]
	if !ok {
		return nil, nil
	}
	p, found, err := e.db.LoadPosition(ctx, posID)
	if err != nil || !found {
		return nil, err
	}
	return p, nil
}

func (e *Engine) accountFor(ctx context.Context, accountID ids.AccountId) (*account.Account, bool, error) {
	return e.db.LoadAccount(ctx, accountID)
}

// orderFor loads the order named by clOrdID, if any.
func (e *Engine) orderFor(ctx context.Context, clOrdID ids.ClientOrderId) (*order.Order, bool, error) {
	return e.db.LoadOrder(ctx, clOrdID)
}

// seenEvent reports whether eventID has already been applied, and marks
// it seen. Duplicate delivery of the same event_id is a no-op.
func (e *Engine) seenEvent(eventID event.ID) bool {
	if _, ok := e.seenEvents[eventID]; ok {
		return true
	}
	e.seenEvents[eventID] = struct{}{}
	return false
}

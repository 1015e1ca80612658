// Package risk evaluates strategy commands against a small set of static
// pre-trade limits before the Execution Engine records and forwards them.
package risk

import (
	"time"

	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/position"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Config defines static risk limits. A zero value for any limit disables
// that check.
type Config struct {
	KillSwitch           bool          `json:"killSwitch"`
	MaxOrderQty          ids.Quantity  `json:"maxOrderQty"`
	MaxOrderNotional      ids.Notional  `json:"maxOrderNotional"`
	MaxPosition          ids.Quantity  `json:"maxPosition"`
	OrderRateLimit       int           `json:"orderRateLimit"`
	OrderRateWindow      time.Duration `json:"orderRateWindow"`
	MaxPriceDeviationBps int64         `json:"maxPriceDeviationBps"`
}

// Intent is the subset of a SubmitOrder command the risk engine needs to
// evaluate, independent of the engine's internal order representation.
type Intent struct {
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
	Symbol        ids.Symbol
	Side          ids.Side
	Type          ids.OrderType
	Quantity      ids.Quantity
	Price         ids.Price // zero for market orders
}

// StateView gives the risk engine a read-only snapshot of the position
// the intent would affect, and the latest reference price for the symbol.
type StateView struct {
	Position       *position.Position // nil if no open position
	ReferencePrice ids.Price
	HasReference   bool
	Now            ids.Timestamp
}

// Action is the risk engine's verdict on an Intent.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Reason names why an Intent was denied; ReasonNone on allow.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonKillSwitch
	ReasonRateLimit
	ReasonMaxQty
	ReasonPriceBand
	ReasonMaxNotional
	ReasonPositionLimit
)

func (r Reason) String() string {
	switch r {
	case ReasonKillSwitch:
		return "KillSwitch"
	case ReasonRateLimit:
		return "RateLimit"
	case ReasonMaxQty:
		return "MaxQty"
	case ReasonPriceBand:
		return "PriceBand"
	case ReasonMaxNotional:
		return "MaxNotional"
	case ReasonPositionLimit:
		return "PositionLimit"
	default:
		return "None"
	}
}

// Decision is the risk engine's verdict plus the inputs that produced it,
// for logging and strategy-facing rejection messages.
type Decision struct {
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
	Action        Action
	Reason        Reason
}

// Engine evaluates Intents against static Config limits plus a rolling
// order-rate window.
type Engine struct {
	cfg             Config
	rateWindowStart ids.Timestamp
	rateWindowSet   bool
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// Evaluate applies the configured checks to intent, in the order: kill
// switch, order rate limit, max order quantity, price deviation band, max
// notional, position limit.
func (e *Engine) Evaluate(intent Intent, state StateView) Decision {
	decision := Decision{
		ClientOrderId: intent.ClientOrderId,
		StrategyId:    intent.StrategyId,
		Action:        ActionAllow,
		Reason:        ReasonNone,
	}

	if e.cfg.KillSwitch {
		decision.Action = ActionDeny
		decision.Reason = ReasonKillSwitch
		return decision
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		if !e.rateWindowSet || state.Now.Sub(e.rateWindowStart) >= e.cfg.OrderRateWindow {
			e.rateWindowStart = state.Now
			e.rateWindowSet = true
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			decision.Action = ActionDeny
			decision.Reason = ReasonRateLimit
			return decision
		}
	}

	if !e.cfg.MaxOrderQty.IsZero() {
		if cmp, err := intent.Quantity.Compare(e.cfg.MaxOrderQty); err == nil && cmp > 0 {
			decision.Action = ActionDeny
			decision.Reason = ReasonMaxQty
			return decision
		}
	}

	if e.cfg.MaxPriceDeviationBps > 0 && intent.Type == ids.OrderTypeLimit && !intent.Price.IsZero() && state.HasReference {
		if diff, err := intent.Price.Sub(state.ReferencePrice); err == nil {
			if exceedsDeviation(absInt64(diff), state.ReferencePrice.Int64(), e.cfg.MaxPriceDeviationBps) {
				decision.Action = ActionDeny
				decision.Reason = ReasonPriceBand
				return decision
			}
		}
	}

	notional, overflow := mulNotional(intent.Price, intent.Quantity)
	if overflow {
		decision.Action = ActionDeny
		decision.Reason = ReasonMaxNotional
		return decision
	}
	if !e.cfg.MaxOrderNotional.IsZero() && notional > e.cfg.MaxOrderNotional.Int64() {
		decision.Action = ActionDeny
		decision.Reason = ReasonMaxNotional
		return decision
	}

	if !e.cfg.MaxPosition.IsZero() {
		nextPos := applySide(state.Position, intent.Side, intent.Quantity)
		if nextPos > e.cfg.MaxPosition.Int64() {
			decision.Action = ActionDeny
			decision.Reason = ReasonPositionLimit
			return decision
		}
	}

	return decision
}

func mulNotional(price ids.Price, qty ids.Quantity) (int64, bool) {
	p := price.Int64()
	q := qty.Int64()
	if p == 0 || q == 0 {
		return 0, false
	}
	if p > maxInt64/q {
		return 0, true
	}
	return p * q, false
}

// applySide returns the absolute signed net position, in scaled units,
// that would result from filling intent's full quantity against side on
// top of state's existing position.
func applySide(pos *position.Position, side ids.Side, qty ids.Quantity) int64 {
	current := int64(0)
	if pos != nil {
		switch pos.Side {
		case ids.PositionLong:
			current = pos.Quantity.Int64()
		case ids.PositionShort:
			current = -pos.Quantity.Int64()
		}
	}
	switch side {
	case ids.SideBuy:
		current += qty.Int64()
	case ids.SideSell:
		current -= qty.Int64()
	}
	return absInt64(current)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func exceedsDeviation(diff int64, ref int64, bps int64) bool {
	if diff <= 0 || ref <= 0 || bps <= 0 {
		return false
	}
	if diff > maxInt64/10000 {
		return true
	}
	lhs := diff * 10000
	if ref > maxInt64/bps {
		return true
	}
	rhs := ref * bps
	return lhs > rhs
}

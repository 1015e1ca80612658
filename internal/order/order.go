package order

import (
	"errors"

	"github.com/algotrade/execd/internal/ids"
)

var (
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrAmendNotSupported      = errors.New("order: amend not supported on market orders")
	ErrQuantityBelowFilled    = errors.New("order: amended quantity is below filled quantity")
	ErrTimeInForceInvalid     = errors.New("order: time in force invalid for order type")
	ErrQuantityNonPositive    = errors.New("order: quantity must be positive")
)

// Order is the engine's authoritative view of one client order, driven
// exclusively by events applied through the methods below.
type Order struct {
	ClientOrderId ids.ClientOrderId
	OrderId       ids.OrderId // set once Accepted
	StrategyId    ids.StrategyId
	Symbol        ids.Symbol
	Side          ids.Side
	Type          ids.OrderType
	Quantity      ids.Quantity
	FilledQty     ids.Quantity
	AvgPrice      ids.Price
	HasAvgPrice   bool
	Price         ids.Price // working price for limit orders
	TimeInForce   ids.TimeInForce
	State         State
	ExecutionIds  map[string]struct{}
	InitId        string
	TsInit        ids.Timestamp
	TsLast        ids.Timestamp
}

// New creates an Order in the Initialized state from an OrderInitialized
// event. Market orders must carry a time in force drawn from
// {GTC, IOC, FOK}.
func New(clOrdID ids.ClientOrderId, strategyID ids.StrategyId, symbol ids.Symbol, side ids.Side, typ ids.OrderType, qty ids.Quantity, price ids.Price, tif ids.TimeInForce, initID string, ts ids.Timestamp) (*Order, error) {
	if qty.IsZero() {
		return nil, ErrQuantityNonPositive
	}
	if typ == ids.OrderTypeMarket && !validMarketTIF(tif) {
		return nil, ErrTimeInForceInvalid
	}
	return &Order{
		ClientOrderId: clOrdID,
		StrategyId:    strategyID,
		Symbol:        symbol,
		Side:          side,
		Type:          typ,
		Quantity:      qty,
		Price:         price,
		TimeInForce:   tif,
		State:         StateInitialized,
		ExecutionIds:  make(map[string]struct{}),
		InitId:        initID,
		TsInit:        ts,
		TsLast:        ts,
	}, nil
}

func validMarketTIF(tif ids.TimeInForce) bool {
	for _, v := range ids.MarketTimeInForces() {
		if v == tif {
			return true
		}
	}
	return false
}

// ApplySubmitted transitions Initialized -> Submitted.
func (o *Order) ApplySubmitted(ts ids.Timestamp) error {
	if o.State != StateInitialized {
		return ErrInvalidStateTransition
	}
	o.State = StateSubmitted
	o.TsLast = ts
	return nil
}

// ApplyDenied transitions Submitted -> Denied.
func (o *Order) ApplyDenied(ts ids.Timestamp) error {
	if o.State != StateSubmitted {
		return ErrInvalidStateTransition
	}
	o.State = StateDenied
	o.TsLast = ts
	return nil
}

// ApplyAccepted transitions Submitted -> Accepted and records the
// venue-issued OrderId.
func (o *Order) ApplyAccepted(orderID ids.OrderId, ts ids.Timestamp) error {
	if o.State != StateSubmitted {
		return ErrInvalidStateTransition
	}
	o.OrderId = orderID
	o.State = StateAccepted
	o.TsLast = ts
	return nil
}

// ApplyRejected transitions Submitted -> Rejected or Accepted -> Rejected.
func (o *Order) ApplyRejected(ts ids.Timestamp) error {
	if o.State != StateSubmitted && o.State != StateAccepted {
		return ErrInvalidStateTransition
	}
	o.State = StateRejected
	o.TsLast = ts
	return nil
}

// ApplyWorking transitions Accepted -> Working, or Amended -> Working
// once the venue re-acknowledges a replaced order.
func (o *Order) ApplyWorking(ts ids.Timestamp) error {
	switch o.State {
	case StateAccepted, StateAmended:
		o.State = StateWorking
		o.TsLast = ts
		return nil
	default:
		return ErrInvalidStateTransition
	}
}

// ApplyAmended transitions Working -> Amended, replacing quantity and/or
// working price. Refused on market orders and on quantities below what
// is already filled.
func (o *Order) ApplyAmended(newQty ids.Quantity, workingPrice ids.Price, ts ids.Timestamp) error {
	if !o.State.isWorking() {
		return ErrInvalidStateTransition
	}
	if o.Type == ids.OrderTypeMarket {
		return ErrAmendNotSupported
	}
	cmp, err := newQty.Compare(o.FilledQty)
	if err != nil {
		return err
	}
	if cmp < 0 {
		return ErrQuantityBelowFilled
	}
	o.Quantity = newQty
	o.Price = workingPrice
	o.State = StateAmended
	o.TsLast = ts
	return nil
}

// ApplyCancelled transitions a working order to Cancelled.
func (o *Order) ApplyCancelled(ts ids.Timestamp) error {
	if !o.State.isWorking() {
		return ErrInvalidStateTransition
	}
	o.State = StateCancelled
	o.TsLast = ts
	return nil
}

// ApplyExpired transitions a working order to Expired.
func (o *Order) ApplyExpired(ts ids.Timestamp) error {
	if !o.State.isWorking() {
		return ErrInvalidStateTransition
	}
	o.State = StateExpired
	o.TsLast = ts
	return nil
}

// ApplyFilled appends a fill. Duplicate execution ids are a no-op that
// returns success (idempotence). filled_qty increments by fillQty and
// avg_price is recomputed as the fill-quantity-weighted mean over all
// applied fills. The order becomes Filled once filled_qty == quantity,
// otherwise PartiallyFilled.
func (o *Order) ApplyFilled(executionID string, fillQty ids.Quantity, fillPrice ids.Price, ts ids.Timestamp) error {
	if !o.State.isWorking() {
		return ErrInvalidStateTransition
	}
	if _, dup := o.ExecutionIds[executionID]; dup {
		return nil
	}
	if o.HasAvgPrice && fillPrice.Scale() != o.AvgPrice.Scale() {
		return ids.ErrPrecisionMismatch
	}

	prevFilled := o.FilledQty
	newFilled, err := prevFilled.Add(fillQty)
	if err != nil {
		return err
	}

	o.AvgPrice = weightedAveragePrice(o.AvgPrice, o.HasAvgPrice, prevFilled, fillPrice, fillQty)
	o.HasAvgPrice = true
	o.FilledQty = newFilled
	o.ExecutionIds[executionID] = struct{}{}
	o.TsLast = ts

	if cmp, err := newFilled.Compare(o.Quantity); err == nil && cmp >= 0 {
		o.State = StateFilled
	} else {
		o.State = StatePartiallyFilled
	}
	return nil
}

func weightedAveragePrice(prevAvg ids.Price, hasAvg bool, prevFilled ids.Quantity, fillPrice ids.Price, fillQty ids.Quantity) ids.Price {
	if !hasAvg {
		return fillPrice
	}
	scale := fillPrice.Scale()
	num := prevAvg.Int64()*prevFilled.Int64() + fillPrice.Int64()*fillQty.Int64()
	den := prevFilled.Int64() + fillQty.Int64()
	if den == 0 {
		return fillPrice
	}
	avg, err := ids.NewPrice(num/den, scale)
	if err != nil {
		return fillPrice
	}
	return avg
}

// Package position implements the Position entity: accumulated fills for
// one (strategy, symbol) pair, mutated only by the Execution Engine.
package position

import (
	"errors"

	"github.com/algotrade/execd/internal/ids"
)

// ErrPrecisionMismatch is surfaced from the underlying ids arithmetic.
var ErrPrecisionMismatch = ids.ErrPrecisionMismatch

// ErrFlatPositionHasQuantity names a broken FLAT-iff-zero invariant. No
// function in this module returns or checks it.
var ErrFlatPositionHasQuantity = errors.New("position: flat position has non-zero quantity")

// Position accumulates fills for a (strategy_id, symbol) pair.
type Position struct {
	PositionId   ids.PositionId
	StrategyId   ids.StrategyId
	Symbol       ids.Symbol
	Side         ids.PositionSide
	Quantity     ids.Quantity
	AvgOpenPrice ids.Price
	RealizedPnL  int64 // signed; scale is AvgOpenPrice.Scale() plus Quantity.Scale()
	TsOpened     ids.Timestamp
	TsClosed     ids.Timestamp
	HasTsClosed  bool
}

// Open creates a new Position from the first non-flattening fill for a
// (strategy_id, symbol) pair with no open position.
func Open(id ids.PositionId, strategyID ids.StrategyId, symbol ids.Symbol, side ids.Side, qty ids.Quantity, price ids.Price, ts ids.Timestamp) *Position {
	return &Position{
		PositionId:   id,
		StrategyId:   strategyID,
		Symbol:       symbol,
		Side:         sideOf(side),
		Quantity:     qty,
		AvgOpenPrice: price,
		TsOpened:     ts,
	}
}

func sideOf(s ids.Side) ids.PositionSide {
	switch s {
	case ids.SideBuy:
		return ids.PositionLong
	case ids.SideSell:
		return ids.PositionShort
	default:
		return ids.PositionFlat
	}
}

func signOf(s ids.PositionSide) int64 {
	switch s {
	case ids.PositionLong:
		return 1
	case ids.PositionShort:
		return -1
	default:
		return 0
	}
}

// ApplyFill applies one fill to the position per spec.md §4.3:
//   - same side as the position: quantity and avg_open_price update by
//     quantity-weighted mean.
//   - opposing side: quantity reduces; the closed portion contributes to
//     realized_pnl as (exit-avg_open)*closed_qty*side_sign. If the fill
//     exceeds the open quantity, the position flips: the residual opens a
//     new side at the fill price and ts_opened resets.
//
// Applying a fill to a FLAT position (Quantity==0) is equivalent to Open
// and is handled the same way here so the engine can route every fill
// through ApplyFill uniformly once a Position exists.
func (p *Position) ApplyFill(fillSide ids.Side, fillQty ids.Quantity, fillPrice ids.Price, ts ids.Timestamp) error {
	if p.Side == ids.PositionFlat || p.Quantity.IsZero() {
		p.Side = sideOf(fillSide)
		p.Quantity = fillQty
		p.AvgOpenPrice = fillPrice
		p.TsOpened = ts
		p.HasTsClosed = false
		return nil
	}

	posSide := sideOf(fillSide) == p.Side
	if posSide {
		return p.increase(fillQty, fillPrice)
	}
	return p.reduceOrFlip(fillQty, fillPrice, ts)
}

func (p *Position) increase(fillQty ids.Quantity, fillPrice ids.Price) error {
	if fillPrice.Scale() != p.AvgOpenPrice.Scale() {
		return ErrPrecisionMismatch
	}
	newQty, err := p.Quantity.Add(fillQty)
	if err != nil {
		return err
	}
	num := p.AvgOpenPrice.Int64()*p.Quantity.Int64() + fillPrice.Int64()*fillQty.Int64()
	den := newQty.Int64()
	avg := fillPrice.Int64()
	if den != 0 {
		avg = num / den
	}
	newAvg, err := ids.NewPrice(avg, p.AvgOpenPrice.Scale())
	if err != nil {
		return err
	}
	p.Quantity = newQty
	p.AvgOpenPrice = newAvg
	return nil
}

func (p *Position) reduceOrFlip(fillQty ids.Quantity, fillPrice ids.Price, ts ids.Timestamp) error {
	if fillPrice.Scale() != p.AvgOpenPrice.Scale() {
		return ErrPrecisionMismatch
	}
	cmp, err := fillQty.Compare(p.Quantity)
	if err != nil {
		return err
	}

	sideSign := signOf(p.Side)
	exit := fillPrice.Int64()
	avgOpen := p.AvgOpenPrice.Int64()

	if cmp < 0 {
		// Partial close: reduce quantity, realize PnL on the closed slice.
		closedQty := fillQty.Int64()
		p.RealizedPnL += (exit - avgOpen) * closedQty * sideSign
		newQty, err := p.Quantity.Sub(fillQty)
		if err != nil {
			return err
		}
		p.Quantity = newQty
		return nil
	}

	if cmp == 0 {
		// Exact close: position goes FLAT.
		closedQty := fillQty.Int64()
		p.RealizedPnL += (exit - avgOpen) * closedQty * sideSign
		p.Quantity, _ = ids.NewQuantity(0, p.Quantity.Scale())
		p.Side = ids.PositionFlat
		p.TsClosed = ts
		p.HasTsClosed = true
		return nil
	}

	// Flip: close the full existing quantity, then open the residual on
	// the opposing side at the fill price.
	closedQty := p.Quantity.Int64()
	p.RealizedPnL += (exit - avgOpen) * closedQty * sideSign

	residual := fillQty.Int64() - closedQty
	newQty, err := ids.NewQuantity(residual, p.Quantity.Scale())
	if err != nil {
		return err
	}
	p.Quantity = newQty
	p.AvgOpenPrice = fillPrice
	p.Side = flip(p.Side)
	p.TsOpened = ts
	p.HasTsClosed = false
	return nil
}

func flip(s ids.PositionSide) ids.PositionSide {
	switch s {
	case ids.PositionLong:
		return ids.PositionShort
	case ids.PositionShort:
		return ids.PositionLong
	default:
		return ids.PositionFlat
	}
}

// IsFlat reports whether the position is FLAT, which must hold iff
// Quantity is zero (spec.md §8 invariant 2).
func (p *Position) IsFlat() bool { return p.Side == ids.PositionFlat }

package core

import (
	"context"

	"github.com/algotrade/execd/internal/ids"
)

// commandKind tags the payload carried by a commandEnvelope.
type commandKind uint8

const (
	commandSubmitOrder commandKind = iota
	commandCancelOrder
	commandAmendOrder
	commandFlattenPosition
)

// submitOrder is the payload for SubmitOrder.
type submitOrder struct {
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
	Symbol        ids.Symbol
	Side          ids.Side
	Type          ids.OrderType
	TimeInForce   ids.TimeInForce
	Quantity      ids.Quantity
	Price         ids.Price
}

// cancelOrder is the payload for CancelOrder.
type cancelOrder struct {
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
}

// amendOrder is the payload for AmendOrder.
type amendOrder struct {
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
	Quantity      ids.Quantity
	Price         ids.Price
}

// flattenPosition is the payload for FlattenPosition.
type flattenPosition struct {
	PositionId ids.PositionId
	StrategyId ids.StrategyId
}

// commandEnvelope is what crosses the command ingress queue. reply
// carries the validation/forwarding result back to the submitting
// goroutine; it is always buffered by 1 so the engine never blocks
// sending to it.
type commandEnvelope struct {
	kind    commandKind
	submit  submitOrder
	cancel  cancelOrder
	amend   amendOrder
	flatten flattenPosition
	reply   chan error
}

func (e *Engine) dispatch(ctx context.Context, env commandEnvelope) error {
	env.reply = make(chan error, 1)
	if err := e.commands.TryPublish(env); err != nil {
		return err
	}
	select {
	case err := <-env.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitOrder validates and records a new order, then forwards it to the
// registered execution client. clOrdID must be unique for the lifetime of
// the Engine; price is ignored for market orders.
func (e *Engine) SubmitOrder(ctx context.Context, clOrdID ids.ClientOrderId, strategyID ids.StrategyId, symbol ids.Symbol, side ids.Side, typ ids.OrderType, tif ids.TimeInForce, qty ids.Quantity, price ids.Price) error {
	return e.dispatch(ctx, commandEnvelope{
		kind: commandSubmitOrder,
		submit: submitOrder{
			ClientOrderId: clOrdID,
			StrategyId:    strategyID,
			Symbol:        symbol,
			Side:          side,
			Type:          typ,
			TimeInForce:   tif,
			Quantity:      qty,
			Price:         price,
		},
	})
}

// CancelOrder requests cancellation of an existing order. If the order is
// still Submitted (not yet venue-acknowledged), the cancel is queued and
// resolved once OrderAccepted or OrderRejected arrives.
func (e *Engine) CancelOrder(ctx context.Context, clOrdID ids.ClientOrderId, strategyID ids.StrategyId) error {
	return e.dispatch(ctx, commandEnvelope{
		kind:   commandCancelOrder,
		cancel: cancelOrder{ClientOrderId: clOrdID, StrategyId: strategyID},
	})
}

// AmendOrder requests a quantity/price replacement on a working order.
// Refused immediately with order.ErrAmendNotSupported for market orders.
func (e *Engine) AmendOrder(ctx context.Context, clOrdID ids.ClientOrderId, strategyID ids.StrategyId, qty ids.Quantity, price ids.Price) error {
	return e.dispatch(ctx, commandEnvelope{
		kind:  commandAmendOrder,
		amend: amendOrder{ClientOrderId: clOrdID, StrategyId: strategyID, Quantity: qty, Price: price},
	})
}

// FlattenPosition closes an open position at market. A no-op if the
// position is already FLAT.
func (e *Engine) FlattenPosition(ctx context.Context, positionID ids.PositionId, strategyID ids.StrategyId) error {
	return e.dispatch(ctx, commandEnvelope{
		kind:    commandFlattenPosition,
		flatten: flattenPosition{PositionId: positionID, StrategyId: strategyID},
	})
}

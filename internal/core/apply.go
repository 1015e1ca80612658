package core

import (
	"context"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"github.com/algotrade/execd/internal/account"
	"github.com/algotrade/execd/internal/event"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/position"
	"github.com/algotrade/execd/internal/venue"
)

// persistOrder writes o. Failures on a venue-originated event are logged
// and flagged for reconciliation without rolling back the in-memory
// mutation already applied to o; failures while handling a command
// propagate so the originating command fails outright.
func (e *Engine) persistOrder(ctx context.Context, o *order.Order, isNew, fromVenue bool) error {
	var err error
	if isNew {
		err = e.db.AddOrder(ctx, o)
	} else {
		err = e.db.UpdateOrder(ctx, o)
	}
	if err == nil {
		return nil
	}
	if fromVenue {
		e.flagReconciliation("order", string(o.ClientOrderId))
		return nil
	}
	return err
}

func (e *Engine) persistPosition(ctx context.Context, p *position.Position, isNew, fromVenue bool) error {
	var err error
	if isNew {
		err = e.db.AddPosition(ctx, p)
	} else {
		err = e.db.UpdatePosition(ctx, p)
	}
	if err == nil {
		return nil
	}
	if fromVenue {
		e.flagReconciliation("position", string(p.PositionId))
		return nil
	}
	return err
}

func (e *Engine) persistAccount(ctx context.Context, a *account.Account, isNew, fromVenue bool) error {
	var err error
	if isNew {
		err = e.db.AddAccount(ctx, a)
	} else {
		err = e.db.UpdateAccount(ctx, a)
	}
	if err == nil {
		return nil
	}
	if fromVenue {
		e.flagReconciliation("account", string(a.AccountId))
		return nil
	}
	return err
}

func (e *Engine) applyOrderAccepted(ctx context.Context, env event.Envelope, payload event.OrderAccepted) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderAccepted for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyAccepted(payload.OrderId, env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderAccepted on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderAccepted %s: %v", payload.ClientOrderId, err)
		return
	}

	if _, queued := e.queuedCancel[payload.ClientOrderId]; queued {
		delete(e.queuedCancel, payload.ClientOrderId)
		corrID := e.correlations.Next()
		if err := e.client.Send(ctx, venue.Command{
			Kind: venue.CommandCancel, CorrelationId: corrID,
			ClientOrderId: payload.ClientOrderId, StrategyId: o.StrategyId,
		}); err != nil {
			logs.Errorf("execd: forwarding queued cancel for %s: %v", payload.ClientOrderId, err)
		}
		e.trackPending(corrID, payload.ClientOrderId, o.StrategyId)
	}

	e.publish(o.StrategyId, env)
}

func (e *Engine) applyOrderRejected(ctx context.Context, env event.Envelope, payload event.OrderRejected) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderRejected for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyRejected(env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderRejected on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderRejected %s: %v", payload.ClientOrderId, err)
		return
	}
	delete(e.queuedCancel, payload.ClientOrderId)
	e.publish(o.StrategyId, env)
}

func (e *Engine) applyOrderWorking(ctx context.Context, env event.Envelope, payload event.OrderWorking) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderWorking for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyWorking(env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderWorking on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderWorking %s: %v", payload.ClientOrderId, err)
		return
	}
	e.publish(o.StrategyId, env)
}

func (e *Engine) applyOrderAmended(ctx context.Context, env event.Envelope, payload event.OrderAmended) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderAmended for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyAmended(payload.Quantity, payload.Price, env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderAmended on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderAmended %s: %v", payload.ClientOrderId, err)
		return
	}
	e.publish(o.StrategyId, env)
}

func (e *Engine) applyOrderCancelled(ctx context.Context, env event.Envelope, payload event.OrderCancelled) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderCancelled for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyCancelled(env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderCancelled on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderCancelled %s: %v", payload.ClientOrderId, err)
		return
	}
	e.publish(o.StrategyId, env)
}

func (e *Engine) applyOrderExpired(ctx context.Context, env event.Envelope, payload event.OrderExpired) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderExpired for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyExpired(env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderExpired on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderExpired %s: %v", payload.ClientOrderId, err)
		return
	}
	e.publish(o.StrategyId, env)
}

func (e *Engine) applyOrderFilled(ctx context.Context, env event.Envelope, payload event.OrderFilled) {
	o, found, err := e.orderFor(ctx, payload.ClientOrderId)
	if err != nil || !found {
		logs.Warnf("execd: OrderFilled for unknown order %s", payload.ClientOrderId)
		return
	}
	if err := o.ApplyFilled(payload.ExecutionId, payload.FillQty, payload.FillPrice, env.EventTimestamp); err != nil {
		logs.Errorf("execd: OrderFilled on %s: %v", payload.ClientOrderId, err)
		return
	}
	if err := e.persistOrder(ctx, o, false, true); err != nil {
		logs.Errorf("execd: persist OrderFilled %s: %v", payload.ClientOrderId, err)
		return
	}

	e.lastPrice[o.Symbol] = payload.FillPrice
	if err := e.priceWindowFor(o.Symbol).AddTimestamp(env.EventTimestamp, payload.FillPrice); err != nil {
		logs.Warnf("execd: updating price window for %s: %v", o.Symbol, err)
	}

	e.applyFillToPosition(ctx, o, payload, env.EventTimestamp)
	e.publish(o.StrategyId, env)
}

func (e *Engine) applyFillToPosition(ctx context.Context, o *order.Order, payload event.OrderFilled, ts ids.Timestamp) {
	key := positionKey{StrategyId: o.StrategyId, Symbol: o.Symbol}
	posID, exists := e.positionIdx[key]

	if !exists {
		newID, err := ids.NewPositionId(uuid.NewString())
		if err != nil {
			logs.Errorf("execd: generating position id: %v", err)
			return
		}
		p := position.Open(newID, o.StrategyId, o.Symbol, o.Side, payload.FillQty, payload.FillPrice, ts)
		if err := e.persistPosition(ctx, p, true, true); err != nil {
			logs.Errorf("execd: persist new position %s: %v", newID, err)
			return
		}
		e.positionIdx[key] = newID
		return
	}

	p, found, err := e.db.LoadPosition(ctx, posID)
	if err != nil || !found {
		logs.Errorf("execd: loading position %s: %v", posID, err)
		return
	}
	if err := p.ApplyFill(o.Side, payload.FillQty, payload.FillPrice, ts); err != nil {
		logs.Errorf("execd: applying fill to position %s: %v", posID, err)
		return
	}
	if err := e.persistPosition(ctx, p, false, true); err != nil {
		logs.Errorf("execd: persist updated position %s: %v", posID, err)
		return
	}
	if p.IsFlat() {
		delete(e.positionIdx, key)
	}
}

func (e *Engine) applyAccountState(ctx context.Context, env event.Envelope, payload event.AccountState) {
	existing, found, err := e.accountFor(ctx, payload.AccountId)
	if err != nil {
		logs.Errorf("execd: loading account %s: %v", payload.AccountId, err)
		return
	}
	if !found {
		a := account.New(payload.AccountId, payload.Balances, payload.Margins, env.EventTimestamp)
		if err := e.persistAccount(ctx, a, true, true); err != nil {
			logs.Errorf("execd: persist new account %s: %v", payload.AccountId, err)
			return
		}
	} else {
		existing.ApplySnapshot(payload.Balances, payload.Margins, env.EventTimestamp)
		if err := e.persistAccount(ctx, existing, false, true); err != nil {
			logs.Errorf("execd: persist account snapshot %s: %v", payload.AccountId, err)
			return
		}
	}
	e.broadcast(env)
}

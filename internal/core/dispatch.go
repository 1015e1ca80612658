package core

import (
	"context"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"github.com/algotrade/execd/internal/event"
	"github.com/algotrade/execd/internal/ids"
	"github.com/algotrade/execd/internal/order"
	"github.com/algotrade/execd/internal/risk"
	"github.com/algotrade/execd/internal/venue"
)

// isLive reports whether s may still receive cancel or amend commands.
// It admits the same states as order.State's unexported isWorking plus
// Accepted.
func isLive(s order.State) bool {
	switch s {
	case order.StateAccepted, order.StateWorking, order.StateAmended, order.StatePartiallyFilled:
		return true
	default:
		return false
	}
}

func (e *Engine) handleCommand(ctx context.Context, env commandEnvelope) {
	var err error
	switch env.kind {
	case commandSubmitOrder:
		err = e.handleSubmitOrder(ctx, env.submit)
	case commandCancelOrder:
		err = e.handleCancelOrder(ctx, env.cancel)
	case commandAmendOrder:
		err = e.handleAmendOrder(ctx, env.amend)
	case commandFlattenPosition:
		err = e.handleFlattenPosition(ctx, env.flatten)
	}
	env.reply <- err
}

func (e *Engine) handleVenueEvent(ctx context.Context, env event.Envelope) {
	if e.seenEvent(env.EventID) {
		return
	}
	if e.metrics != nil {
		e.metrics.EventsTotal.WithLabelValues(env.Kind.String()).Inc()
	}
	// An acknowledging event retires the order's pending command_timeout
	// entries.
	retire := func(clOrdID ids.ClientOrderId) {
		for corrID, p := range e.pending {
			if p.clOrdID == clOrdID {
				delete(e.pending, corrID)
			}
		}
	}
	switch payload := env.Payload.(type) {
	case event.OrderAccepted:
		retire(payload.ClientOrderId)
		e.applyOrderAccepted(ctx, env, payload)
	case event.OrderRejected:
		retire(payload.ClientOrderId)
		e.applyOrderRejected(ctx, env, payload)
	case event.OrderWorking:
		e.applyOrderWorking(ctx, env, payload)
	case event.OrderAmended:
		retire(payload.ClientOrderId)
		e.applyOrderAmended(ctx, env, payload)
	case event.OrderCancelled:
		retire(payload.ClientOrderId)
		e.applyOrderCancelled(ctx, env, payload)
	case event.OrderExpired:
		retire(payload.ClientOrderId)
		e.applyOrderExpired(ctx, env, payload)
	case event.OrderFilled:
		e.applyOrderFilled(ctx, env, payload)
	case event.AccountState:
		e.applyAccountState(ctx, env, payload)
	default:
		logs.Warnf("execd: ignoring unexpected venue event kind %s", env.Kind)
	}
}

func (e *Engine) handleSubmitOrder(ctx context.Context, cmd submitOrder) error {
	pos, err := e.positionFor(ctx, cmd.StrategyId, cmd.Symbol)
	if err != nil {
		return err
	}
	refPrice, hasRef := e.lastPrice[cmd.Symbol]
	decision := e.risk.Evaluate(risk.Intent{
		ClientOrderId: cmd.ClientOrderId,
		StrategyId:    cmd.StrategyId,
		Symbol:        cmd.Symbol,
		Side:          cmd.Side,
		Type:          cmd.Type,
		Quantity:      cmd.Quantity,
		Price:         cmd.Price,
	}, risk.StateView{
		Position:       pos,
		ReferencePrice: refPrice,
		HasReference:   hasRef,
		Now:            e.now(),
	})
	if e.metrics != nil {
		outcome := "allowed"
		if decision.Action == risk.ActionDeny {
			outcome = "denied"
		}
		e.metrics.CommandsTotal.WithLabelValues("submit", outcome).Inc()
	}
	if decision.Action == risk.ActionDeny {
		return &RiskDeniedError{Reason: decision.Reason}
	}

	o, err := order.New(cmd.ClientOrderId, cmd.StrategyId, cmd.Symbol, cmd.Side, cmd.Type, cmd.Quantity, cmd.Price, cmd.TimeInForce, uuid.NewString(), e.now())
	if err != nil {
		return err
	}
	if err := e.db.AddOrder(ctx, o); err != nil {
		return err
	}
	e.publish(cmd.StrategyId, event.Envelope{
		EventID:        event.NewID(),
		EventTimestamp: o.TsInit,
		Seq:            e.nextSeq(),
		Kind:           event.KindOrderInitialized,
		Payload: event.OrderInitialized{
			ClientOrderId: cmd.ClientOrderId, StrategyId: cmd.StrategyId, Symbol: cmd.Symbol,
			Side: cmd.Side, Type: cmd.Type, TimeInForce: cmd.TimeInForce, Quantity: cmd.Quantity, Price: cmd.Price,
		},
	})

	if err := o.ApplySubmitted(e.now()); err != nil {
		return err
	}
	if err := e.db.UpdateOrder(ctx, o); err != nil {
		return err
	}
	e.publish(cmd.StrategyId, event.Envelope{
		EventID:        event.NewID(),
		EventTimestamp: o.TsLast,
		Seq:            e.nextSeq(),
		Kind:           event.KindOrderSubmitted,
		Payload:        event.OrderSubmitted{ClientOrderId: cmd.ClientOrderId},
	})

	corrID := e.correlations.Next()
	sendErr := e.client.Send(ctx, venue.Command{
		Kind: venue.CommandSubmit, CorrelationId: corrID,
		ClientOrderId: cmd.ClientOrderId, StrategyId: cmd.StrategyId, Symbol: cmd.Symbol,
		Side: cmd.Side, Type: cmd.Type, TimeInForce: cmd.TimeInForce, Quantity: cmd.Quantity, Price: cmd.Price,
	})
	e.trackPending(corrID, cmd.ClientOrderId, cmd.StrategyId)
	if sendErr != nil {
		logs.Errorf("execd: forwarding SubmitOrder %s: %v", cmd.ClientOrderId, sendErr)
	}
	return nil
}

func (e *Engine) handleCancelOrder(ctx context.Context, cmd cancelOrder) error {
	o, found, err := e.orderFor(ctx, cmd.ClientOrderId)
	if err != nil {
		return err
	}
	if !found {
		return order.ErrInvalidStateTransition
	}
	if o.State == order.StateSubmitted {
		e.queuedCancel[cmd.ClientOrderId] = struct{}{}
		return nil
	}
	if !isLive(o.State) {
		return order.ErrInvalidStateTransition
	}
	corrID := e.correlations.Next()
	err = e.client.Send(ctx, venue.Command{
		Kind: venue.CommandCancel, CorrelationId: corrID,
		ClientOrderId: cmd.ClientOrderId, StrategyId: cmd.StrategyId,
	})
	e.trackPending(corrID, cmd.ClientOrderId, cmd.StrategyId)
	if e.metrics != nil {
		outcome := "sent"
		if err != nil {
			outcome = "send_error"
		}
		e.metrics.CommandsTotal.WithLabelValues("cancel", outcome).Inc()
	}
	return err
}

func (e *Engine) handleAmendOrder(ctx context.Context, cmd amendOrder) error {
	o, found, err := e.orderFor(ctx, cmd.ClientOrderId)
	if err != nil {
		return err
	}
	if !found {
		return order.ErrInvalidStateTransition
	}
	if o.Type == ids.OrderTypeMarket {
		return order.ErrAmendNotSupported
	}
	if !isLive(o.State) {
		return order.ErrInvalidStateTransition
	}
	corrID := e.correlations.Next()
	err = e.client.Send(ctx, venue.Command{
		Kind: venue.CommandAmend, CorrelationId: corrID,
		ClientOrderId: cmd.ClientOrderId, StrategyId: cmd.StrategyId,
		Quantity: cmd.Quantity, Price: cmd.Price,
	})
	e.trackPending(corrID, cmd.ClientOrderId, cmd.StrategyId)
	if e.metrics != nil {
		outcome := "sent"
		if err != nil {
			outcome = "send_error"
		}
		e.metrics.CommandsTotal.WithLabelValues("amend", outcome).Inc()
	}
	return err
}

func (e *Engine) handleFlattenPosition(ctx context.Context, cmd flattenPosition) error {
	p, found, err := e.db.LoadPosition(ctx, cmd.PositionId)
	if err != nil {
		return err
	}
	if !found || p.IsFlat() {
		return nil
	}
	side := ids.SideSell
	if p.Side == ids.PositionShort {
		side = ids.SideBuy
	}
	clOrdID, err := ids.NewClientOrderId("flatten-" + uuid.NewString())
	if err != nil {
		return err
	}
	return e.handleSubmitOrder(ctx, submitOrder{
		ClientOrderId: clOrdID,
		StrategyId:    cmd.StrategyId,
		Symbol:        p.Symbol,
		Side:          side,
		Type:          ids.OrderTypeMarket,
		TimeInForce:   ids.TimeInForceIOC,
		Quantity:      p.Quantity,
	})
}

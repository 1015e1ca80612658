// Package venue defines the execution-client contract the engine uses to
// submit commands to, and receive acknowledging events from, a trading
// venue, plus a stub implementation for tests.
package venue

import (
	"context"
	"errors"

	"github.com/algotrade/execd/internal/event"
	"github.com/algotrade/execd/internal/ids"
)

// ErrDisconnected is returned by Send when the client has no live
// connection to the venue.
var ErrDisconnected = errors.New("venue: client disconnected")

// CommandKind tags the action a Command asks the venue to perform.
type CommandKind uint8

const (
	CommandUnknown CommandKind = iota
	CommandSubmit
	CommandCancel
	CommandAmend
	CommandFlatten
)

func (k CommandKind) String() string {
	switch k {
	case CommandSubmit:
		return "Submit"
	case CommandCancel:
		return "Cancel"
	case CommandAmend:
		return "Amend"
	case CommandFlatten:
		return "Flatten"
	default:
		return "Unknown"
	}
}

// Command is what the engine hands the execution client for each command
// ingressed from a strategy, carrying a correlation id that names the
// command to the client. Events carry no correlation id: the engine
// retires a pending command_timeout when an acknowledging event for the
// same ClientOrderId arrives.
type Command struct {
	Kind          CommandKind
	CorrelationId uint64
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
	Symbol        ids.Symbol
	Side          ids.Side
	Type          ids.OrderType
	TimeInForce   ids.TimeInForce
	Quantity      ids.Quantity
	Price         ids.Price
}

// Client is the contract the engine consumes: non-blocking command
// submission with a correlation id, a subscription yielding venue events
// in venue-declared order, and explicit connection lifecycle.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Dispose(ctx context.Context) error

	// Send submits command without blocking on a venue acknowledgement;
	// the ack itself arrives later as an event on Events.
	Send(ctx context.Context, cmd Command) error

	// Events yields the ordered stream of venue events the engine ingests.
	Events() <-chan event.Envelope
}

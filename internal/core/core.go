/*
Package core implements the Execution Engine: the single writer that
applies venue events to Orders and Positions, routes strategy commands to
an execution client, maintains account state, and publishes events to
strategy subscribers.

# Module
  - command ingress: SubmitOrder, CancelOrder, AmendOrder, FlattenPosition
  - event ingress: the venue-declared event stream plus the synthetic
    OrderCommandTimeout
  - execdb.Database: the sole mutation target for Orders/Positions/Accounts
  - risk.Engine: pre-trade validation gating SubmitOrder

# Source
 1. strategy commands, delivered on a thread-safe producer/consumer queue
 2. venue events, delivered on a second ingress queue in venue-declared order

# Produce
  - applied events, published synchronously to strategy subscribers
  - venue.Command values forwarded to the registered execution client

# Sharded
  - one Engine per trader; orders/positions/accounts scoped by strategy_id
*/
package core

import (
	"errors"

	"github.com/algotrade/execd/internal/event"
)

// ErrOrphanEvent names the error kind for a venue event whose cl_ord_id
// the engine has no record of. The engine does not return it: such events
// are logged as warnings and dropped.
var ErrOrphanEvent = errors.New("core: orphan event")

// Subscriber receives applied events synchronously on the engine's
// goroutine. Implementations must not block; long-running work belongs on
// a strategy-owned worker.
type Subscriber interface {
	OnEvent(event.Envelope)
}

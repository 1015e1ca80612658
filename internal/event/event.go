// Package event defines the wire-neutral event envelope the engine
// consumes from the execution client and publishes to strategies.
package event

import (
	"github.com/google/uuid"

	"github.com/algotrade/execd/internal/ids"
)

// Kind tags the payload carried by an Envelope.
type Kind uint16

const (
	KindUnknown Kind = iota
	KindOrderInitialized
	KindOrderSubmitted
	KindOrderAccepted
	KindOrderRejected
	KindOrderWorking
	KindOrderAmended
	KindOrderCancelled
	KindOrderExpired
	KindOrderFilled
	KindAccountState
	// KindOrderCommandTimeout is synthetic: the engine emits it itself
	// when a command's venue acknowledgement does not arrive within its
	// command_timeout, it is never received from a venue.
	KindOrderCommandTimeout
)

func (k Kind) String() string {
	switch k {
	case KindOrderInitialized:
		return "OrderInitialized"
	case KindOrderSubmitted:
		return "OrderSubmitted"
	case KindOrderAccepted:
		return "OrderAccepted"
	case KindOrderRejected:
		return "OrderRejected"
	case KindOrderWorking:
		return "OrderWorking"
	case KindOrderAmended:
		return "OrderAmended"
	case KindOrderCancelled:
		return "OrderCancelled"
	case KindOrderExpired:
		return "OrderExpired"
	case KindOrderFilled:
		return "OrderFilled"
	case KindAccountState:
		return "AccountState"
	case KindOrderCommandTimeout:
		return "OrderCommandTimeout"
	default:
		return "Unknown"
	}
}

// ID uniquely names an event. Duplicate delivery of the same ID is a
// no-op (see the invariant in spec.md §8.5).
type ID string

// NewID generates a fresh event id.
func NewID() ID { return ID(uuid.NewString()) }

// Envelope is the wire-neutral shape of every event the engine consumes
// or publishes: {event_id, event_timestamp, kind, payload}.
type Envelope struct {
	EventID        ID
	EventTimestamp ids.Timestamp
	Seq            uint64
	Kind           Kind
	Payload        any
}

// OrderInitialized is emitted by a strategy (via the engine's command
// ingress, see internal/core) to create an Order.
type OrderInitialized struct {
	ClientOrderId ids.ClientOrderId
	StrategyId    ids.StrategyId
	Symbol        ids.Symbol
	Side          ids.Side
	Type          ids.OrderType
	TimeInForce   ids.TimeInForce
	Quantity      ids.Quantity
	Price         ids.Price // zero for market orders
}

// OrderSubmitted acknowledges the command was forwarded to the venue.
type OrderSubmitted struct {
	ClientOrderId ids.ClientOrderId
}

// OrderAccepted carries the venue-issued OrderId.
type OrderAccepted struct {
	ClientOrderId ids.ClientOrderId
	OrderId       ids.OrderId
}

// OrderRejected carries the venue's rejection reason.
type OrderRejected struct {
	ClientOrderId ids.ClientOrderId
	Reason        string
}

// OrderWorking marks the order as live at the venue.
type OrderWorking struct {
	ClientOrderId ids.ClientOrderId
}

// OrderAmended carries a replacement quantity and/or working price.
type OrderAmended struct {
	ClientOrderId ids.ClientOrderId
	Quantity      ids.Quantity
	Price         ids.Price
}

// OrderCancelled marks the order as cancelled by the venue.
type OrderCancelled struct {
	ClientOrderId ids.ClientOrderId
}

// OrderExpired marks the order as expired at the venue.
type OrderExpired struct {
	ClientOrderId ids.ClientOrderId
}

// OrderFilled reports a partial or complete execution.
type OrderFilled struct {
	ClientOrderId ids.ClientOrderId
	ExecutionId   string
	FillQty       ids.Quantity
	FillPrice     ids.Price
	Fee           ids.Fee
}

// AccountState replaces the account snapshot atomically.
type AccountState struct {
	AccountId ids.AccountId
	Balances  map[string]ids.Quantity
	Margins   map[string]ids.Quantity
}

// OrderCommandTimeout is the synthetic event the engine publishes to the
// originating strategy when a command_timeout elapses without a venue
// acknowledgement.
type OrderCommandTimeout struct {
	ClientOrderId ids.ClientOrderId
}

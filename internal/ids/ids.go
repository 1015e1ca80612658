// Package ids defines the value and identifier model: dense, comparable,
// hashable identifiers plus scaled-integer price/quantity/notional/fee
// types and a UTC-only timestamp.
package ids

import (
	"errors"

	"github.com/cespare/xxhash/v2"
)

var (
	// ErrEmptyID is returned when an identifier is constructed from an
	// empty string.
	ErrEmptyID = errors.New("ids: identifier is empty")
	// ErrControlCharacter is returned when an identifier contains a
	// control character.
	ErrControlCharacter = errors.New("ids: identifier contains control character")
)

func validate(s string) error {
	if s == "" {
		return ErrEmptyID
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return ErrControlCharacter
		}
	}
	return nil
}

// ClientOrderId is issued by the strategy and never reused.
type ClientOrderId string

// NewClientOrderId validates and returns a ClientOrderId.
func NewClientOrderId(s string) (ClientOrderId, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return ClientOrderId(s), nil
}

// Hash returns a stable hash of the identifier, safe across process
// restarts (unlike Go's randomized built-in map hash).
func (id ClientOrderId) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// OrderId is issued by the venue once an order is acknowledged.
type OrderId string

func NewOrderId(s string) (OrderId, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return OrderId(s), nil
}

func (id OrderId) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// PositionId is issued by the engine when a position opens.
type PositionId string

func NewPositionId(s string) (PositionId, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return PositionId(s), nil
}

func (id PositionId) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// StrategyId names a strategy instance.
type StrategyId string

func NewStrategyId(s string) (StrategyId, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return StrategyId(s), nil
}

func (id StrategyId) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// TraderId names the owning trader/account holder.
type TraderId string

func NewTraderId(s string) (TraderId, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return TraderId(s), nil
}

func (id TraderId) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// AccountId names a brokerage/venue account.
type AccountId string

func NewAccountId(s string) (AccountId, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return AccountId(s), nil
}

func (id AccountId) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// Symbol names a tradable instrument.
type Symbol string

func NewSymbol(s string) (Symbol, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return Symbol(s), nil
}

func (id Symbol) Hash() uint64 { return xxhash.Sum64String(string(id)) }

// Venue names a trading venue or broker.
type Venue string

func NewVenue(s string) (Venue, error) {
	if err := validate(s); err != nil {
		return "", err
	}
	return Venue(s), nil
}

func (id Venue) Hash() uint64 { return xxhash.Sum64String(string(id)) }

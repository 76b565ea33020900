package core

import (
	"encoding/json"
	"fmt"
)

// Order stores information about order
type Order struct {
	id       string
	side     Side
	amount   int64
	price    int64
	sequence uint64
	strategy Strategy
}

// NewOrder creates an Order. The id is opaque and supplied by the caller;
// sequence is the arrival index and never changes afterwards.
func NewOrder(id string, side Side, amount, price int64, sequence uint64, strategy Strategy) *Order {
	return &Order{
		id:       id,
		side:     side,
		amount:   amount,
		price:    price,
		sequence: sequence,
		strategy: strategy,
	}
}

// NewLimitOrder creates a Limit order
func NewLimitOrder(id string, side Side, amount, price int64, sequence uint64) *Order {
	return NewOrder(id, side, amount, price, sequence, Limit)
}

// NewMarketOrder creates a Market order
func NewMarketOrder(id string, side Side, amount, price int64, sequence uint64) *Order {
	return NewOrder(id, side, amount, price, sequence, Market)
}

// Validate checks the invariants an order must hold before it is matched
func (o *Order) Validate() error {
	if !o.side.Valid() {
		return ErrInvalidSide
	}
	if !o.strategy.Valid() {
		return ErrInvalidStrategy
	}
	if o.amount <= 0 {
		return ErrInvalidAmount
	}
	if o.price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// ID returns the order identity
func (o *Order) ID() string {
	return o.id
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Amount returns the remaining amount
func (o *Order) Amount() int64 {
	return o.amount
}

// Price returns price in ticks
func (o *Order) Price() int64 {
	return o.price
}

// Sequence returns the arrival index
func (o *Order) Sequence() uint64 {
	return o.sequence
}

// Strategy returns the matching strategy
func (o *Order) Strategy() Strategy {
	return o.strategy
}

// IsMarketOrder returns true if Order is MARKET
func (o *Order) IsMarketOrder() bool {
	return o.strategy == Market
}

// IsLimitOrder returns true if Order is LIMIT
func (o *Order) IsLimitOrder() bool {
	return o.strategy == Limit
}

func (o *Order) decrease(amount int64) {
	o.amount -= amount
}

type orderJSON struct {
	ID       string `json:"id"`
	Side     string `json:"side"`
	Amount   int64  `json:"amount"`
	Price    int64  `json:"price"`
	Sequence uint64 `json:"sequence"`
	Strategy string `json:"strategy"`
}

// MarshalJSON implements custom JSON marshaling for Order
func (o *Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:       o.id,
		Side:     o.side.String(),
		Amount:   o.amount,
		Price:    o.price,
		Sequence: o.sequence,
		Strategy: o.strategy.String(),
	})
}

// String implements Stringer interface
func (o *Order) String() string {
	return fmt.Sprintf("%s %s %d@%d #%d (%s)", o.strategy, o.side, o.amount, o.price, o.sequence, o.id)
}

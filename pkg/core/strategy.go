package core

import "fmt"

// Strategy decides whether an incoming order may trade against a resting one.
// It is attached to the incoming order.
type Strategy int

// Matching strategies
const (
	Limit Strategy = iota
	Market
)

// String returns strategy as string
func (s Strategy) String() string {
	switch s {
	case Limit:
		return "LIMIT"
	case Market:
		return "MARKET"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is a known strategy
func (s Strategy) Valid() bool {
	return s == Limit || s == Market
}

// Code returns the wire code of the strategy
func (s Strategy) Code() int {
	return int(s)
}

// StrategyFromCode maps a wire code to a Strategy
func StrategyFromCode(code int) (Strategy, error) {
	s := Strategy(code)
	if !s.Valid() {
		return 0, fmt.Errorf("%w: code %d", ErrInvalidStrategy, code)
	}
	return s, nil
}

// Eligible reports whether candidate, a resting order on the opposite side,
// may trade against incoming.
func (s Strategy) Eligible(incoming, candidate *Order) bool {
	switch s {
	case Limit:
		return (incoming.side == Bid && incoming.price >= candidate.price) ||
			(incoming.side == Ask && incoming.price <= candidate.price)
	case Market:
		// price of a market order carries no meaning here
		return true
	default:
		panic(fmt.Sprintf("unrecognized strategy %d", int(s)))
	}
}

package core

import (
	"fmt"
	"time"
)

// MatchEngine runs the matching loop for one incoming order at a time.
// It keeps no book state of its own; the book is borrowed per Execute call.
type MatchEngine struct {
	now func() time.Time
}

// EngineOption configures a MatchEngine
type EngineOption func(*MatchEngine)

// WithClock sets the clock used to timestamp trades
func WithClock(now func() time.Time) EngineOption {
	return func(e *MatchEngine) {
		e.now = now
	}
}

// NewMatchEngine creates a MatchEngine
func NewMatchEngine(opts ...EngineOption) *MatchEngine {
	e := &MatchEngine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute matches incoming against the opposite side of book and returns the
// trades in the order they were filled. Any unfilled remainder rests on the
// incoming order's side. incoming must satisfy Validate; violating that is a
// programming error and panics.
func (e *MatchEngine) Execute(incoming *Order, book *OrderBook) []Trade {
	if book == nil {
		panic(fmt.Errorf("%w: nil order book", ErrPrecondition))
	}
	if incoming == nil {
		panic(fmt.Errorf("%w: nil order", ErrPrecondition))
	}
	if err := incoming.Validate(); err != nil {
		panic(fmt.Errorf("%w: order %s: %v", ErrPrecondition, incoming.id, err))
	}

	oppositeSide := incoming.side.Opposite()
	sameSide := incoming.side
	trades := make([]Trade, 0)

	for incoming.amount > 0 {
		candidate, ok := book.PeekBest(oppositeSide)
		if !ok || !incoming.strategy.Eligible(incoming, candidate) {
			break
		}

		fillAmount := min(incoming.amount, candidate.amount)
		fillPrice := candidate.price

		incoming.decrease(fillAmount)
		if fillAmount == candidate.amount {
			book.PopBest(oppositeSide)
			candidate.decrease(fillAmount)
		} else {
			book.DecrementBest(oppositeSide, fillAmount)
		}

		trades = append(trades, Trade{
			ExecutingOrderID: incoming.id,
			MatchedOrderID:   candidate.id,
			Timestamp:        e.now(),
			Amount:           fillAmount,
			Price:            fillPrice,
		})
	}

	// TODO: apply time-in-force (IOC/FOK) once orders carry one; every remainder rests today
	if incoming.amount > 0 {
		book.Insert(sameSide, incoming)
	}

	return trades
}

// min returns the minimum of two amounts
func min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

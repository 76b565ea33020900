package core

import (
	"fmt"
	"strings"
)

// PriceLevel aggregates resting amount at one price
type PriceLevel struct {
	Price  int64
	Amount int64
	Orders int
}

// OrderBook holds the resting orders of both sides, each in its own
// price-time priority queue. It is not safe for concurrent use; callers that
// share a book must serialize access (see pkg/session).
type OrderBook struct {
	bids *orderQueue
	asks *orderQueue
}

// NewOrderBook creates an empty OrderBook
func NewOrderBook() *OrderBook {
	return &OrderBook{
		bids: newBidQueue(),
		asks: newAskQueue(),
	}
}

func (ob *OrderBook) queue(side Side) *orderQueue {
	switch side {
	case Bid:
		return ob.bids
	case Ask:
		return ob.asks
	default:
		panic(fmt.Sprintf("unrecognized side %d", int(side)))
	}
}

// PeekBest returns the head of the side queue without removing it
func (ob *OrderBook) PeekBest(side Side) (*Order, bool) {
	return ob.queue(side).peek()
}

// PopBest removes and returns the head of the side queue
func (ob *OrderBook) PopBest(side Side) (*Order, bool) {
	return ob.queue(side).pop()
}

// DecrementBest reduces the remaining amount of the head order in place.
// The amount must be positive and strictly less than the head's amount;
// a fill that consumes the head must use PopBest.
func (ob *OrderBook) DecrementBest(side Side, amount int64) {
	head, ok := ob.queue(side).peek()
	if !ok {
		panic(fmt.Sprintf("decrement on empty %s queue", side))
	}
	if amount <= 0 || amount >= head.amount {
		panic(fmt.Sprintf("decrement of %d invalid for head amount %d", amount, head.amount))
	}
	head.decrease(amount)
}

// Insert adds a resting order to the side queue
func (ob *OrderBook) Insert(side Side, order *Order) {
	if order.side != side {
		panic(fmt.Sprintf("cannot insert %s order into %s queue", order.side, side))
	}
	if order.amount <= 0 {
		panic(fmt.Sprintf("cannot rest order %s with amount %d", order.id, order.amount))
	}
	ob.queue(side).push(order)
}

// Len returns the number of resting orders on a side
func (ob *OrderBook) Len(side Side) int {
	return ob.queue(side).len()
}

// Orders returns the resting orders of a side in priority order
func (ob *OrderBook) Orders(side Side) []*Order {
	q := ob.queue(side)
	orders := make([]*Order, 0, q.len())
	q.each(func(order *Order) bool {
		orders = append(orders, order)
		return true
	})
	return orders
}

// Depth aggregates a side by price, best price first. levels <= 0 returns all levels.
func (ob *OrderBook) Depth(side Side, levels int) []PriceLevel {
	depth := make([]PriceLevel, 0)
	ob.queue(side).each(func(order *Order) bool {
		n := len(depth)
		if n > 0 && depth[n-1].Price == order.price {
			depth[n-1].Amount += order.amount
			depth[n-1].Orders++
			return true
		}
		if levels > 0 && n == levels {
			return false
		}
		depth = append(depth, PriceLevel{Price: order.price, Amount: order.amount, Orders: 1})
		return true
	})
	return depth
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	builder := strings.Builder{}

	builder.WriteString("Ask:")
	for _, level := range ob.Depth(Ask, 0) {
		builder.WriteString(fmt.Sprintf("\n%d -> amount: %d, orders: %d", level.Price, level.Amount, level.Orders))
	}
	builder.WriteString("\n")

	builder.WriteString("Bid:")
	for _, level := range ob.Depth(Bid, 0) {
		builder.WriteString(fmt.Sprintf("\n%d -> amount: %d, orders: %d", level.Price, level.Amount, level.Orders))
	}
	builder.WriteString("\n")

	return builder.String()
}

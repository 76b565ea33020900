package core

import (
	"github.com/huandu/skiplist"
)

// queueKey orders resting orders inside one side queue. stamp is assigned by
// the queue on insert and only separates orders with equal price and sequence.
type queueKey struct {
	price    int64
	sequence uint64
	stamp    uint64
}

// orderQueue is a side-homogeneous priority queue of resting orders.
type orderQueue struct {
	side   Side
	list   *skiplist.SkipList
	stamps uint64
}

func compareSequence(lhs, rhs queueKey) int {
	switch {
	case lhs.sequence < rhs.sequence:
		return -1
	case lhs.sequence > rhs.sequence:
		return 1
	case lhs.stamp < rhs.stamp:
		return -1
	case lhs.stamp > rhs.stamp:
		return 1
	}
	return 0
}

// newBidQueue creates a queue keyed by (-price, sequence): highest price first,
// earliest arrival first within a price.
func newBidQueue() *orderQueue {
	return &orderQueue{
		side: Bid,
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs interface{}) int {
			k1, _ := lhs.(queueKey)
			k2, _ := rhs.(queueKey)

			if k1.price > k2.price {
				return -1
			} else if k1.price < k2.price {
				return 1
			}

			return compareSequence(k1, k2)
		})),
	}
}

// newAskQueue creates a queue keyed by (price, sequence): lowest price first,
// earliest arrival first within a price.
func newAskQueue() *orderQueue {
	return &orderQueue{
		side: Ask,
		list: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs interface{}) int {
			k1, _ := lhs.(queueKey)
			k2, _ := rhs.(queueKey)

			if k1.price < k2.price {
				return -1
			} else if k1.price > k2.price {
				return 1
			}

			return compareSequence(k1, k2)
		})),
	}
}

func (q *orderQueue) len() int {
	return q.list.Len()
}

func (q *orderQueue) peek() (*Order, bool) {
	el := q.list.Front()
	if el == nil {
		return nil, false
	}
	order, _ := el.Value.(*Order)
	return order, true
}

func (q *orderQueue) pop() (*Order, bool) {
	el := q.list.Front()
	if el == nil {
		return nil, false
	}
	q.list.Remove(el.Key())
	order, _ := el.Value.(*Order)
	return order, true
}

func (q *orderQueue) push(order *Order) {
	q.stamps++
	q.list.Set(queueKey{
		price:    order.price,
		sequence: order.sequence,
		stamp:    q.stamps,
	}, order)
}

// each walks the queue in priority order until fn returns false
func (q *orderQueue) each(fn func(order *Order) bool) {
	for el := q.list.Front(); el != nil; el = el.Next() {
		order, _ := el.Value.(*Order)
		if !fn(order) {
			return
		}
	}
}

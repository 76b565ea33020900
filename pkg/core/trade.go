package core

import (
	"encoding/json"
	"math"
	"math/bits"
	"time"
)

// Trade records one fill between the incoming (taker) order and a resting
// (maker) order. Price is always the maker's price.
type Trade struct {
	ExecutingOrderID string
	MatchedOrderID   string
	Timestamp        time.Time
	Amount           int64
	Price            int64
}

// Notional returns Amount * Price in tick units. ok is false when the
// product does not fit in an int64.
func (t Trade) Notional() (notional int64, ok bool) {
	if t.Amount < 0 || t.Price < 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(uint64(t.Amount), uint64(t.Price))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

// MarshalJSON implements Marshaler interface
func (t Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ExecutingOrderID string `json:"executingOrderID"`
		MatchedOrderID   string `json:"matchedOrderID"`
		Timestamp        string `json:"timestamp"`
		Amount           int64  `json:"amount"`
		Price            int64  `json:"price"`
	}{
		ExecutingOrderID: t.ExecutingOrderID,
		MatchedOrderID:   t.MatchedOrderID,
		Timestamp:        t.Timestamp.UTC().Format(time.RFC3339Nano),
		Amount:           t.Amount,
		Price:            t.Price,
	})
}

// TotalAmount sums the amount of all trades
func TotalAmount(trades []Trade) int64 {
	var total int64
	for _, t := range trades {
		total += t.Amount
	}
	return total
}

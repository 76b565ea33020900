package messaging

import "context"

// ExecutionSender publishes the outcome of one matched order.
// This keeps the session independent of the transport (kafka-go, sarama).
type ExecutionSender interface {
	SendExecution(ctx context.Context, msg *ExecutionMessage) error
	Close() error
}

// ExecutionMessage is the published record of one Execute call
type ExecutionMessage struct {
	Session   string         `json:"session"`
	OrderID   string         `json:"orderID"`
	Side      string         `json:"side"`
	Strategy  string         `json:"strategy"`
	Sequence  uint64         `json:"sequence"`
	Price     string         `json:"price"`
	Requested int64          `json:"requested"`
	Filled    int64          `json:"filled"`
	Remaining int64          `json:"remaining"`
	Rested    bool           `json:"rested"`
	Trades    []TradeMessage `json:"trades"`
}

// TradeMessage represents a single fill. Prices are decimal strings scaled by
// the session tick size.
type TradeMessage struct {
	ExecutingOrderID string `json:"executingOrderID"`
	MatchedOrderID   string `json:"matchedOrderID"`
	Timestamp        int64  `json:"timestamp"` // Unix nano
	Amount           int64  `json:"amount"`
	Price            string `json:"price"`
	Notional         string `json:"notional"` // empty when out of range
}

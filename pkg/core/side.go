package core

import "fmt"

// Side represents bid or ask side of the order
type Side int

// Order sides
const (
	Bid Side = iota
	Ask
)

// Wire codes used by the text order format
const (
	AskCode = 4
	BidCode = 8
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Bid:
		return "BID"
	case Ask:
		return "ASK"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is Bid or Ask
func (s Side) Valid() bool {
	return s == Bid || s == Ask
}

// Opposite returns the side an order of this side matches against
func (s Side) Opposite() Side {
	if s == Bid {
		return Ask
	}
	return Bid
}

// Code returns the wire code of the side
func (s Side) Code() int {
	if s == Bid {
		return BidCode
	}
	return AskCode
}

// SideFromCode maps a wire code to a Side
func SideFromCode(code int) (Side, error) {
	switch code {
	case AskCode:
		return Ask, nil
	case BidCode:
		return Bid, nil
	default:
		return 0, fmt.Errorf("%w: code %d", ErrInvalidSide, code)
	}
}

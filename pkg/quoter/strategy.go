package quoter

import (
	"errors"

	"github.com/erain9/pricetime/pkg/core"
)

// ErrInvalidLadder is returned when a ladder configuration cannot produce quotes
var ErrInvalidLadder = errors.New("invalid ladder configuration")

// Config describes a symmetric quote ladder, all values in ticks
type Config struct {
	Levels     int
	HalfSpread int64
	Step       int64
	Amount     int64
}

// Validate checks that the ladder produces positive amounts and
// non-negative prices around mid
func (c Config) Validate(mid int64) error {
	switch {
	case c.Levels <= 0:
		return errors.Join(ErrInvalidLadder, errors.New("levels must be positive"))
	case c.Amount <= 0:
		return errors.Join(ErrInvalidLadder, errors.New("amount must be positive"))
	case c.HalfSpread < 0 || c.Step < 0:
		return errors.Join(ErrInvalidLadder, errors.New("spread and step must not be negative"))
	case mid-c.HalfSpread-int64(c.Levels-1)*c.Step < 0:
		return errors.Join(ErrInvalidLadder, errors.New("lowest bid would be negative"))
	}
	return nil
}

// Quote is one order of the ladder before it is stamped with an id and sequence
type Quote struct {
	Side   core.Side
	Amount int64
	Price  int64
}

// Strategy computes the quotes to place around a mid price
type Strategy interface {
	Quotes(mid int64) ([]Quote, error)
}

// LayeredSymmetric quotes the same amount on both sides at Levels prices,
// the first HalfSpread away from mid and then every Step ticks.
type LayeredSymmetric struct {
	cfg Config
}

// NewLayeredSymmetric creates a LayeredSymmetric strategy
func NewLayeredSymmetric(cfg Config) *LayeredSymmetric {
	return &LayeredSymmetric{cfg: cfg}
}

// Quotes implements Strategy. Bids and asks alternate from the innermost
// level outwards.
func (s *LayeredSymmetric) Quotes(mid int64) ([]Quote, error) {
	if err := s.cfg.Validate(mid); err != nil {
		return nil, err
	}

	quotes := make([]Quote, 0, s.cfg.Levels*2)
	for i := 0; i < s.cfg.Levels; i++ {
		offset := s.cfg.HalfSpread + int64(i)*s.cfg.Step
		quotes = append(quotes,
			Quote{Side: core.Bid, Amount: s.cfg.Amount, Price: mid - offset},
			Quote{Side: core.Ask, Amount: s.cfg.Amount, Price: mid + offset},
		)
	}
	return quotes, nil
}

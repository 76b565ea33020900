package quoter

import (
	"context"
	"fmt"

	"github.com/erain9/pricetime/pkg/core"
	"github.com/erain9/pricetime/pkg/session"
	"github.com/rs/zerolog"
)

// Submitter accepts orders; *session.Session satisfies it
type Submitter interface {
	Submit(ctx context.Context, order *core.Order) (*session.Result, error)
}

// Quoter places a strategy's ladder into a book
type Quoter struct {
	submitter Submitter
	strategy  Strategy
	nextSeq   func() uint64
	logger    zerolog.Logger
}

// New creates a Quoter. nextSeq supplies the sequence of every placed order.
func New(submitter Submitter, strategy Strategy, nextSeq func() uint64, logger zerolog.Logger) *Quoter {
	return &Quoter{
		submitter: submitter,
		strategy:  strategy,
		nextSeq:   nextSeq,
		logger:    logger.With().Str("component", "quoter").Logger(),
	}
}

// Place submits one ladder around mid and returns the number of orders that
// rested. Quotes that cross existing liquidity trade like any other order.
func (q *Quoter) Place(ctx context.Context, mid int64) (int, error) {
	quotes, err := q.strategy.Quotes(mid)
	if err != nil {
		return 0, err
	}

	rested := 0
	for _, quote := range quotes {
		order := core.NewLimitOrder(session.NewOrderID(), quote.Side, quote.Amount, quote.Price, q.nextSeq())
		res, err := q.submitter.Submit(ctx, order)
		if err != nil {
			return rested, fmt.Errorf("failed to place %s quote at %d: %w", quote.Side, quote.Price, err)
		}
		if res.Rested {
			rested++
		}
		q.logger.Debug().
			Str("side", quote.Side.String()).
			Int64("price", quote.Price).
			Int64("amount", quote.Amount).
			Int("trades", len(res.Trades)).
			Msg("Placed quote")
	}

	q.logger.Info().Int64("mid", mid).Int("quotes", len(quotes)).Int("rested", rested).Msg("Ladder placed")
	return rested, nil
}

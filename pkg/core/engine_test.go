package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *MatchEngine {
	return NewMatchEngine(WithClock(func() time.Time { return fixedTime }))
}

func assertEmpty(t *testing.T, book *OrderBook) {
	t.Helper()
	assert.Equal(t, 0, book.Len(Bid), "bids should be empty")
	assert.Equal(t, 0, book.Len(Ask), "asks should be empty")
}

func TestExecute_CrossOrderBid(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Ask, NewLimitOrder("ask-1", Ask, 10, 10, 1))

	trades := newTestEngine().Execute(NewLimitOrder("bid-1", Bid, 10, 10, 1), book)

	require.Len(t, trades, 1)
	assert.Equal(t, Trade{
		ExecutingOrderID: "bid-1",
		MatchedOrderID:   "ask-1",
		Timestamp:        fixedTime,
		Amount:           10,
		Price:            10,
	}, trades[0])
	assertEmpty(t, book)
}

func TestExecute_CrossOrderAsk(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Bid, NewLimitOrder("bid-1", Bid, 10, 10, 1))

	trades := newTestEngine().Execute(NewLimitOrder("ask-5", Ask, 10, 10, 5), book)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10), trades[0].Amount)
	assert.Equal(t, int64(10), trades[0].Price)
	assertEmpty(t, book)
}

func TestExecute_CheaperAskTakesMakerPrice(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Bid, NewLimitOrder("bid-1", Bid, 10, 10, 1))

	trades := newTestEngine().Execute(NewLimitOrder("ask-3", Ask, 10, 5, 3), book)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10), trades[0].Amount)
	assert.Equal(t, int64(10), trades[0].Price, "fill happens at the resting order's price")
	assertEmpty(t, book)
}

func TestExecute_MarketSweepsLevels(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Ask, NewLimitOrder("ask-10", Ask, 10, 10, 1))
	book.Insert(Ask, NewLimitOrder("ask-20", Ask, 10, 20, 1))

	trades := newTestEngine().Execute(NewMarketOrder("mkt", Bid, 20, 0, 3), book)

	require.Len(t, trades, 2)
	assert.Equal(t, "ask-10", trades[0].MatchedOrderID)
	assert.Equal(t, int64(10), trades[0].Amount)
	assert.Equal(t, int64(10), trades[0].Price)
	assert.Equal(t, "ask-20", trades[1].MatchedOrderID)
	assert.Equal(t, int64(10), trades[1].Amount)
	assert.Equal(t, int64(20), trades[1].Price)
	assertEmpty(t, book)
}

func TestExecute_EmptyBookRests(t *testing.T) {
	book := NewOrderBook()
	order := NewLimitOrder("ask-1", Ask, 10, 10, 1)

	trades := newTestEngine().Execute(order, book)

	assert.Empty(t, trades)
	require.Equal(t, 1, book.Len(Ask))
	best, _ := book.PeekBest(Ask)
	assert.Same(t, order, best)
	assert.Equal(t, 0, book.Len(Bid))
}

func TestExecute_PartialFillOfMaker(t *testing.T) {
	book := NewOrderBook()
	maker := NewLimitOrder("ask-1", Ask, 25, 100, 1)
	book.Insert(Ask, maker)

	incoming := NewLimitOrder("bid-2", Bid, 10, 105, 2)
	trades := newTestEngine().Execute(incoming, book)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(10), trades[0].Amount)
	assert.Equal(t, int64(100), trades[0].Price)
	assert.Equal(t, int64(0), incoming.Amount())
	assert.Equal(t, int64(15), maker.Amount())
	assert.Equal(t, 1, book.Len(Ask))
	assert.Equal(t, 0, book.Len(Bid), "fully filled order never rests")
}

func TestExecute_PartialFillOfTakerRests(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Ask, NewLimitOrder("ask-1", Ask, 100, 2025, 903))
	book.Insert(Ask, NewLimitOrder("ask-2", Ask, 100, 2030, 901))
	book.Insert(Ask, NewLimitOrder("ask-3", Ask, 200, 2030, 905))

	incoming := NewLimitOrder("bid-908", Bid, 250, 2035, 908)
	trades := newTestEngine().Execute(incoming, book)

	require.Len(t, trades, 3)
	assert.Equal(t, []string{"ask-1", "ask-2", "ask-3"},
		[]string{trades[0].MatchedOrderID, trades[1].MatchedOrderID, trades[2].MatchedOrderID})
	assert.Equal(t, []int64{100, 100, 50}, []int64{trades[0].Amount, trades[1].Amount, trades[2].Amount})
	assert.Equal(t, 0, book.Len(Bid))

	rest, ok := book.PeekBest(Ask)
	require.True(t, ok)
	assert.Equal(t, "ask-3", rest.ID())
	assert.Equal(t, int64(150), rest.Amount())

	// the remainder of a new ask now crosses nothing and rests
	sell := NewLimitOrder("ask-909", Ask, 250, 2035, 909)
	trades = newTestEngine().Execute(sell, book)
	assert.Empty(t, trades)
	assert.Equal(t, 2, book.Len(Ask))
}

func TestExecute_LimitStopsAtPrice(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Ask, NewLimitOrder("ask-1", Ask, 5, 10, 1))
	book.Insert(Ask, NewLimitOrder("ask-2", Ask, 5, 12, 2))

	incoming := NewLimitOrder("bid-3", Bid, 8, 11, 3)
	trades := newTestEngine().Execute(incoming, book)

	require.Len(t, trades, 1)
	assert.Equal(t, int64(5), trades[0].Amount)
	rest, ok := book.PeekBest(Bid)
	require.True(t, ok)
	assert.Same(t, incoming, rest)
	assert.Equal(t, int64(3), rest.Amount())
}

func TestExecute_MarketWithoutLiquidityRests(t *testing.T) {
	book := NewOrderBook()
	order := NewMarketOrder("mkt", Bid, 7, 15, 1)

	trades := newTestEngine().Execute(order, book)

	assert.Empty(t, trades)
	rest, ok := book.PeekBest(Bid)
	require.True(t, ok)
	assert.Equal(t, int64(15), rest.Price())
}

func TestExecute_NonCrossingLimitIsNoOp(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Bid, NewLimitOrder("bid-1", Bid, 4, 50, 1))
	book.Insert(Bid, NewLimitOrder("bid-2", Bid, 6, 49, 2))
	before := book.Depth(Bid, 0)

	trades := newTestEngine().Execute(NewLimitOrder("ask-3", Ask, 10, 51, 3), book)

	assert.Empty(t, trades)
	assert.Equal(t, before, book.Depth(Bid, 0))
}

func TestExecute_PreconditionPanics(t *testing.T) {
	engine := newTestEngine()
	book := NewOrderBook()

	tests := []struct {
		name  string
		order *Order
	}{
		{"zero amount", NewLimitOrder("a", Bid, 0, 1, 1)},
		{"negative price", NewLimitOrder("b", Bid, 1, -1, 1)},
		{"bad side", NewOrder("c", Side(4), 1, 1, 1, Limit)},
		{"bad strategy", NewOrder("d", Bid, 1, 1, 1, Strategy(3))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Panics(t, func() { engine.Execute(tt.order, book) })
		})
	}

	assert.Panics(t, func() { engine.Execute(NewLimitOrder("e", Bid, 1, 1, 1), nil) })
	assertEmpty(t, book)
}

func TestExecute_UsesWallClockByDefault(t *testing.T) {
	book := NewOrderBook()
	book.Insert(Ask, NewLimitOrder("ask-1", Ask, 1, 1, 1))

	before := time.Now()
	trades := NewMatchEngine().Execute(NewLimitOrder("bid-1", Bid, 1, 1, 2), book)
	require.Len(t, trades, 1)
	assert.False(t, trades[0].Timestamp.Before(before))
}

type bookState struct {
	amounts map[string]int64
	prices  map[string]int64
}

func captureBook(book *OrderBook, side Side) bookState {
	st := bookState{amounts: map[string]int64{}, prices: map[string]int64{}}
	for _, o := range book.Orders(side) {
		st.amounts[o.ID()] = o.Amount()
		st.prices[o.ID()] = o.Price()
	}
	return st
}

func TestExecute_InvariantsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		engine := newTestEngine()
		book := NewOrderBook()
		steps := rapid.IntRange(1, 60).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			side := Side(rapid.IntRange(0, 1).Draw(t, "side"))
			strategy := Strategy(rapid.IntRange(0, 1).Draw(t, "strategy"))
			amount := rapid.Int64Range(1, 50).Draw(t, "amount")
			price := rapid.Int64Range(0, 30).Draw(t, "price")
			incoming := NewOrder(fmt.Sprintf("o-%d", i), side, amount, price, uint64(i), strategy)

			opposite := captureBook(book, side.Opposite())
			trades := engine.Execute(incoming, book)

			// amount conservation
			if got := TotalAmount(trades) + incoming.Amount(); got != amount {
				t.Fatalf("filled %d + remaining %d != %d", TotalAmount(trades), incoming.Amount(), amount)
			}

			remaining := amount
			for _, tr := range trades {
				makerAmount, ok := opposite.amounts[tr.MatchedOrderID]
				if !ok {
					t.Fatalf("trade against unknown maker %s", tr.MatchedOrderID)
				}
				if tr.Price != opposite.prices[tr.MatchedOrderID] {
					t.Fatalf("trade price %d is not maker price %d", tr.Price, opposite.prices[tr.MatchedOrderID])
				}
				if want := min(remaining, makerAmount); tr.Amount != want {
					t.Fatalf("fill %d, want min(%d, %d)", tr.Amount, remaining, makerAmount)
				}
				if tr.ExecutingOrderID != incoming.ID() {
					t.Fatalf("executing id %s, want %s", tr.ExecutingOrderID, incoming.ID())
				}
				remaining -= tr.Amount
			}

			// a non-crossing limit leaves the opposite side alone
			if len(trades) == 0 && strategy == Limit {
				after := captureBook(book, side.Opposite())
				if len(after.amounts) != len(opposite.amounts) {
					t.Fatalf("opposite side changed without trades")
				}
			}

			for _, s := range []Side{Bid, Ask} {
				for _, o := range book.Orders(s) {
					if o.Amount() <= 0 {
						t.Fatalf("resting order %s has amount %d", o.ID(), o.Amount())
					}
					if o.Side() != s {
						t.Fatalf("order %s of side %s in %s queue", o.ID(), o.Side(), s)
					}
				}
			}

			// the book is never left crossed by limit orders alone
			if strategy == Limit {
				bid, okBid := book.PeekBest(Bid)
				ask, okAsk := book.PeekBest(Ask)
				if okBid && okAsk && bid.Price() >= ask.Price() && !bid.IsMarketOrder() && !ask.IsMarketOrder() {
					t.Fatalf("book crossed: bid %d >= ask %d", bid.Price(), ask.Price())
				}
			}
		}
	})
}

func BenchmarkExecute_LimitCross(b *testing.B) {
	engine := NewMatchEngine()
	book := NewOrderBook()
	for i := 0; i < 1000; i++ {
		book.Insert(Ask, NewLimitOrder(fmt.Sprintf("ask-%d", i), Ask, 1_000_000, int64(100+i%50), uint64(i)))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Execute(NewLimitOrder("bid", Bid, 3, 120, uint64(1000+i)), book)
	}
}

func BenchmarkExecute_Rest(b *testing.B) {
	engine := NewMatchEngine()
	book := NewOrderBook()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Execute(NewLimitOrder("ask", Ask, 10, int64(100+i%100), uint64(i)), book)
	}
}

package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/erain9/pricetime/pkg/core"
	"github.com/erain9/pricetime/pkg/logging"
	"github.com/erain9/pricetime/pkg/messaging"
	"github.com/erain9/pricetime/pkg/otel"
	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	// ErrSessionClosed is returned for requests made after Close
	ErrSessionClosed = errors.New("session closed")

	// ErrNilOrder is returned when Submit is called without an order
	ErrNilOrder = errors.New("nil order")
)

const defaultQueueSize = 64

// Result is the outcome of one submitted order. It holds copies, so it stays
// valid after the order rests and is mutated by later executions.
type Result struct {
	OrderID   string
	Side      core.Side
	Strategy  core.Strategy
	Price     int64
	Sequence  uint64
	Requested int64
	Filled    int64
	Remaining int64
	Rested    bool
	Trades    []core.Trade
	// ExecuteTime is the time spent matching, excluding queueing and publication
	ExecuteTime time.Duration
}

// BookSnapshot is a point-in-time view of the book
type BookSnapshot struct {
	Bids      []core.PriceLevel
	Asks      []core.PriceLevel
	BidOrders int
	AskOrders int
}

// Session owns one order book and serializes every operation on it through a
// single goroutine started by Run.
type Session struct {
	name     string
	book     *core.OrderBook
	engine   *core.MatchEngine
	sender   messaging.ExecutionSender
	metrics  *otel.MatchMetrics
	tickSize fpdecimal.Decimal
	// maxScaled is the largest tick count whose decimal value fits fpdecimal
	maxScaled int64
	depth     int
	logger    zerolog.Logger
	now       func() time.Time

	requests  chan request
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type request struct {
	ctx   context.Context
	order *core.Order
	// snapshot requests carry no order
	reply chan response
}

type response struct {
	result   *Result
	snapshot *BookSnapshot
	err      error
}

// Option configures a Session
type Option func(*Session)

// WithSender publishes every execution through sender
func WithSender(sender messaging.ExecutionSender) Option {
	return func(s *Session) {
		s.sender = sender
	}
}

// WithMetrics records every execution on metrics
func WithMetrics(metrics *otel.MatchMetrics) Option {
	return func(s *Session) {
		s.metrics = metrics
	}
}

// WithTickSize sets the decimal value of one price tick in published messages
func WithTickSize(tick fpdecimal.Decimal) Option {
	return func(s *Session) {
		s.tickSize = tick
	}
}

// WithDepth sets how many price levels per side a snapshot returns
func WithDepth(levels int) Option {
	return func(s *Session) {
		s.depth = levels
	}
}

// WithLogger sets the session logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithClock sets the clock used for trade timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// New creates a Session. Run must be started before requests are served.
func New(name string, opts ...Option) *Session {
	s := &Session{
		name:     name,
		book:     core.NewOrderBook(),
		tickSize: fpdecimal.FromInt(1),
		depth:    5,
		logger:   logging.FromContext(logging.WithSession(context.Background(), name)),
		now:      time.Now,
		requests: make(chan request, defaultQueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = core.NewMatchEngine(core.WithClock(s.now))
	s.maxScaled = maxScaled(s.tickSize)
	return s
}

// Name returns the session name
func (s *Session) Name() string {
	return s.name
}

// Run serves requests until ctx is cancelled or Close is called. It is the
// only goroutine that touches the book and must be called once.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info().Msg("Session started")
	defer s.logger.Info().Msg("Session stopped")
	defer close(s.stopped)

	for {
		select {
		case <-ctx.Done():
			s.Close()
			s.drain()
			return ctx.Err()
		case <-s.done:
			s.drain()
			return nil
		case req := <-s.requests:
			req.reply <- s.serve(req)
		}
	}
}

// serve answers one request. Requests picked up after Close, or whose caller
// has given up, are refused without touching the book.
func (s *Session) serve(req request) response {
	select {
	case <-s.done:
		return response{err: ErrSessionClosed}
	default:
	}
	if err := req.ctx.Err(); err != nil {
		return response{err: err}
	}

	if req.order == nil {
		return response{snapshot: s.snapshot()}
	}
	return response{result: s.execute(req.ctx, req.order)}
}

// drain refuses every request still queued when Run stops
func (s *Session) drain() {
	for {
		select {
		case req := <-s.requests:
			req.reply <- response{err: ErrSessionClosed}
		default:
			return
		}
	}
}

// Close stops Run. Requests that have not started executing fail with
// ErrSessionClosed; one already executing completes and reports its result.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Submit validates order and executes it against the book. Validation
// failures are returned as errors; the book is left untouched. Once the order
// is queued, an error means it did not execute: a cancelled ctx is honored
// only while the order is still waiting for Run.
func (s *Session) Submit(ctx context.Context, order *core.Order) (*Result, error) {
	if order == nil {
		return nil, ErrNilOrder
	}

	ctx, span := otel.StartSpan(ctx, otel.SpanSubmitOrder,
		attribute.String(otel.AttributeSession, s.name),
		attribute.String(otel.AttributeOrderID, order.ID()),
	)
	defer span.End()

	if err := order.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid order")
		return nil, fmt.Errorf("order %s: %w", order.ID(), err)
	}

	resp, err := s.roundTrip(ctx, request{ctx: ctx, order: order})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp.result, nil
}

// Snapshot returns the current depth of both sides
func (s *Session) Snapshot(ctx context.Context) (*BookSnapshot, error) {
	resp, err := s.roundTrip(ctx, request{ctx: ctx})
	if err != nil {
		return nil, err
	}
	return resp.snapshot, nil
}

func (s *Session) roundTrip(ctx context.Context, req request) (response, error) {
	req.reply = make(chan response, 1)

	select {
	case <-s.done:
		return response{}, ErrSessionClosed
	default:
	}

	select {
	case s.requests <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	case <-s.done:
		return response{}, ErrSessionClosed
	}

	// Once queued, the request may execute at any moment, so its outcome is
	// only known from the reply. Run replies to everything it dequeues and
	// refuses cancelled requests itself.
	select {
	case resp := <-req.reply:
		return resp, resp.err
	case <-s.stopped:
		select {
		case resp := <-req.reply:
			return resp, resp.err
		default:
			// queued after Run drained; it will never execute
			return response{}, ErrSessionClosed
		}
	}
}

// execute runs on the Run goroutine only
func (s *Session) execute(ctx context.Context, order *core.Order) *Result {
	logger := s.logger.With().Str("order_id", order.ID()).Logger()

	ctx, span := otel.StartSpan(ctx, otel.SpanExecuteOrder,
		attribute.String(otel.AttributeOrderSide, order.Side().String()),
		attribute.String(otel.AttributeOrderStrategy, order.Strategy().String()),
		attribute.Int64(otel.AttributeOrderAmount, order.Amount()),
		attribute.Int64(otel.AttributeOrderPrice, order.Price()),
		attribute.Int64(otel.AttributeOrderSequence, int64(order.Sequence())),
	)
	defer span.End()

	result := &Result{
		OrderID:   order.ID(),
		Side:      order.Side(),
		Strategy:  order.Strategy(),
		Price:     order.Price(),
		Sequence:  order.Sequence(),
		Requested: order.Amount(),
	}

	restingBefore := s.book.Len(core.Bid) + s.book.Len(core.Ask)
	start := time.Now()
	result.Trades = s.engine.Execute(order, s.book)
	elapsed := time.Since(start)
	result.ExecuteTime = elapsed
	restingAfter := s.book.Len(core.Bid) + s.book.Len(core.Ask)

	result.Filled = core.TotalAmount(result.Trades)
	result.Remaining = result.Requested - result.Filled
	result.Rested = result.Remaining > 0

	span.SetAttributes(
		attribute.Int64(otel.AttributeFilledAmount, result.Filled),
		attribute.Int64(otel.AttributeRemainingAmount, result.Remaining),
		attribute.Bool(otel.AttributeRested, result.Rested),
		attribute.Int(otel.AttributeTradeCount, len(result.Trades)),
	)

	s.metrics.RecordExecution(ctx, otel.Execution{
		Side:         result.Side.String(),
		Strategy:     result.Strategy.String(),
		Trades:       len(result.Trades),
		Filled:       result.Filled,
		Rested:       result.Rested,
		RestingDelta: restingAfter - restingBefore,
		ExecuteTime:  elapsed,
	})

	logger.Debug().
		Int("trades", len(result.Trades)).
		Int64("filled", result.Filled).
		Int64("remaining", result.Remaining).
		Bool("rested", result.Rested).
		Dur("elapsed", elapsed).
		Msg("Order executed")

	s.publish(ctx, logger, result)
	return result
}

func (s *Session) publish(ctx context.Context, logger zerolog.Logger, result *Result) {
	if s.sender == nil {
		return
	}

	ctx, span := otel.StartSpan(ctx, otel.SpanPublishExecution)
	defer span.End()

	if err := s.sender.SendExecution(ctx, s.toExecutionMessage(result)); err != nil {
		// the book has already changed; publication is best effort
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		logger.Error().Err(err).Msg("Failed to publish execution")
	}
}

func (s *Session) snapshot() *BookSnapshot {
	return &BookSnapshot{
		Bids:      s.book.Depth(core.Bid, s.depth),
		Asks:      s.book.Depth(core.Ask, s.depth),
		BidOrders: s.book.Len(core.Bid),
		AskOrders: s.book.Len(core.Ask),
	}
}

// fpdecimal keeps values as int64 scaled by 10^FractionDigits and Mul
// multiplies the scaled values before rescaling
const decimalScale = 1000

// maxScaled returns the largest n for which FromInt(n).Mul(tick) does not
// overflow
func maxScaled(tick fpdecimal.Decimal) int64 {
	f, err := strconv.ParseFloat(tick.String(), 64)
	if err != nil {
		return 0
	}
	scaledTick := max(int64(math.Abs(math.Round(f*decimalScale))), 1)
	return math.MaxInt64 / decimalScale / scaledTick
}

// scale renders units*tickSize. ok is false when the value is out of the
// decimal range.
func (s *Session) scale(units int64) (string, bool) {
	if units < -s.maxScaled || units > s.maxScaled {
		return "", false
	}
	return fpdecimal.FromInt(units).Mul(s.tickSize).String(), true
}

// FormatPrice renders a tick price as a decimal using the session tick size.
// Prices beyond the decimal range are rendered as "ticks*tick".
func (s *Session) FormatPrice(ticks int64) string {
	if v, ok := s.scale(ticks); ok {
		return v
	}
	return strconv.FormatInt(ticks, 10) + "*" + s.tickSize.String()
}

// formatNotional renders a trade's notional, or "" when it is out of range
func (s *Session) formatNotional(trade core.Trade) string {
	notional, ok := trade.Notional()
	if !ok {
		return ""
	}
	v, _ := s.scale(notional)
	return v
}

func (s *Session) toExecutionMessage(result *Result) *messaging.ExecutionMessage {
	msg := &messaging.ExecutionMessage{
		Session:   s.name,
		OrderID:   result.OrderID,
		Side:      result.Side.String(),
		Strategy:  result.Strategy.String(),
		Sequence:  result.Sequence,
		Price:     s.FormatPrice(result.Price),
		Requested: result.Requested,
		Filled:    result.Filled,
		Remaining: result.Remaining,
		Rested:    result.Rested,
		Trades:    make([]messaging.TradeMessage, 0, len(result.Trades)),
	}
	for _, trade := range result.Trades {
		msg.Trades = append(msg.Trades, messaging.TradeMessage{
			ExecutingOrderID: trade.ExecutingOrderID,
			MatchedOrderID:   trade.MatchedOrderID,
			Timestamp:        trade.Timestamp.UnixNano(),
			Amount:           trade.Amount,
			Price:            s.FormatPrice(trade.Price),
			Notional:         s.formatNotional(trade),
		})
	}
	return msg
}

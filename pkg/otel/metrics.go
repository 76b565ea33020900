package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MatchMetrics holds the instruments recorded around each execution
type MatchMetrics struct {
	ordersTotal  metric.Int64Counter
	tradesTotal  metric.Int64Counter
	filledAmount metric.Int64Counter
	restedTotal  metric.Int64Counter
	restingDepth metric.Int64UpDownCounter
	latency      metric.Float64Histogram
}

// NewMatchMetrics creates the instruments on meter. A nil meter uses the
// global meter provider.
func NewMatchMetrics(meter metric.Meter) (*MatchMetrics, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(instrumentationName)
	}

	ordersTotal, err := meter.Int64Counter(
		"matcher.orders.total",
		metric.WithDescription("Total number of orders executed"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	tradesTotal, err := meter.Int64Counter(
		"matcher.trades.total",
		metric.WithDescription("Total number of trades produced"),
		metric.WithUnit("{trade}"),
	)
	if err != nil {
		return nil, err
	}

	filledAmount, err := meter.Int64Counter(
		"matcher.filled_amount.total",
		metric.WithDescription("Total quantity filled"),
	)
	if err != nil {
		return nil, err
	}

	restedTotal, err := meter.Int64Counter(
		"matcher.rested_orders.total",
		metric.WithDescription("Orders whose remainder was inserted into the book"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	restingDepth, err := meter.Int64UpDownCounter(
		"matcher.resting_orders",
		metric.WithDescription("Orders currently resting in the book"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"matcher.execute.duration",
		metric.WithDescription("Time spent in one Execute call"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &MatchMetrics{
		ordersTotal:  ordersTotal,
		tradesTotal:  tradesTotal,
		filledAmount: filledAmount,
		restedTotal:  restedTotal,
		restingDepth: restingDepth,
		latency:      latency,
	}, nil
}

// Execution describes one finished execution for metrics purposes
type Execution struct {
	Side     string
	Strategy string
	Trades   int
	Filled   int64
	Rested   bool
	// RestingDelta is the change in resting order count across both sides
	RestingDelta int
	ExecuteTime  time.Duration
}

// RecordExecution records the outcome of one execution
func (m *MatchMetrics) RecordExecution(ctx context.Context, e Execution) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(AttributeOrderSide, e.Side),
		attribute.String(AttributeOrderStrategy, e.Strategy),
	)

	m.ordersTotal.Add(ctx, 1, attrs)
	m.tradesTotal.Add(ctx, int64(e.Trades), attrs)
	m.filledAmount.Add(ctx, e.Filled, attrs)
	m.latency.Record(ctx, e.ExecuteTime.Seconds(), attrs)

	if e.Rested {
		m.restedTotal.Add(ctx, 1, attrs)
	}
	if e.RestingDelta != 0 {
		m.restingDepth.Add(ctx, int64(e.RestingDelta))
	}
}

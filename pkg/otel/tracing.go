package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/erain9/pricetime/pkg/otel"

const (
	// Span names
	SpanSubmitOrder      = "submit_order"
	SpanExecuteOrder     = "execute_order"
	SpanPublishExecution = "publish_execution"

	// Attribute keys
	AttributeSession         = "session.name"
	AttributeOrderID         = "order.id"
	AttributeOrderSide       = "order.side"
	AttributeOrderStrategy   = "order.strategy"
	AttributeOrderAmount     = "order.amount"
	AttributeOrderPrice      = "order.price"
	AttributeOrderSequence   = "order.sequence"
	AttributeFilledAmount    = "order.filled_amount"
	AttributeRemainingAmount = "order.remaining_amount"
	AttributeRested          = "order.rested"
	AttributeTradeCount      = "trade.count"
)

// Tracer returns the tracer of the global provider. Before Init it is a no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a new span with the given attributes
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

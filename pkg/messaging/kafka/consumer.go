package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erain9/pricetime/pkg/messaging"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Handler processes one decoded execution message
type Handler func(msg *messaging.ExecutionMessage) error

// messageReader is the part of *kafka.Reader the consumer needs
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads execution messages from Kafka
type Consumer struct {
	reader messageReader
	logger zerolog.Logger
}

// NewConsumer creates a consumer in the given group
func NewConsumer(brokerAddr, topic, groupID string, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{brokerAddr},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &Consumer{reader: reader, logger: logger}
}

// Consume blocks, handing each message to handler, until ctx is done.
// Messages that fail to decode or handle are logged and skipped.
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("failed to read message: %w", err)
		}

		var msg messaging.ExecutionMessage
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.logger.Warn().Err(err).Int64("offset", m.Offset).Msg("Skipping undecodable message")
			continue
		}

		if err := handler(&msg); err != nil {
			c.logger.Error().Err(err).Str("order_id", msg.OrderID).Msg("Handler failed")
		}
	}
}

// Close closes the underlying reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// LogHandler returns a handler that pretty-logs each execution
func LogHandler(logger zerolog.Logger) Handler {
	return func(msg *messaging.ExecutionMessage) error {
		logger.Info().
			Str("session", msg.Session).
			Str("order_id", msg.OrderID).
			Str("side", msg.Side).
			Str("strategy", msg.Strategy).
			Int64("requested", msg.Requested).
			Int64("filled", msg.Filled).
			Int64("remaining", msg.Remaining).
			Bool("rested", msg.Rested).
			Interface("trades", msg.Trades).
			Msg("Received execution message")
		return nil
	}
}

package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/erain9/pricetime/pkg/messaging"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const maxRetry = 5

// QueueSender implements messaging.ExecutionSender on a sarama SyncProducer.
// Values are protobuf-encoded structpb.Struct messages.
type QueueSender struct {
	producer sarama.SyncProducer
	topic    string
}

// NewQueueSender connects a sync producer to the given broker
func NewQueueSender(brokerAddr, topic string) (*QueueSender, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = maxRetry
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer([]string{brokerAddr}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewQueueSenderWithProducer(producer, topic), nil
}

// NewQueueSenderWithProducer wraps an existing producer
func NewQueueSenderWithProducer(producer sarama.SyncProducer, topic string) *QueueSender {
	return &QueueSender{producer: producer, topic: topic}
}

// SendExecution sends the execution message to the Kafka queue
func (q *QueueSender) SendExecution(ctx context.Context, msg *messaging.ExecutionMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	messageBytes, err := EncodeExecution(msg)
	if err != nil {
		return err
	}

	_, _, err = q.producer.SendMessage(&sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(msg.OrderID),
		Value: sarama.ByteEncoder(messageBytes),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	return nil
}

// Close closes the producer
func (q *QueueSender) Close() error {
	return q.producer.Close()
}

// EncodeExecution serializes msg to protobuf
func EncodeExecution(msg *messaging.ExecutionMessage) ([]byte, error) {
	trades := make([]interface{}, 0, len(msg.Trades))
	for _, t := range msg.Trades {
		trades = append(trades, map[string]interface{}{
			"executing_order_id": t.ExecutingOrderID,
			"matched_order_id":   t.MatchedOrderID,
			"timestamp":          strconv.FormatInt(t.Timestamp, 10),
			"amount":             strconv.FormatInt(t.Amount, 10),
			"price":              t.Price,
			"notional":           t.Notional,
		})
	}

	s, err := structpb.NewStruct(map[string]interface{}{
		"session":   msg.Session,
		"order_id":  msg.OrderID,
		"side":      msg.Side,
		"strategy":  msg.Strategy,
		"sequence":  strconv.FormatUint(msg.Sequence, 10),
		"price":     msg.Price,
		"requested": strconv.FormatInt(msg.Requested, 10),
		"filled":    strconv.FormatInt(msg.Filled, 10),
		"remaining": strconv.FormatInt(msg.Remaining, 10),
		"rested":    msg.Rested,
		"trades":    trades,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build execution message: %w", err)
	}

	data, err := proto.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution message: %w", err)
	}
	return data, nil
}

// DecodeExecution reverses EncodeExecution
func DecodeExecution(data []byte) (*messaging.ExecutionMessage, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal execution message: %w", err)
	}

	fields := s.GetFields()
	msg := &messaging.ExecutionMessage{
		Session:  fields["session"].GetStringValue(),
		OrderID:  fields["order_id"].GetStringValue(),
		Side:     fields["side"].GetStringValue(),
		Strategy: fields["strategy"].GetStringValue(),
		Price:    fields["price"].GetStringValue(),
		Rested:   fields["rested"].GetBoolValue(),
	}

	var err error
	if msg.Sequence, err = strconv.ParseUint(fields["sequence"].GetStringValue(), 10, 64); err != nil {
		return nil, fmt.Errorf("invalid sequence: %w", err)
	}
	if msg.Requested, err = intField(fields, "requested"); err != nil {
		return nil, err
	}
	if msg.Filled, err = intField(fields, "filled"); err != nil {
		return nil, err
	}
	if msg.Remaining, err = intField(fields, "remaining"); err != nil {
		return nil, err
	}

	for _, v := range fields["trades"].GetListValue().GetValues() {
		tf := v.GetStructValue().GetFields()
		trade := messaging.TradeMessage{
			ExecutingOrderID: tf["executing_order_id"].GetStringValue(),
			MatchedOrderID:   tf["matched_order_id"].GetStringValue(),
			Price:            tf["price"].GetStringValue(),
			Notional:         tf["notional"].GetStringValue(),
		}
		if trade.Amount, err = intField(tf, "amount"); err != nil {
			return nil, err
		}
		if trade.Timestamp, err = intField(tf, "timestamp"); err != nil {
			return nil, err
		}
		msg.Trades = append(msg.Trades, trade)
	}

	return msg, nil
}

// intField reads an int64 carried as a decimal string; numbers in a Struct
// are float64 and lose precision above 2^53
func intField(fields map[string]*structpb.Value, name string) (int64, error) {
	v, err := strconv.ParseInt(fields[name].GetStringValue(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

var _ messaging.ExecutionSender = (*QueueSender)(nil)

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erain9/pricetime/pkg/messaging"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the sender needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender implements ExecutionSender using kafka-go
type KafkaSender struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
}

// NewKafkaSender creates a new Kafka execution sender
func NewKafkaSender(brokerAddr, topic string) *KafkaSender {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokerAddr),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return newKafkaSender(writer, topic)
}

func newKafkaSender(writer messageWriter, topic string) *KafkaSender {
	return &KafkaSender{
		writer:  writer,
		topic:   topic,
		timeout: 5 * time.Second,
	}
}

// SendExecution sends an execution message keyed by order ID, so all
// messages for one order land in one partition.
func (k *KafkaSender) SendExecution(ctx context.Context, msg *messaging.ExecutionMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal execution message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.OrderID),
		Value: data,
		Time:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to Kafka topic %s: %w", k.topic, err)
	}

	return nil
}

// Close closes the Kafka writer
func (k *KafkaSender) Close() error {
	return k.writer.Close()
}

var _ messaging.ExecutionSender = (*KafkaSender)(nil)

package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/erain9/pricetime/pkg/messaging"
	"github.com/erain9/pricetime/pkg/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type fakeReader struct {
	messages []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *fakeReader) Close() error { return nil }

func sampleExecution() *messaging.ExecutionMessage {
	return &messaging.ExecutionMessage{
		Session:   "main",
		OrderID:   "bid-1",
		Side:      "BID",
		Strategy:  "LIMIT",
		Requested: 10,
		Filled:    10,
		Trades: []messaging.TradeMessage{
			{ExecutingOrderID: "bid-1", MatchedOrderID: "ask-1", Amount: 10, Price: "10", Notional: "100"},
		},
	}
}

func TestKafkaSender_SendExecution(t *testing.T) {
	writer := &fakeWriter{}
	sender := newKafkaSender(writer, "executions")

	require.NoError(t, sender.SendExecution(context.Background(), sampleExecution()))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, []byte("bid-1"), writer.messages[0].Key)

	var decoded messaging.ExecutionMessage
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &decoded))
	assert.Equal(t, *sampleExecution(), decoded)

	require.NoError(t, sender.Close())
	assert.True(t, writer.closed)
}

func TestKafkaSender_WrapsWriteError(t *testing.T) {
	sender := newKafkaSender(&fakeWriter{err: io.ErrClosedPipe}, "executions")

	err := sender.SendExecution(context.Background(), sampleExecution())
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.ErrorContains(t, err, "executions")
}

func TestConsumer_SkipsBadMessages(t *testing.T) {
	good, err := json.Marshal(sampleExecution())
	require.NoError(t, err)

	var logs bytes.Buffer
	consumer := &Consumer{
		reader: &fakeReader{messages: []kafka.Message{{Value: []byte("{not json")}, {Value: good}}},
		logger: zerolog.New(&logs),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var received []*messaging.ExecutionMessage
	err = consumer.Consume(ctx, func(msg *messaging.ExecutionMessage) error {
		received = append(received, msg)
		return errors.New("handler failure is only logged")
	})
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "bid-1", received[0].OrderID)
	assert.Contains(t, logs.String(), "Skipping undecodable message")
	assert.Contains(t, logs.String(), "Handler failed")
}

func TestLogHandler(t *testing.T) {
	var logs bytes.Buffer
	require.NoError(t, LogHandler(zerolog.New(&logs))(sampleExecution()))
	assert.Contains(t, logs.String(), `"order_id":"bid-1"`)
}

func TestKafkaRoundTrip(t *testing.T) {
	broker := testutil.KafkaBrokerAddr()
	testutil.SkipIfKafkaUnavailable(t, broker)

	topic := "pricetime-test-" + time.Now().Format("150405.000")
	sender := NewKafkaSender(broker, topic)
	defer sender.Close()

	require.NoError(t, sender.SendExecution(context.Background(), sampleExecution()))

	consumer := NewConsumer(broker, topic, "pricetime-test", zerolog.Nop())
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	done := make(chan *messaging.ExecutionMessage, 1)
	go func() {
		_ = consumer.Consume(ctx, func(msg *messaging.ExecutionMessage) error {
			select {
			case done <- msg:
			default:
			}
			return nil
		})
	}()

	select {
	case msg := <-done:
		assert.Equal(t, "bid-1", msg.OrderID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for execution message")
	}
}

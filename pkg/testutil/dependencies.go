package testutil

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultKafkaAddr is the broker used by integration tests unless
// PRICETIME_KAFKA_BROKER_ADDR is set
const DefaultKafkaAddr = "localhost:9092"

// KafkaBrokerAddr returns the broker address integration tests should use
func KafkaBrokerAddr() string {
	if addr := os.Getenv("PRICETIME_KAFKA_BROKER_ADDR"); addr != "" {
		return addr
	}
	return DefaultKafkaAddr
}

// SkipIfKafkaUnavailable skips the test if Kafka is unavailable on the specified address
func SkipIfKafkaUnavailable(t *testing.T, kafkaAddr string) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", kafkaAddr, 2*time.Second)
	if err != nil {
		t.Skipf("Skipping test: Kafka not available at %s - %v", kafkaAddr, err)
		return
	}
	_ = conn.Close()

	// A TCP listener is not enough; make sure the broker answers a metadata request.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	kconn, err := kafka.DialContext(ctx, "tcp", kafkaAddr)
	if err != nil {
		t.Skipf("Skipping test: Kafka at %s is not responding - %v", kafkaAddr, err)
		return
	}
	defer kconn.Close()

	if _, err := kconn.Brokers(); err != nil {
		t.Skipf("Skipping test: Kafka at %s is not responding correctly - %v", kafkaAddr, err)
	}
}

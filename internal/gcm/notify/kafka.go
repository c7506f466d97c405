package notify

import (
	"context"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"device-checkin/internal/gcm/domain"
)

// writeTimeout bounds a single broadcast write.
const writeTimeout = 5 * time.Second

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaBroadcaster publishes broadcasts to a Kafka topic keyed by target package.
type KafkaBroadcaster struct {
	writer messageWriter
	topic  string
}

// NewKafkaBroadcaster returns a broadcaster for topic, or nil if brokers or topic are empty.
// Call Close when shutting down.
func NewKafkaBroadcaster(brokers []string, topic string) *KafkaBroadcaster {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaBroadcaster{writer: writer, topic: topic}
}

// Broadcast serializes the envelope as JSON and writes it to the topic.
func (b *KafkaBroadcaster) Broadcast(ctx context.Context, target string, payload domain.Payload) error {
	value, err := Marshal(target, payload)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := b.writer.WriteMessages(writeCtx, kafka.Message{Key: []byte(target), Value: value}); err != nil {
		log.Printf("notify: kafka broadcast to %s failed: %v", b.topic, err)
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call on a nil broadcaster.
func (b *KafkaBroadcaster) Close() error {
	if b == nil || b.writer == nil {
		return nil
	}
	return b.writer.Close()
}

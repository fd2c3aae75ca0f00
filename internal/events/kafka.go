package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/huangsam/sensorium/internal/contract"
	"github.com/huangsam/sensorium/schema"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher mirrors completed buckets onto a Kafka topic, keyed by sensor kind
// so that each kind keeps its order within a partition.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	log    *slog.Logger
}

var _ contract.Publisher = &KafkaPublisher{} // Compile-time check

// NewKafkaPublisher creates a synchronous writer for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic cannot be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(w, topic, log), nil
}

func newKafkaPublisher(w messageWriter, topic string, log *slog.Logger) *KafkaPublisher {
	if log == nil {
		log = contract.DiscardLogger()
	}
	return &KafkaPublisher{
		writer: w,
		topic:  topic,
		log:    log.With(slog.String("component", "kafka"), slog.String("topic", topic)),
	}
}

// Publish writes ev as JSON.
func (p *KafkaPublisher) Publish(ctx context.Context, ev schema.BucketCompleted) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Bucket.Kind),
		Value: value,
		Time:  ev.WrittenAt,
		Headers: []kafka.Header{
			{Key: "resolution", Value: []byte(ev.Bucket.Resolution)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", ev.Bucket.Key(), p.topic, err)
	}
	p.log.Debug("mirrored event", slog.String("bucket", ev.Bucket.Key()))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

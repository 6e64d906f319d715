package firehose

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/HaydenEquityAi/stockmarket/pkg/models"
)

// KafkaWriter abstracts the producer for tests.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits every fetched quote onto the firehose topic, keyed by
// symbol so downstream consumers (the recorder) can shard deterministically.
type Publisher struct {
	writer KafkaWriter
}

func NewPublisher(writer KafkaWriter) *Publisher {
	return &Publisher{writer: writer}
}

// NewKafkaPublisher builds a Publisher over a real kafka-go writer.
func NewKafkaPublisher(brokers []string, topic string) *Publisher {
	return NewPublisher(&kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	})
}

func (p *Publisher) Publish(ctx context.Context, q models.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(q.Symbol),
		Value: payload,
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

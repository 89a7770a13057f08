package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"sibyl/internal/domain/trade"
	"sibyl/pkg/logger"
)

// DefaultTradesTopic receives one event per committed trade record
const DefaultTradesTopic = "sibyl.trades"

// Publisher emits trade events to Kafka. Publishing is best-effort from the
// pipeline's point of view; a broker outage never blocks a trade.
type Publisher struct {
	writer *kafka.Writer
	log    *logger.Logger
}

// NewPublisher creates a Kafka publisher for trade events
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTradesTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
			Async:    false,
		},
		log: logger.Get().With("component", "kafka_publisher"),
	}
}

// PublishTrade sends one trade record, keyed by record id
func (p *Publisher) PublishTrade(ctx context.Context, record *trade.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(record.ID),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Errorf("Failed to publish trade %s: %v", record.ID, err)
		return err
	}

	p.log.Debugf("Published trade %s (%s)", record.ID, record.Decision)
	return nil
}

// Close closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

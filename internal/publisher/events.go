package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

const eventType = "ledger.status_changed"

// EventPublisher writes ledger status changes to Kafka, keyed by record id
// so one record's events stay ordered.
type EventPublisher struct {
	writer *kafka.Writer
}

func NewEventPublisher(topic string, brokers ...string) *EventPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &EventPublisher{writer: w}
}

func (p *EventPublisher) Publish(ctx context.Context, ev domain.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}

	msg := kafka.Message{
		Key:   []byte(ev.RecordID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "status", Value: []byte(ev.To)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	return p.writer.Close()
}

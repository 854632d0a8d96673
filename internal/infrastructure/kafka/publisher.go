// Package kafka publishes domain events to a Kafka topic with franz-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/oksasatya/account-service/internal/domain/event"
)

const (
	HeaderEventID   = "eventId"
	HeaderEventType = "eventType"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher keys records by account id so one account stays on one partition.
type Publisher struct {
	client Producer
	topic  string
}

func NewPublisher(client Producer, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// NewClient connects a producer/consumer client to brokers.
func NewClient(brokers []string, opts ...kgo.Opt) (*kgo.Client, error) {
	opts = append([]kgo.Opt{kgo.SeedBrokers(brokers...)}, opts...)
	return kgo.NewClient(opts...)
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type(), err)
	}
	rec := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(e.AccountID()),
		Value:     body,
		Timestamp: e.OccurredAt(),
		Headers: []kgo.RecordHeader{
			{Key: HeaderEventID, Value: []byte(e.ID())},
			{Key: HeaderEventType, Value: []byte(e.Type())},
		},
	}
	return p.client.ProduceSync(ctx, rec).FirstErr()
}

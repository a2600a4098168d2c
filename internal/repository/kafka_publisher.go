package repository

import (
	"context"
	"fmt"

	"PriceCast/internal/domain/models"
	pkgkafka "PriceCast/pkg/kafka"
)

// KafkaPublisher emits served forecasts to a Kafka topic, keyed by asset so
// per-asset ordering is preserved.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaPublisher(producer *pkgkafka.Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, f *models.Forecast) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(f.Asset), f); err != nil {
		return fmt.Errorf("publish forecast: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher drops forecasts. Used when Kafka publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, f *models.Forecast) error { return nil }
func (NoopPublisher) Close() error                                          { return nil }

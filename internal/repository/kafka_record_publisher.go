package repository

import (
	"context"

	"KronosAlign/internal/domain/models"
)

// Publisher is the part of the Kafka producer the record publisher needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaRecordPublisher streams export records to a topic, keyed by record id.
type KafkaRecordPublisher struct {
	producer Publisher
	topic    string
}

func NewKafkaRecordPublisher(producer Publisher, topic string) *KafkaRecordPublisher {
	return &KafkaRecordPublisher{producer: producer, topic: topic}
}

func (p *KafkaRecordPublisher) Name() string { return "kafka" }

func (p *KafkaRecordPublisher) Save(ctx context.Context, rec *models.ExportRecord) (string, error) {
	if err := p.producer.Publish(ctx, p.topic, []byte(rec.ID), rec); err != nil {
		return "", err
	}
	return "kafka://" + p.topic + "/" + rec.ID, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/school-notify/internal/domain"
)

// RecordCreatedEvent is the message published for every new inbox record.
type RecordCreatedEvent struct {
	Event  string                     `json:"event"`
	Record *domain.NotificationRecord `json:"record"`
	SentAt time.Time                  `json:"sent_at"`
}

// Publisher emits record-created events keyed by recipient, so that one
// recipient's events stay ordered within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer builds an idempotent, all-acks sync producer.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	return sarama.NewSyncProducer(brokers, cfg)
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) PublishRecord(ctx context.Context, rec *domain.NotificationRecord) error {
	payload, err := json.Marshal(RecordCreatedEvent{Event: "notification.created", Record: rec, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal record event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(rec.RecipientID),
		Value: sarama.ByteEncoder(payload),
	}
	done := make(chan error, 1)
	go func() {
		_, _, err := p.producer.SendMessage(msg)
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("kafka send: %w", err)
		}
		return nil
	}
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer publishes order events to a single topic. The message key is the
// order number so every event for one order lands on the same partition.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

type message struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Data    any    `json:"data"`
}

type keyed interface {
	EventKey() string
}

func NewProducer(brokers []string, topic string, log *slog.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3

	var (
		sp  sarama.SyncProducer
		err error
	)
	for i := 1; i <= 5; i++ {
		sp, err = sarama.NewSyncProducer(brokers, cfg)
		if err == nil {
			return NewProducerWith(sp, topic, log), nil
		}
		log.Warn("waiting for kafka", "attempt", i, "err", err)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("kafka: producer: %w", err)
}

func NewProducerWith(sp sarama.SyncProducer, topic string, log *slog.Logger) *Producer {
	return &Producer{
		producer: sp,
		topic:    topic,
		log:      log.With("component", "kafka", "topic", topic),
	}
}

func (p *Producer) Publish(ctx context.Context, pattern string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id := uuid.NewString()
	body, err := json.Marshal(message{ID: id, Pattern: pattern, Data: data})
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", pattern, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(body),
		Headers: []sarama.RecordHeader{
			{Key: []byte("pattern"), Value: []byte(pattern)},
			{Key: []byte("message_id"), Value: []byte(id)},
		},
	}
	if k, ok := data.(keyed); ok {
		msg.Key = sarama.StringEncoder(k.EventKey())
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka: send %s: %w", pattern, err)
	}
	p.log.Debug("event published", "pattern", pattern, "partition", partition, "offset", offset)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

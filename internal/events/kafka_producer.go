package events

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher delivers a keyed message to a topic
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload []byte) error
	Close() error
}

// KafkaProducer publishes booking events to Kafka
type KafkaProducer struct {
	writer *kafka.Writer
	logger *logrus.Logger
}

// NewKafkaProducer creates a synchronous producer. Messages with the same
// key land on the same partition, so events of one booking stay ordered.
func NewKafkaProducer(brokers []string, logger *logrus.Logger) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Async:                  false,
	}

	return &KafkaProducer{
		writer: writer,
		logger: logger,
	}
}

// Publish writes one message and waits for the broker acknowledgement
func (p *KafkaProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic": topic,
		"key":   key,
	}).Debug("Published booking event")

	return nil
}

// Close flushes pending writes and releases connections
func (p *KafkaProducer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

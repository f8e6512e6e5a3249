package kafkarepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const headerEventID = "event-id"

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer MessageWriter
}

func NewPublisher(writer MessageWriter) *Publisher {
	return &Publisher{
		writer: writer,
	}
}

// Publish sends v as JSON to topic and returns once the broker has
// acknowledged the write or the write has failed.
func (p *Publisher) Publish(ctx context.Context, topic, key string, v any) error {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal kafka message: %w", err)
	}

	// Key by transaction id so every event of one transaction lands on the same partition
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(uuid.NewString())},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}

	return nil
}

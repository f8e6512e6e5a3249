package broker

import (
	"fmt"

	"financial-movement/internal/config"

	"github.com/IBM/sarama"
	"github.com/segmentio/kafka-go"
)

// NewKafkaWriter returns a writer without a fixed topic; every message names
// its own.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},    // Use hash balancer to guarantee order
		RequiredAcks:           kafka.RequireOne, // Wait for acknowledgement from leader
		Async:                  false,            // Synchronous writing for reliability
		MaxAttempts:            10,
		AllowAutoTopicCreation: true,
	}
}

func NewConsumerGroup(cfg config.KafkaConfig) (sarama.ConsumerGroup, error) {
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.ConsumerGroup, cfg.GetSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer group: %w", err)
	}
	return group, nil
}

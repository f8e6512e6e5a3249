package worker

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/IBM/sarama"
)

// ConsumerGroupHandler feeds every claimed message to the dispatcher and
// marks it consumed as soon as its handler has been started.
type ConsumerGroupHandler struct {
	dispatcher *Dispatcher
}

func NewConsumerGroupHandler(dispatcher *Dispatcher) *ConsumerGroupHandler {
	return &ConsumerGroupHandler{dispatcher: dispatcher}
}

func (h *ConsumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	log.Printf("Consumer: session started, claims: %v", session.Claims())
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	log.Printf("Consumer: session ended")
	return nil
}

func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil

		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.dispatcher.Dispatch(msg.Topic, msg.Value)
			session.MarkMessage(msg, "")
		}
	}
}

// Consumer runs the consumer group until its context is cancelled.
type Consumer struct {
	group      sarama.ConsumerGroup
	dispatcher *Dispatcher
}

func NewConsumer(group sarama.ConsumerGroup, dispatcher *Dispatcher) *Consumer {
	return &Consumer{
		group:      group,
		dispatcher: dispatcher,
	}
}

// Start consumes until ctx is cancelled, then waits for in-flight handlers.
func (c *Consumer) Start(ctx context.Context) error {
	topics := c.dispatcher.Topics()
	log.Printf("Consumer: subscribing to %v", topics)

	go func() {
		for err := range c.group.Errors() {
			log.Printf("Consumer: Kafka error: %v", err)
		}
	}()

	handler := NewConsumerGroupHandler(c.dispatcher)
	defer func() {
		c.dispatcher.Wait()
		log.Println("Consumer: all handlers finished")
	}()

	for {
		// Consume returns on every rebalance and must be called again
		if err := c.group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return fmt.Errorf("consumer group error: %w", err)
		}
		if ctx.Err() != nil {
			log.Println("Consumer: shutdown signal received")
			return nil
		}
	}
}

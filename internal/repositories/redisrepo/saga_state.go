package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financial-movement/internal/models"

	"github.com/go-redis/redis/v8"
)

const (
	defaultExpiration = 24 * time.Hour
)

var (
	ErrSagaNotFound = errors.New("saga state not found in cache")
)

// SagaStateRepository keeps the last reported outcome of every saga step,
// per transaction, in a hash that expires after ttl.
type SagaStateRepository struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSagaStateRepository(client *redis.Client, ttl time.Duration) *SagaStateRepository {
	if ttl <= 0 {
		ttl = defaultExpiration
	}
	return &SagaStateRepository{
		client: client,
		prefix: "saga:",
		ttl:    ttl,
	}
}

func (r *SagaStateRepository) SetStepStatus(ctx context.Context, transactionID, step string, status models.StatusResult) error {
	key := r.getStateKey(transactionID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, step, string(status))
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set saga state in redis: %w", err)
	}

	return nil
}

func (r *SagaStateRepository) GetSteps(ctx context.Context, transactionID string) (map[string]models.StatusResult, error) {
	key := r.getStateKey(transactionID)

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get saga state from redis: %w", err)
	}
	if len(values) == 0 {
		return nil, ErrSagaNotFound
	}

	steps := make(map[string]models.StatusResult, len(values))
	for step, status := range values {
		steps[step] = models.StatusResult(status)
	}
	return steps, nil
}

func (r *SagaStateRepository) getStateKey(transactionID string) string {
	return r.prefix + transactionID
}

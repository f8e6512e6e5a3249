package services

import (
	"context"

	"financial-movement/internal/models"
)

// Publisher sends v as one message to topic. It returns only after the
// broker accepted the message or the send failed.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, v any) error
}

// StateTracker records the outcome of a saga step for operators. It is not
// part of the saga: failures are logged and ignored.
type StateTracker interface {
	SetStepStatus(ctx context.Context, transactionID, step string, status models.StatusResult) error
}

type noopTracker struct{}

func (noopTracker) SetStepStatus(context.Context, string, string, models.StatusResult) error {
	return nil
}

func orNoopTracker(t StateTracker) StateTracker {
	if t == nil {
		return noopTracker{}
	}
	return t
}

// Package repositories holds the contracts shared by the movement store
// implementations.
package repositories

import (
	"context"
	"errors"

	"financial-movement/internal/models"
)

var (
	ErrSessionEnded          = errors.New("session already ended")
	ErrNoTransaction         = errors.New("no transaction in progress")
	ErrTransactionInProgress = errors.New("transaction already in progress")
)

// Session is a unit of work against the movement store. Writes made inside
// a transaction are invisible to other sessions until committed. A session
// belongs to a single handler run and is not safe for concurrent use.
type Session interface {
	StartTransaction(ctx context.Context) error
	InTransaction() bool
	Create(ctx context.Context, movement models.Movement) error
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
	// EndSession releases the session, aborting an open transaction.
	// Ending an ended session is a no-op.
	EndSession(ctx context.Context) error
}

// MovementStore is the durable record of movements.
type MovementStore interface {
	StartSession(ctx context.Context) (Session, error)
	// UpdateStatus sets the status of every movement with the given id and
	// returns how many were matched.
	UpdateStatus(ctx context.Context, id string, status models.StatusResult) (int64, error)
	FindCorrelated(ctx context.Context, filter models.CorrelationFilter) ([]models.Movement, error)
}

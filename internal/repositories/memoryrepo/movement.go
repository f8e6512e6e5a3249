// Package memoryrepo keeps movements in process memory. It backs local runs
// (STORE_DRIVER=memory) and tests; it is not durable.
package memoryrepo

import (
	"context"
	"sort"
	"sync"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"
)

type MovementRepo struct {
	mu        sync.RWMutex
	movements []models.Movement
}

func NewMovementRepo() *MovementRepo {
	return &MovementRepo{}
}

func (r *MovementRepo) StartSession(ctx context.Context) (repositories.Session, error) {
	return &Session{repo: r}, nil
}

func (r *MovementRepo) UpdateStatus(ctx context.Context, id string, status models.StatusResult) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched int64
	for i := range r.movements {
		if r.movements[i].ID == id {
			r.movements[i].Status = status
			matched++
		}
	}
	return matched, nil
}

func (r *MovementRepo) FindCorrelated(ctx context.Context, filter models.CorrelationFilter) ([]models.Movement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	found := make([]models.Movement, 0)
	for _, m := range r.movements {
		if filter.Matches(m) {
			found = append(found, m)
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].TransactionDatetime.Before(found[j].TransactionDatetime)
	})
	return found, nil
}

// All returns a copy of every stored movement in insertion order.
func (r *MovementRepo) All() []models.Movement {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Movement, len(r.movements))
	copy(out, r.movements)
	return out
}

func (r *MovementRepo) apply(staged []models.Movement) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.movements = append(r.movements, staged...)
}

// Session stages writes until commit.
type Session struct {
	repo   *MovementRepo
	staged []models.Movement
	inTx   bool
	ended  bool
}

func (s *Session) StartTransaction(ctx context.Context) error {
	if s.ended {
		return repositories.ErrSessionEnded
	}
	if s.inTx {
		return repositories.ErrTransactionInProgress
	}
	s.inTx = true
	s.staged = nil
	return nil
}

func (s *Session) InTransaction() bool {
	return s.inTx
}

func (s *Session) Create(ctx context.Context, movement models.Movement) error {
	if !s.inTx {
		return repositories.ErrNoTransaction
	}
	s.staged = append(s.staged, movement)
	return nil
}

func (s *Session) CommitTransaction(ctx context.Context) error {
	if !s.inTx {
		return repositories.ErrNoTransaction
	}
	s.repo.apply(s.staged)
	s.staged = nil
	s.inTx = false
	return nil
}

func (s *Session) AbortTransaction(ctx context.Context) error {
	if !s.inTx {
		return repositories.ErrNoTransaction
	}
	s.staged = nil
	s.inTx = false
	return nil
}

func (s *Session) EndSession(ctx context.Context) error {
	if s.ended {
		return nil
	}
	s.ended = true
	if s.inTx {
		return s.AbortTransaction(ctx)
	}
	return nil
}

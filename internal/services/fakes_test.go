package services

import (
	"context"
	"sync"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"
)

// callLog records the order of store and broker calls across fakes.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(call string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (l *callLog) index(call string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.calls {
		if c == call {
			return i
		}
	}
	return -1
}

type published struct {
	topic string
	key   string
	value any
}

type fakePublisher struct {
	mu       sync.Mutex
	log      *callLog
	failures map[string]error
	messages []published
}

func (p *fakePublisher) Publish(ctx context.Context, topic, key string, v any) error {
	p.log.add("publish:" + topic)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failures[topic]; err != nil {
		return err
	}
	p.messages = append(p.messages, published{topic: topic, key: key, value: v})
	return nil
}

func (p *fakePublisher) on(topic string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []published
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// failure returns the single terminal event, or false if none was sent.
func (p *fakePublisher) failure() (models.FailureEvent, bool) {
	msgs := p.on(models.TopicEndTransactions)
	if len(msgs) != 1 {
		return models.FailureEvent{}, false
	}
	event, ok := msgs[0].value.(models.FailureEvent)
	return event, ok
}

type fakeSession struct {
	log *callLog

	errStart  error
	errCreate error
	errCommit error
	errAbort  error
	errEnd    error

	inTx      bool
	ended     bool
	committed bool
	aborted   bool
	endCalls  int
	created   []models.Movement
	abortErr  error // ctx.Err() seen by AbortTransaction
}

func (s *fakeSession) StartTransaction(ctx context.Context) error {
	s.log.add("start")
	if s.errStart != nil {
		return s.errStart
	}
	s.inTx = true
	return nil
}

func (s *fakeSession) InTransaction() bool {
	return s.inTx
}

func (s *fakeSession) Create(ctx context.Context, movement models.Movement) error {
	s.log.add("create")
	if s.errCreate != nil {
		return s.errCreate
	}
	s.created = append(s.created, movement)
	return nil
}

func (s *fakeSession) CommitTransaction(ctx context.Context) error {
	s.log.add("commit")
	s.inTx = false
	if s.errCommit != nil {
		return s.errCommit
	}
	s.committed = true
	return nil
}

func (s *fakeSession) AbortTransaction(ctx context.Context) error {
	s.log.add("abort")
	s.abortErr = ctx.Err()
	if s.errAbort != nil {
		return s.errAbort
	}
	s.inTx = false
	s.aborted = true
	return nil
}

func (s *fakeSession) EndSession(ctx context.Context) error {
	s.endCalls++
	if s.ended {
		return nil
	}
	s.log.add("end")
	s.ended = true
	s.inTx = false
	return s.errEnd
}

type fakeStore struct {
	session *fakeSession

	errSession error
	errUpdate  error
	errFind    error
	matched    int64
	found      []models.Movement

	sessions int
	updates  map[string]models.StatusResult
	filters  []models.CorrelationFilter
}

func (s *fakeStore) StartSession(ctx context.Context) (repositories.Session, error) {
	s.sessions++
	if s.errSession != nil {
		return nil, s.errSession
	}
	return s.session, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status models.StatusResult) (int64, error) {
	if s.errUpdate != nil {
		return 0, s.errUpdate
	}
	if s.updates == nil {
		s.updates = make(map[string]models.StatusResult)
	}
	s.updates[id] = status
	return s.matched, nil
}

func (s *fakeStore) FindCorrelated(ctx context.Context, filter models.CorrelationFilter) ([]models.Movement, error) {
	s.filters = append(s.filters, filter)
	if s.errFind != nil {
		return nil, s.errFind
	}
	return s.found, nil
}

type fakeTracker struct {
	mu    sync.Mutex
	err   error
	steps map[string]models.StatusResult
}

func (t *fakeTracker) SetStepStatus(ctx context.Context, transactionID, step string, status models.StatusResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.steps == nil {
		t.steps = make(map[string]models.StatusResult)
	}
	t.steps[transactionID+"/"+step] = status
	return t.err
}

func (t *fakeTracker) get(transactionID, step string) (models.StatusResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.steps[transactionID+"/"+step]
	return status, ok
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"financial-movement/internal/models"
)

const t1Payload = `{"id":"t1","credit_card_number":"1111","location":"NYC","transaction_datetime":"2024-01-01T12:00:00Z","amount":100,"destination":"merchantA","type":"purchase"}`

func t1Command() models.TransactionCommand {
	return models.TransactionCommand{
		ID:                  "t1",
		CreditCardNumber:    "1111",
		Amount:              100,
		Destination:         "merchantA",
		TransactionDatetime: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		Location:            "NYC",
		Type:                "purchase",
	}
}

func TestRecorder_Handle(t *testing.T) {
	errBoom := errors.New("boom")

	type want struct {
		status    models.StatusResult // empty: no failure event
		success   bool
		committed bool
		aborted   bool
		ended     bool
		err       bool
		untracked bool
	}

	tests := []struct {
		name     string
		payload  string
		store    *fakeStore
		failures map[string]error
		want     want
	}{
		{
			name:    "success: writes, publishes, commits and ends",
			payload: t1Payload,
			store:   &fakeStore{session: &fakeSession{}},
			want:    want{success: true, committed: true, ended: true},
		},
		{
			name:    "session cannot be started",
			payload: t1Payload,
			store:   &fakeStore{errSession: errBoom},
			want:    want{status: models.StatusFailed},
		},
		{
			name:    "transaction cannot be started",
			payload: t1Payload,
			store:   &fakeStore{session: &fakeSession{errStart: errBoom}},
			want:    want{status: models.StatusFailed, ended: true},
		},
		{
			name:    "write fails: aborted, nothing published",
			payload: t1Payload,
			store:   &fakeStore{session: &fakeSession{errCreate: errBoom}},
			want:    want{status: models.StatusFailed, aborted: true, ended: true},
		},
		{
			name:     "success publish fails: write rolled back",
			payload:  t1Payload,
			store:    &fakeStore{session: &fakeSession{}},
			failures: map[string]error{models.TopicSuccess: errBoom},
			want:     want{status: models.StatusFailed, aborted: true, ended: true},
		},
		{
			name:    "write fails and abort fails: escalated",
			payload: t1Payload,
			store:   &fakeStore{session: &fakeSession{errCreate: errBoom, errAbort: errBoom}},
			want:    want{status: models.StatusFailedInconsistence, ended: true},
		},
		{
			name:    "commit fails after publish: inconsistent, session released",
			payload: t1Payload,
			store:   &fakeStore{session: &fakeSession{errCommit: errBoom}},
			want:    want{status: models.StatusFailedInconsistence, success: true, ended: true},
		},
		{
			name:    "session end fails after commit: outcome stays OK",
			payload: t1Payload,
			store:   &fakeStore{session: &fakeSession{errEnd: errBoom}},
			want:    want{success: true, committed: true, ended: true, err: true},
		},
		{
			name:    "payload is not JSON",
			payload: `{"id":`,
			store:   &fakeStore{session: &fakeSession{}},
			want:    want{status: models.StatusFailed, untracked: true},
		},
		{
			name:    "required field missing",
			payload: `{"id":"t1","credit_card_number":"1111","amount":100}`,
			store:   &fakeStore{session: &fakeSession{}},
			want:    want{status: models.StatusFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{failures: tt.failures}
			tracker := &fakeTracker{}
			r := NewRecorder(tt.store, pub, NewNotifier(pub, time.Second), tracker)

			err := r.Handle(context.Background(), []byte(tt.payload))
			if (err != nil) != tt.want.err {
				t.Fatalf("Handle() error = %v, want error %v", err, tt.want.err)
			}

			event, failed := pub.failure()
			if tt.want.status == "" {
				if failed {
					t.Fatalf("unexpected failure event: %+v", event)
				}
			} else {
				if !failed {
					t.Fatalf("expected one failure event, got %d", len(pub.on(models.TopicEndTransactions)))
				}
				if event.Result != tt.want.status {
					t.Fatalf("failure status = %s, want %s", event.Result, tt.want.status)
				}
			}

			if got := len(pub.on(models.TopicSuccess)) == 1; got != tt.want.success {
				t.Fatalf("success published = %v, want %v", got, tt.want.success)
			}

			wantTracked := tt.want.status
			if wantTracked == "" {
				wantTracked = models.StatusOK
			}
			if got, ok := tracker.get("t1", models.StepRecord); tt.want.untracked {
				if ok {
					t.Fatalf("unexpected tracked status %q", got)
				}
			} else if !ok || got != wantTracked {
				t.Fatalf("tracked status = %q (%v), want %q", got, ok, wantTracked)
			}

			s := tt.store.session
			if s == nil {
				return
			}
			if s.committed != tt.want.committed {
				t.Fatalf("committed = %v, want %v", s.committed, tt.want.committed)
			}
			if s.aborted != tt.want.aborted {
				t.Fatalf("aborted = %v, want %v", s.aborted, tt.want.aborted)
			}
			if s.ended != tt.want.ended {
				t.Fatalf("ended = %v, want %v", s.ended, tt.want.ended)
			}
		})
	}
}

func TestRecorder_Handle_PublishesBeforeCommit(t *testing.T) {
	log := &callLog{}
	session := &fakeSession{log: log}
	pub := &fakePublisher{log: log}
	r := NewRecorder(&fakeStore{session: session}, pub, NewNotifier(pub, time.Second), nil)

	if err := r.Handle(context.Background(), []byte(t1Payload)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	create, publish, commit := log.index("create"), log.index("publish:"+models.TopicSuccess), log.index("commit")
	if create < 0 || publish < 0 || commit < 0 {
		t.Fatalf("missing calls: %v", log.calls)
	}
	if !(create < publish && publish < commit) {
		t.Fatalf("call order = %v, want create, publish, commit", log.calls)
	}
}

func TestRecorder_Handle_SuccessEventIsTheInboundCommand(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "example command", payload: t1Payload},
		{
			name:    "millisecond timestamp and undeclared field",
			payload: `{"id":"t1","credit_card_number":"1111","location":"NYC","transaction_datetime":"2024-01-01T12:00:00.000Z","amount":100.50,"destination":"merchantA","type":"purchase","user_id":"u7"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{}
			pub := &fakePublisher{}
			r := NewRecorder(&fakeStore{session: session}, pub, NewNotifier(pub, time.Second), nil)

			if err := r.Handle(context.Background(), []byte(tt.payload)); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			msgs := pub.on(models.TopicSuccess)
			if len(msgs) != 1 {
				t.Fatalf("expected one success message, got %d", len(msgs))
			}
			if msgs[0].key != "t1" {
				t.Fatalf("key = %q, want t1", msgs[0].key)
			}
			raw, ok := msgs[0].value.(json.RawMessage)
			if !ok || string(raw) != tt.payload {
				t.Fatalf("success payload = %#v, want %s", msgs[0].value, tt.payload)
			}

			if len(session.created) != 1 {
				t.Fatalf("expected one movement, got %d", len(session.created))
			}
			if session.created[0].ID != "t1" || session.created[0].Status != models.StatusOK {
				t.Fatalf("movement = %+v", session.created[0])
			}
		})
	}
}

func TestRecorder_Handle_StoresDecodedMovement(t *testing.T) {
	session := &fakeSession{}
	pub := &fakePublisher{}
	r := NewRecorder(&fakeStore{session: session}, pub, NewNotifier(pub, time.Second), nil)

	if err := r.Handle(context.Background(), []byte(t1Payload)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(session.created) != 1 {
		t.Fatalf("expected one movement, got %d", len(session.created))
	}
	if want := models.NewMovement(t1Command()); session.created[0] != want {
		t.Fatalf("movement = %+v, want %+v", session.created[0], want)
	}
}

func TestRecorder_Handle_MalformedPayloadIsReported(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantRaw bool
	}{
		{name: "invalid JSON is reported as text", payload: `not json`},
		{name: "invalid command is reported as JSON", payload: `{"id":"t9"}`, wantRaw: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{session: &fakeSession{}}
			pub := &fakePublisher{}
			r := NewRecorder(store, pub, NewNotifier(pub, time.Second), nil)

			if err := r.Handle(context.Background(), []byte(tt.payload)); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if store.sessions != 0 {
				t.Fatalf("store was touched for a malformed payload")
			}

			event, ok := pub.failure()
			if !ok {
				t.Fatalf("expected a failure event")
			}
			if event.Result != models.StatusFailed {
				t.Fatalf("status = %s, want FAILED", event.Result)
			}
			if _, isRaw := event.Transaction.(json.RawMessage); isRaw != tt.wantRaw {
				t.Fatalf("transaction = %#v, want raw JSON %v", event.Transaction, tt.wantRaw)
			}
			if !strings.Contains(event.Error, models.ErrMalformedPayload.Error()) {
				t.Fatalf("error = %q, want it to mention %q", event.Error, models.ErrMalformedPayload)
			}
		})
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"

	"github.com/go-playground/validator"
)

// Recorder persists the movement of a start-transaction command and
// announces it on the success topic.
//
// The success event is published before the commit and a failed publish
// rolls the write back. A failed commit can no longer be undone and is
// reported as FAILED_INCONSISTENCE.
type Recorder struct {
	store     repositories.MovementStore
	publisher Publisher
	notifier  *Notifier
	tracker   StateTracker
	validate  *validator.Validate
}

func NewRecorder(
	store repositories.MovementStore,
	publisher Publisher,
	notifier *Notifier,
	tracker StateTracker,
) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		tracker:   orNoopTracker(tracker),
		validate:  validator.New(),
	}
}

// Handle runs one recording step. Every failure is reported through the
// notifier; the returned error only carries a session that could not be
// released after the outcome was decided.
func (r *Recorder) Handle(ctx context.Context, payload []byte) error {
	cmd, err := parseCommand(r.validate, payload)
	if err != nil {
		var perr *ParseError
		errors.As(err, &perr)
		log.Printf("Recorder: rejected payload: %v", err)
		status := r.notifier.NotifyMalformed(ctx, perr, cmd.ID)
		trackStep(ctx, r.tracker, cmd.ID, models.StepRecord, status)
		return nil
	}

	log.Printf("Recorder: transaction %s: start", cmd.ID)

	session, err := r.store.StartSession(ctx)
	if err != nil {
		r.fail(ctx, nil, cmd, "failed to start session", err, models.StatusFailed)
		return nil
	}

	if err := session.StartTransaction(ctx); err != nil {
		r.fail(ctx, session, cmd, "failed to start transaction", err, models.StatusFailed)
		return nil
	}

	if err := session.Create(ctx, models.NewMovement(cmd)); err != nil {
		r.fail(ctx, session, cmd, "failed to save movement", err, models.StatusFailed)
		return nil
	}

	// The success event carries the inbound command byte for byte
	if err := r.publisher.Publish(ctx, models.TopicSuccess, cmd.ID, json.RawMessage(payload)); err != nil {
		r.fail(ctx, session, cmd, "failed to send success message", err, models.StatusFailed)
		return nil
	}

	status := models.StatusOK
	if err := session.CommitTransaction(ctx); err != nil {
		status = r.fail(ctx, session, cmd, "failed to commit transaction", err, models.StatusFailedInconsistence)
	}

	// Ending after a failed commit is a no-op: the notifier already did it.
	var endErr error
	if err := session.EndSession(ctx); err != nil {
		log.Printf("Recorder: transaction %s: failed to end session: %v", cmd.ID, err)
		endErr = fmt.Errorf("transaction %s: failed to end session: %w", cmd.ID, err)
	}

	if status == models.StatusOK {
		log.Printf("Recorder: transaction %s: finished OK", cmd.ID)
		trackStep(ctx, r.tracker, cmd.ID, models.StepRecord, status)
	}
	return endErr
}

func (r *Recorder) fail(
	ctx context.Context,
	session repositories.Session,
	cmd models.TransactionCommand,
	what string,
	err error,
	status models.StatusResult,
) models.StatusResult {
	log.Printf("Recorder: transaction %s: %s: %v", cmd.ID, what, err)
	reported := r.notifier.Notify(ctx, session, cmd, err.Error(), status)
	trackStep(ctx, r.tracker, cmd.ID, models.StepRecord, reported)
	return reported
}

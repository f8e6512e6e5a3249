package services

import (
	"context"
	"errors"
	"log"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"

	"github.com/go-playground/validator"
)

// Compensator marks a recorded movement as reversed. It replies only on
// failure.
type Compensator struct {
	store    repositories.MovementStore
	notifier *Notifier
	tracker  StateTracker
	faults   FaultInjector
	validate *validator.Validate
}

func NewCompensator(
	store repositories.MovementStore,
	notifier *Notifier,
	tracker StateTracker,
	faults FaultInjector,
) *Compensator {
	return &Compensator{
		store:    store,
		notifier: notifier,
		tracker:  orNoopTracker(tracker),
		faults:   orNoFaults(faults),
		validate: validator.New(),
	}
}

func (c *Compensator) Handle(ctx context.Context, payload []byte) error {
	cmd, err := parseCommand(c.validate, payload, "ID")
	if err != nil {
		var perr *ParseError
		errors.As(err, &perr)
		log.Printf("Compensator: rejected payload: %v", err)
		status := c.notifier.NotifyMalformed(ctx, perr, cmd.ID)
		trackStep(ctx, c.tracker, cmd.ID, models.StepCompensate, status)
		return nil
	}

	log.Printf("Compensator: transaction %s: start", cmd.ID)

	if err := c.faults.CompensationFault(cmd); err != nil {
		c.fail(ctx, cmd, err)
		return nil
	}

	matched, err := c.store.UpdateStatus(ctx, cmd.ID, models.StatusCompensation)
	if err != nil {
		c.fail(ctx, cmd, err)
		return nil
	}

	// The recording may still be in flight; the compensation is not retried.
	if matched == 0 {
		log.Printf("Compensator: transaction %s: no movement matched, nothing to compensate", cmd.ID)
		trackStep(ctx, c.tracker, cmd.ID, models.StepCompensate, models.StatusNotFound)
		return nil
	}

	log.Printf("Compensator: transaction %s: finished OK", cmd.ID)
	trackStep(ctx, c.tracker, cmd.ID, models.StepCompensate, models.StatusCompensation)
	return nil
}

func (c *Compensator) fail(ctx context.Context, cmd models.TransactionCommand, err error) {
	log.Printf("Compensator: transaction %s: failed to compensate: %v", cmd.ID, err)
	status := c.notifier.Notify(ctx, nil, cmd, err.Error(), models.StatusFailedInconsistence)
	trackStep(ctx, c.tracker, cmd.ID, models.StepCompensate, status)
}

package services

import (
	"context"
	"errors"
	"log"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"

	"github.com/go-playground/validator"
)

const findMovementsFailed = "failed to find movements"

// Correlator answers movement-history requests with the movements of the
// same card at other locations within the correlation window.
//
// A failed lookup is answered on the reply topic, not through the
// notifier: the requester waits on the reply topic either way.
type Correlator struct {
	store     repositories.MovementStore
	publisher Publisher
	notifier  *Notifier
	tracker   StateTracker
	faults    FaultInjector
	validate  *validator.Validate
}

func NewCorrelator(
	store repositories.MovementStore,
	publisher Publisher,
	notifier *Notifier,
	tracker StateTracker,
	faults FaultInjector,
) *Correlator {
	return &Correlator{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		tracker:   orNoopTracker(tracker),
		faults:    orNoFaults(faults),
		validate:  validator.New(),
	}
}

func (c *Correlator) Handle(ctx context.Context, payload []byte) error {
	cmd, err := parseCommand(c.validate, payload, "ID", "CreditCardNumber", "Location", "TransactionDatetime")
	if err != nil {
		var perr *ParseError
		errors.As(err, &perr)
		log.Printf("Correlator: rejected payload: %v", err)
		status := c.notifier.NotifyMalformed(ctx, perr, cmd.ID)
		trackStep(ctx, c.tracker, cmd.ID, models.StepCorrelate, status)
		return nil
	}

	log.Printf("Correlator: transaction %s: start", cmd.ID)

	movements, err := c.store.FindCorrelated(ctx, models.NewCorrelationFilter(cmd))
	message := findMovementsFailed
	if err == nil {
		if ferr := c.faults.CorrelationFault(cmd); ferr != nil {
			err, message = ferr, ferr.Error()
		}
	}

	var reply any
	status := models.StatusOK
	if err != nil {
		log.Printf("Correlator: transaction %s: replying with failure: %v", cmd.ID, err)
		status = models.StatusFailed
		reply = models.FailureEvent{
			Result:      status,
			Transaction: cmd,
			Error:       message,
		}
	} else {
		reply = models.MovementsReply{
			Result:      status,
			Transaction: cmd,
			Movements:   movements,
		}
	}

	if err := c.publisher.Publish(ctx, models.TopicMovementsReplay, cmd.ID, reply); err != nil {
		log.Printf("Correlator: transaction %s: failed to send reply: %v", cmd.ID, err)
		status = c.notifier.Notify(ctx, nil, cmd, err.Error(), models.StatusFailed)
		trackStep(ctx, c.tracker, cmd.ID, models.StepCorrelate, status)
		return nil
	}

	log.Printf("Correlator: transaction %s: reply sent (%s)", cmd.ID, status)
	trackStep(ctx, c.tracker, cmd.ID, models.StepCorrelate, status)
	return nil
}

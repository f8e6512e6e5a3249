package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"financial-movement/internal/models"
	"financial-movement/internal/repositories"
)

// Notifier is the single exit for failed saga steps. It unwinds whatever
// store session the step still holds and publishes the terminal failure
// event. It never returns an error: there is nothing left to escalate to.
type Notifier struct {
	publisher      Publisher
	cleanupTimeout time.Duration
}

func NewNotifier(publisher Publisher, cleanupTimeout time.Duration) *Notifier {
	return &Notifier{
		publisher:      publisher,
		cleanupTimeout: cleanupTimeout,
	}
}

// Notify aborts the open transaction of session, if any, ends the session
// and publishes the failure of cmd. A failed abort escalates the status to
// FAILED_INCONSISTENCE. session may be nil. Notify returns the status that
// was reported.
func (n *Notifier) Notify(
	ctx context.Context,
	session repositories.Session,
	cmd models.TransactionCommand,
	message string,
	status models.StatusResult,
) models.StatusResult {
	ctx, cancel := n.cleanupContext(ctx)
	defer cancel()

	if session != nil {
		if session.InTransaction() {
			if err := session.AbortTransaction(ctx); err != nil {
				log.Printf("Notifier: transaction %s: failed to abort transaction: %v", cmd.ID, err)
				status = models.StatusFailedInconsistence
			}
		}
		if err := session.EndSession(ctx); err != nil {
			log.Printf("Notifier: transaction %s: failed to end session: %v", cmd.ID, err)
		}
	}

	n.publish(ctx, cmd.ID, models.FailureEvent{
		Result:      status,
		Transaction: cmd,
		Error:       message,
	})

	return status
}

// NotifyMalformed reports a payload that never became a command. Nothing
// was written, so the status is always FAILED.
func (n *Notifier) NotifyMalformed(ctx context.Context, perr *ParseError, transactionID string) models.StatusResult {
	ctx, cancel := n.cleanupContext(ctx)
	defer cancel()

	var transaction any = string(perr.Payload)
	if json.Valid(perr.Payload) {
		transaction = json.RawMessage(perr.Payload)
	}

	n.publish(ctx, transactionID, models.FailureEvent{
		Result:      models.StatusFailed,
		Transaction: transaction,
		Error:       perr.Error(),
	})

	return models.StatusFailed
}

func (n *Notifier) publish(ctx context.Context, transactionID string, event models.FailureEvent) {
	log.Printf("Notifier: transaction %s: operation failed (%s), sending error message", transactionID, event.Result)

	if err := n.publisher.Publish(ctx, models.TopicEndTransactions, transactionID, event); err != nil {
		log.Printf("Notifier: transaction %s: failed to send error message: %v", transactionID, err)
		return
	}

	log.Printf("Notifier: transaction %s: error message sent", transactionID)
}

// cleanupContext keeps the values of ctx and drops its deadline, so cleanup
// still runs after the handler timed out.
func (n *Notifier) cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if n.cleanupTimeout > 0 {
		return context.WithTimeout(ctx, n.cleanupTimeout)
	}
	return ctx, func() {}
}

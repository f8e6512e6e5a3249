package models

import (
	"errors"
	"time"
)

// Database model
type Movement struct {
	ID                  string       `db:"id" json:"id"`
	CreditCardNumber    string       `db:"credit_card_number" json:"credit_card_number"`
	Amount              float64      `db:"amount" json:"amount"`
	Destination         string       `db:"destination" json:"destination"`
	TransactionDatetime time.Time    `db:"transaction_datetime" json:"transaction_datetime"`
	Location            string       `db:"location" json:"location"`
	Type                string       `db:"type" json:"type"`
	Status              StatusResult `db:"status" json:"status"` // OK, COMPENSATION
}

// TransactionCommand is the payload of every inbound topic. The topic, not
// the shape, decides what the command means.
type TransactionCommand struct {
	ID                  string    `json:"id" validate:"required"`
	CreditCardNumber    string    `json:"credit_card_number" validate:"required"`
	Amount              float64   `json:"amount"`
	Destination         string    `json:"destination" validate:"required"`
	TransactionDatetime time.Time `json:"transaction_datetime" validate:"required"`
	Location            string    `json:"location" validate:"required"`
	Type                string    `json:"type" validate:"required"`
}

// NewMovement builds the record persisted for a start-transaction command.
func NewMovement(cmd TransactionCommand) Movement {
	return Movement{
		ID:                  cmd.ID,
		CreditCardNumber:    cmd.CreditCardNumber,
		Amount:              cmd.Amount,
		Destination:         cmd.Destination,
		TransactionDatetime: cmd.TransactionDatetime,
		Location:            cmd.Location,
		Type:                cmd.Type,
		Status:              StatusOK,
	}
}

// StatusResult is both the persisted movement status and the result code
// reported downstream.
type StatusResult string

const (
	StatusOK                  StatusResult = "OK"
	StatusFailed              StatusResult = "FAILED"
	StatusFailedInconsistence StatusResult = "FAILED_INCONSISTENCE"
	StatusCompensation        StatusResult = "COMPENSATION"

	// StatusNotFound is only tracked, never persisted or sent: a compensation
	// that matched no movement.
	StatusNotFound StatusResult = "NOT_FOUND"
)

// MovementsReply answers a movement-history request.
type MovementsReply struct {
	Result      StatusResult       `json:"result"`
	Transaction TransactionCommand `json:"transaction"`
	Movements   []Movement         `json:"movements"`
}

// FailureEvent is the terminal failure payload. Transaction holds the
// command, or the raw payload when the command could not be parsed.
type FailureEvent struct {
	Result      StatusResult `json:"result"`
	Transaction any          `json:"transaction"`
	Error       string       `json:"error"`
}

// Topic constants
const (
	TopicStartTransactions = "start-transactions-credit-card"
	TopicCompensation      = "fmsCompensation"
	TopicMovements         = "fmsMovements"

	TopicSuccess         = "fmsSuccess"
	TopicMovementsReplay = "fmsMovementsReplay"
	TopicEndTransactions = "endTransactionsCreditCard"
)

// InboundTopics lists the topics the participant subscribes to.
var InboundTopics = []string{TopicStartTransactions, TopicCompensation, TopicMovements}

// Saga step names
const (
	StepRecord     = "record"
	StepCompensate = "compensate"
	StepCorrelate  = "correlate"
)

var ErrMalformedPayload = errors.New("malformed payload")

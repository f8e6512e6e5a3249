package services

import (
	"errors"
	"fmt"

	"financial-movement/internal/models"
)

var ErrInjectedFault = errors.New("injected fault")

// FaultInjector forces the failure paths of the compensation and
// correlation steps so downstream services can test their recovery flows.
type FaultInjector interface {
	CompensationFault(cmd models.TransactionCommand) error
	CorrelationFault(cmd models.TransactionCommand) error
}

// CardFaults fires for commands carrying one of the configured card
// numbers. The zero value never fires.
type CardFaults struct {
	CompensationCard string
	CorrelationCard  string
}

func (f CardFaults) CompensationFault(cmd models.TransactionCommand) error {
	if f.CompensationCard != "" && cmd.CreditCardNumber == f.CompensationCard {
		return fmt.Errorf("%w: forced compensation failure", ErrInjectedFault)
	}
	return nil
}

func (f CardFaults) CorrelationFault(cmd models.TransactionCommand) error {
	if f.CorrelationCard != "" && cmd.CreditCardNumber == f.CorrelationCard {
		return fmt.Errorf("%w: forced correlation failure", ErrInjectedFault)
	}
	return nil
}

func orNoFaults(f FaultInjector) FaultInjector {
	if f == nil {
		return CardFaults{}
	}
	return f
}

package models

import "time"

// CorrelationWindow is how far back same-card activity is considered.
const CorrelationWindow = 6 * time.Hour

// CorrelationFilter selects the movements that may signal a card used in two
// places within the window.
type CorrelationFilter struct {
	CreditCardNumber string
	ExcludeLocation  string
	After            time.Time
}

func NewCorrelationFilter(cmd TransactionCommand) CorrelationFilter {
	return CorrelationFilter{
		CreditCardNumber: cmd.CreditCardNumber,
		ExcludeLocation:  cmd.Location,
		After:            cmd.TransactionDatetime.Add(-CorrelationWindow),
	}
}

// Matches reports whether m belongs to the correlated history. The lower
// bound is exclusive and compensated movements never match.
func (f CorrelationFilter) Matches(m Movement) bool {
	return m.Status != StatusCompensation &&
		m.TransactionDatetime.After(f.After) &&
		m.Location != f.ExcludeLocation &&
		m.CreditCardNumber == f.CreditCardNumber
}

package models

import "github.com/shopspring/decimal"

// Expense is a shared cost inside a travel.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	TravelID string

	// PayerID is the member who paid for the expense.
	PayerID string

	Description string

	// Amount is the paid amount in Currency.
	Amount decimal.Decimal

	// Currency is the ISO-4217 code of Amount.
	Currency string

	// ConvertedAmount is Amount normalized into the travel's base currency,
	// rounded to two decimal places.
	ConvertedAmount decimal.Decimal

	// Shares holds one entry per participant. Share amounts always sum to
	// ConvertedAmount.
	Shares []Share

	CreatedAt int64
	UpdatedAt int64
}

// Share is one participant's part of an expense, in base currency.
type Share struct {
	MemberID string
	Amount   decimal.Decimal
}

// ParticipantIDs returns the IDs of every participant of the expense.
func (e *Expense) ParticipantIDs() []string {
	ids := make([]string, len(e.Shares))
	for i, s := range e.Shares {
		ids[i] = s.MemberID
	}
	return ids
}

// Ledger is a consistent snapshot of a travel and its expenses.
type Ledger struct {
	Travel   *Travel
	Expenses []*Expense
}

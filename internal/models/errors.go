package models

import "errors"

// Sentinel errors shared by storage, engine, and transport.
var (
	// Lookup errors
	ErrTravelNotFound     = errors.New("travel not found")
	ErrExpenseNotFound    = errors.New("expense not found")
	ErrSettlementNotFound = errors.New("settlement not found")

	// Authorization errors
	ErrNotMember     = errors.New("requester is not a member of this travel")
	ErrAlreadyMember = errors.New("member already belongs to this travel")
	ErrNotOwner      = errors.New("only the travel owner can do this")

	// Invalid operations
	ErrNothingToSettle = errors.New("nothing to settle")
	ErrInvalidTravel   = errors.New("invalid travel")
	ErrInvalidExpense  = errors.New("invalid expense")
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrInvalidCurrency = errors.New("invalid currency code")

	// Upstream failures
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

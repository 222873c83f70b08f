package models

import "github.com/shopspring/decimal"

// SettlementStatus is the lifecycle state of a settlement.
type SettlementStatus string

const (
	StatusPending   SettlementStatus = "pending"
	StatusCompleted SettlementStatus = "completed"
)

// Settlement is a transfer of Amount from one member to another.
//
// Recommended settlements are computed per request and never stored; saved
// settlements live in the settlement store and only ever change Status and
// their timestamps after creation.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// TravelID is the travel this settlement belongs to.
	TravelID string

	// FromMemberID is the debtor who pays.
	FromMemberID string

	// ToMemberID is the creditor who receives.
	ToMemberID string

	// FromName and ToName are the members' display names, resolved from the
	// membership list when a summary is built. They are not stored.
	FromName string
	ToName   string

	// Amount is the transfer amount in base currency, always positive.
	Amount decimal.Decimal

	Status SettlementStatus

	// CreatedAt is the Unix timestamp when the settlement was saved.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last status change.
	UpdatedAt int64

	// CompletedAt is the Unix timestamp of completion, zero while pending.
	CompletedAt int64
}

// Transfer is a solver output: who pays whom and how much.
type Transfer struct {
	FromMemberID string
	ToMemberID   string
	Amount       decimal.Decimal
}

// Balance is a member's net position: paid minus owed. Positive means the
// member is owed money.
type Balance struct {
	MemberID string
	Paid     decimal.Decimal
	Owed     decimal.Decimal
	Amount   decimal.Decimal
}

package models

import "github.com/shopspring/decimal"

// MemberBalance is a member's net position with its display name resolved.
type MemberBalance struct {
	MemberID string
	Name     *string
	Balance  decimal.Decimal
}

// Summary is the settlement view of a travel: current balances, the saved
// plan, and a freshly recommended plan computed from the same balances.
type Summary struct {
	TravelID     string
	BaseCurrency string
	Balances     []MemberBalance
	Saved        []*Settlement
	Recommended  []*Settlement
}

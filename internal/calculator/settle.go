package calculator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// Epsilon is the tolerance under which a balance counts as settled.
var Epsilon = decimal.New(1, -2)

type party struct {
	memberID  string
	remaining decimal.Decimal
}

// Settle returns transfers that drive every balance to within Epsilon of zero.
//
// Creditors (balance > Epsilon) and debtors (balance < -Epsilon) are sorted by
// magnitude, largest first, with ties broken by member ID. Two pointers then
// match the current debtor with the current creditor, moving min(both) each
// step and advancing whichever side drops to Epsilon or below. The result has
// at most #debtors + #creditors - 1 transfers. Balances that do not sum to
// zero leave a residue on the side that is not exhausted.
func Settle(balances []models.Balance) []models.Transfer {
	var creditors, debtors []party
	for _, b := range balances {
		switch {
		case b.Amount.GreaterThan(Epsilon):
			creditors = append(creditors, party{memberID: b.MemberID, remaining: b.Amount})
		case b.Amount.LessThan(Epsilon.Neg()):
			debtors = append(debtors, party{memberID: b.MemberID, remaining: b.Amount.Neg()})
		}
	}

	byMagnitude := func(a, b party) int {
		if c := b.remaining.Cmp(a.remaining); c != 0 {
			return c
		}
		return cmp.Compare(a.memberID, b.memberID)
	}
	slices.SortFunc(creditors, byMagnitude)
	slices.SortFunc(debtors, byMagnitude)

	transfers := []models.Transfer{}
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		debtor := &debtors[i]
		creditor := &creditors[j]

		amount := decimal.Min(debtor.remaining, creditor.remaining).Round(2)
		if amount.IsPositive() {
			transfers = append(transfers, models.Transfer{
				FromMemberID: debtor.memberID,
				ToMemberID:   creditor.memberID,
				Amount:       amount,
			})
		}

		debtor.remaining = debtor.remaining.Sub(amount)
		creditor.remaining = creditor.remaining.Sub(amount)

		if debtor.remaining.LessThanOrEqual(Epsilon) {
			i++
		}
		if creditor.remaining.LessThanOrEqual(Epsilon) {
			j++
		}
	}
	return transfers
}

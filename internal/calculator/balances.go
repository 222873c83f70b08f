package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// ComputeBalances aggregates who paid what and who owes what across all
// expenses of a travel.
//
// Algorithm:
//   - For each expense: payer contributed +converted amount, each participant owes their share
//   - Aggregate: balance = paid - owed, rounded to two places
//
// The result has one entry per member in membership order. Members without
// any activity are present with a zero balance. Payers or participants that
// are not in members are ignored.
func ComputeBalances(members []models.Member, expenses []*models.Expense) []models.Balance {
	index := make(map[string]int, len(members))
	balances := make([]models.Balance, len(members))
	for i, m := range members {
		index[m.ID] = i
		balances[i] = models.Balance{
			MemberID: m.ID,
			Paid:     decimal.Zero,
			Owed:     decimal.Zero,
			Amount:   decimal.Zero,
		}
	}

	for _, expense := range expenses {
		if i, ok := index[expense.PayerID]; ok {
			balances[i].Paid = balances[i].Paid.Add(expense.ConvertedAmount)
		}
		for _, share := range expense.Shares {
			if i, ok := index[share.MemberID]; ok {
				balances[i].Owed = balances[i].Owed.Add(share.Amount)
			}
		}
	}

	for i := range balances {
		balances[i].Paid = balances[i].Paid.Round(2)
		balances[i].Owed = balances[i].Owed.Round(2)
		balances[i].Amount = balances[i].Paid.Sub(balances[i].Owed)
	}
	return balances
}

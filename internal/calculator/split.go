package calculator

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// cent is the smallest monetary unit after rounding to two places.
var cent = decimal.New(1, -2)

// SplitEvenly divides total across participants in whole cents.
//
// Every participant gets total / n rounded down to the cent, and the leftover
// cents go one each to the first participants in ID order, so the shares
// always sum to total exactly.
func SplitEvenly(total decimal.Decimal, participants []string) ([]models.Share, error) {
	if len(participants) == 0 {
		return nil, fmt.Errorf("must have at least one participant")
	}
	if !total.IsPositive() {
		return nil, fmt.Errorf("total must be positive")
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if p == "" {
			return nil, fmt.Errorf("participant ID cannot be empty")
		}
		if seen[p] {
			return nil, fmt.Errorf("duplicate participant %q", p)
		}
		seen[p] = true
	}

	total = total.Round(2)
	n := decimal.NewFromInt(int64(len(participants)))
	base := total.Div(n).RoundFloor(2)
	leftover := total.Sub(base.Mul(n)).Div(cent).IntPart()

	ordered := slices.Clone(participants)
	slices.Sort(ordered)
	extra := make(map[string]bool, leftover)
	for i := int64(0); i < leftover; i++ {
		extra[ordered[i]] = true
	}

	shares := make([]models.Share, len(participants))
	for i, p := range participants {
		amount := base
		if extra[p] {
			amount = amount.Add(cent)
		}
		shares[i] = models.Share{MemberID: p, Amount: amount}
	}
	return shares, nil
}

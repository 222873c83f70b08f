// Package currency normalizes expense amounts into a travel's base currency.
package currency

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// RateProvider looks up the exchange rate for converting one unit of from
// into to.
type RateProvider interface {
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// Normalizer converts amounts between currencies using a RateProvider.
type Normalizer struct {
	rates RateProvider
}

// NewNormalizer creates a Normalizer backed by the given provider.
func NewNormalizer(rates RateProvider) *Normalizer {
	return &Normalizer{rates: rates}
}

// Convert returns amount expressed in to, rounded to two decimal places.
// Same-currency conversions never reach the provider.
func (n *Normalizer) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, models.ErrInvalidAmount
	}
	from, err := Normalize(from)
	if err != nil {
		return decimal.Zero, err
	}
	to, err = Normalize(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}

	rate, err := n.rates.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: %v", models.ErrRateUnavailable, from, to, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s->%s: non-positive rate %s", models.ErrRateUnavailable, from, to, rate)
	}

	return amount.Mul(rate).Round(2), nil
}

// Normalize upper-cases and validates a three-letter currency code.
func Normalize(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidCurrency, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", models.ErrInvalidCurrency, code)
		}
	}
	return code, nil
}

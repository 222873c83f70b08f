package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rate returns the stored rate for from->to, falling back to the inverse of
// a stored to->from rate.
func (s *PGStore) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var raw string
	err := s.pool.QueryRow(ctx,
		"SELECT rate::text FROM exchange_rates WHERE from_currency = $1 AND to_currency = $2",
		from, to,
	).Scan(&raw)
	if err == nil {
		return parseDecimal(raw)
	}
	if !errNoRows(err) {
		return decimal.Zero, fmt.Errorf("failed to get rate: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"SELECT rate::text FROM exchange_rates WHERE from_currency = $1 AND to_currency = $2",
		to, from,
	).Scan(&raw)
	if errNoRows(err) {
		return decimal.Zero, fmt.Errorf("no rate for %s->%s", from, to)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get rate: %w", err)
	}

	inverse, err := parseDecimal(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if inverse.IsZero() {
		return decimal.Zero, fmt.Errorf("no rate for %s->%s", from, to)
	}
	return decimal.NewFromInt(1).DivRound(inverse, 8), nil
}

// SetRate inserts or replaces the rate for from->to.
func (s *PGStore) SetRate(ctx context.Context, from, to string, rate decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exchange_rates (from_currency, to_currency, rate, updated_at) VALUES ($1, $2, $3::numeric, $4)
		 ON CONFLICT (from_currency, to_currency) DO UPDATE SET rate = EXCLUDED.rate, updated_at = EXCLUDED.updated_at`,
		from, to, rate.String(), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set rate: %w", err)
	}
	return nil
}

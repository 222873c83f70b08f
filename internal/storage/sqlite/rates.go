package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Rate returns the stored rate for from->to, falling back to the inverse of
// a stored to->from rate.
func (s *SQLiteStore) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := s.db.QueryRowContext(ctx,
		"SELECT rate FROM exchange_rates WHERE from_currency = ? AND to_currency = ?",
		from, to,
	).Scan(&rate)
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to get rate: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT rate FROM exchange_rates WHERE from_currency = ? AND to_currency = ?",
		to, from,
	).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && rate.IsZero()) {
		return decimal.Zero, fmt.Errorf("no rate for %s->%s", from, to)
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get rate: %w", err)
	}
	return decimal.NewFromInt(1).DivRound(rate, 8), nil
}

// SetRate inserts or replaces the rate for from->to.
func (s *SQLiteStore) SetRate(ctx context.Context, from, to string, rate decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exchange_rates (from_currency, to_currency, rate, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (from_currency, to_currency) DO UPDATE SET rate = excluded.rate, updated_at = excluded.updated_at`,
		from, to, rate, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to set rate: %w", err)
	}
	return nil
}

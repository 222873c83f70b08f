package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/tripsettle/internal/models"
)

const selectExpense = `SELECT id, travel_id, payer_id, description, amount::text, currency, converted_amount::text, created_at, updated_at
	FROM expenses`

// CreateExpense persists a new expense and its shares.
func (s *PGStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}
	expense.UpdatedAt = expense.CreatedAt

	return s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO expenses (id, travel_id, payer_id, description, amount, currency, converted_amount, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7::numeric, $8, $9)`,
			expense.ID, expense.TravelID, expense.PayerID, expense.Description,
			expense.Amount.String(), expense.Currency, expense.ConvertedAmount.String(),
			expense.CreatedAt, expense.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		return insertShares(ctx, tx, expense)
	})
}

// GetExpense retrieves one expense of a travel, including its shares.
func (s *PGStore) GetExpense(ctx context.Context, travelID, expenseID string) (*models.Expense, error) {
	rows, err := s.pool.Query(ctx, selectExpense+" WHERE travel_id = $1 AND id = $2", travelID, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	expenses, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expenseID)
	}

	if err := loadShares(ctx, s.pool, travelID, expenses); err != nil {
		return nil, err
	}
	return expenses[0], nil
}

// UpdateExpense replaces an existing expense and its shares.
func (s *PGStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().Unix()

	return s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE expenses
			 SET payer_id = $1, description = $2, amount = $3::numeric, currency = $4, converted_amount = $5::numeric, updated_at = $6
			 WHERE travel_id = $7 AND id = $8`,
			expense.PayerID, expense.Description, expense.Amount.String(), expense.Currency,
			expense.ConvertedAmount.String(), expense.UpdatedAt,
			expense.TravelID, expense.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expense.ID)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM expense_shares WHERE expense_id = $1", expense.ID); err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		return insertShares(ctx, tx, expense)
	})
}

// DeleteExpense removes an expense; its shares cascade.
func (s *PGStore) DeleteExpense(ctx context.Context, travelID, expenseID string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM expenses WHERE travel_id = $1 AND id = $2", travelID, expenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expenseID)
	}
	return nil
}

// LoadLedger reads the travel and its expenses inside one read-only
// REPEATABLE READ transaction.
func (s *PGStore) LoadLedger(ctx context.Context, travelID string) (*models.Ledger, error) {
	var ledger *models.Ledger
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := s.withTx(ctx, opts, func(tx pgx.Tx) error {
		travel, err := getTravel(ctx, tx, travelID)
		if err != nil {
			return err
		}

		rows, err := tx.Query(ctx, selectExpense+" WHERE travel_id = $1 ORDER BY created_at, id", travelID)
		if err != nil {
			return fmt.Errorf("failed to list expenses: %w", err)
		}
		expenses, err := scanExpenses(rows)
		if err != nil {
			return err
		}
		if err := loadShares(ctx, tx, travelID, expenses); err != nil {
			return err
		}

		ledger = &models.Ledger{Travel: travel, Expenses: expenses}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ledger, nil
}

func scanExpenses(rows pgx.Rows) ([]*models.Expense, error) {
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		expense := &models.Expense{}
		var amount, converted string
		if err := rows.Scan(&expense.ID, &expense.TravelID, &expense.PayerID, &expense.Description,
			&amount, &expense.Currency, &converted, &expense.CreatedAt, &expense.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		var err error
		if expense.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if expense.ConvertedAmount, err = parseDecimal(converted); err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}

func loadShares(ctx context.Context, q querier, travelID string, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}
	byID := make(map[string]*models.Expense, len(expenses))
	for _, e := range expenses {
		byID[e.ID] = e
	}

	rows, err := q.Query(ctx,
		`SELECT es.expense_id, es.member_id, es.amount::text
		 FROM expense_shares es JOIN expenses e ON e.id = es.expense_id
		 WHERE e.travel_id = $1 ORDER BY es.expense_id, es.position`,
		travelID,
	)
	if err != nil {
		return fmt.Errorf("failed to list shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var expenseID, memberID, amount string
		if err := rows.Scan(&expenseID, &memberID, &amount); err != nil {
			return fmt.Errorf("failed to scan share: %w", err)
		}
		expense, ok := byID[expenseID]
		if !ok {
			continue
		}
		d, err := parseDecimal(amount)
		if err != nil {
			return err
		}
		expense.Shares = append(expense.Shares, models.Share{MemberID: memberID, Amount: d})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate shares: %w", err)
	}
	return nil
}

func insertShares(ctx context.Context, q querier, expense *models.Expense) error {
	for i, share := range expense.Shares {
		_, err := q.Exec(ctx,
			"INSERT INTO expense_shares (expense_id, member_id, amount, position) VALUES ($1, $2, $3::numeric, $4)",
			expense.ID, share.MemberID, share.Amount.String(), i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

// errNoRows reports whether err is pgx's no-rows sentinel.
func errNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

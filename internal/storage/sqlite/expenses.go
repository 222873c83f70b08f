package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsettle/internal/models"
)

// CreateExpense persists a new expense and its shares.
func (s *SQLiteStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if expense.CreatedAt == 0 {
		expense.CreatedAt = now
	}
	expense.UpdatedAt = expense.CreatedAt

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (id, travel_id, payer_id, description, amount, currency, converted_amount, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			expense.ID, expense.TravelID, expense.PayerID, expense.Description,
			expense.Amount, expense.Currency, expense.ConvertedAmount,
			expense.CreatedAt, expense.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		return insertShares(ctx, tx, expense)
	})
}

// GetExpense retrieves one expense of a travel, including its shares.
func (s *SQLiteStore) GetExpense(ctx context.Context, travelID, expenseID string) (*models.Expense, error) {
	expense := &models.Expense{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, travel_id, payer_id, description, amount, currency, converted_amount, created_at, updated_at
		 FROM expenses WHERE travel_id = ? AND id = ?`,
		travelID, expenseID,
	).Scan(&expense.ID, &expense.TravelID, &expense.PayerID, &expense.Description,
		&expense.Amount, &expense.Currency, &expense.ConvertedAmount,
		&expense.CreatedAt, &expense.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expenseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id, amount FROM expense_shares WHERE expense_id = ? ORDER BY position",
		expenseID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var share models.Share
		if err := rows.Scan(&share.MemberID, &share.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		expense.Shares = append(expense.Shares, share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	return expense, nil
}

// UpdateExpense replaces an existing expense and its shares.
func (s *SQLiteStore) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	expense.UpdatedAt = time.Now().Unix()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE expenses
			 SET payer_id = ?, description = ?, amount = ?, currency = ?, converted_amount = ?, updated_at = ?
			 WHERE travel_id = ? AND id = ?`,
			expense.PayerID, expense.Description, expense.Amount, expense.Currency,
			expense.ConvertedAmount, expense.UpdatedAt,
			expense.TravelID, expense.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("failed to check affected rows: %w", err)
		} else if n == 0 {
			return fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expense.ID)
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM expense_shares WHERE expense_id = ?", expense.ID); err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		return insertShares(ctx, tx, expense)
	})
}

// DeleteExpense removes an expense; its shares cascade.
func (s *SQLiteStore) DeleteExpense(ctx context.Context, travelID, expenseID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE travel_id = ? AND id = ?",
		travelID, expenseID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", models.ErrExpenseNotFound, expenseID)
	}
	return nil
}

// LoadLedger reads the travel, its members, and every expense with shares
// inside one transaction, so a concurrent expense write is either fully
// visible or not at all.
func (s *SQLiteStore) LoadLedger(ctx context.Context, travelID string) (*models.Ledger, error) {
	var ledger *models.Ledger
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		travel, err := getTravel(ctx, tx, travelID)
		if err != nil {
			return err
		}

		expenses, err := listExpenses(ctx, tx, travelID)
		if err != nil {
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

func listExpenses(ctx context.Context, q querier, travelID string) ([]*models.Expense, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, travel_id, payer_id, description, amount, currency, converted_amount, created_at, updated_at
		 FROM expenses WHERE travel_id = ? ORDER BY created_at, id`,
		travelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*models.Expense
	byID := make(map[string]*models.Expense)
	for rows.Next() {
		expense := &models.Expense{}
		if err := rows.Scan(&expense.ID, &expense.TravelID, &expense.PayerID, &expense.Description,
			&expense.Amount, &expense.Currency, &expense.ConvertedAmount,
			&expense.CreatedAt, &expense.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
		byID[expense.ID] = expense
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	rows.Close()

	shareRows, err := q.QueryContext(ctx,
		`SELECT es.expense_id, es.member_id, es.amount
		 FROM expense_shares es JOIN expenses e ON e.id = es.expense_id
		 WHERE e.travel_id = ? ORDER BY es.expense_id, es.position`,
		travelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	defer shareRows.Close()

	for shareRows.Next() {
		var expenseID string
		var share models.Share
		if err := shareRows.Scan(&expenseID, &share.MemberID, &share.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		if expense, ok := byID[expenseID]; ok {
			expense.Shares = append(expense.Shares, share)
		}
	}
	if err := shareRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shares: %w", err)
	}

	return expenses, nil
}

func insertShares(ctx context.Context, q querier, expense *models.Expense) error {
	for i, share := range expense.Shares {
		_, err := q.ExecContext(ctx,
			"INSERT INTO expense_shares (expense_id, member_id, amount, position) VALUES (?, ?, ?, ?)",
			expense.ID, share.MemberID, share.Amount, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

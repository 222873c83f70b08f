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

// ListSaved retrieves all saved settlements for a travel, oldest first.
func (s *SQLiteStore) ListSaved(ctx context.Context, travelID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, travel_id, from_member_id, to_member_id, amount, status, created_at, updated_at, completed_at
		 FROM settlements WHERE travel_id = ? ORDER BY created_at, position`,
		travelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	settlements := []*models.Settlement{}
	for rows.Next() {
		settlement := &models.Settlement{}
		var status string
		var completedAt sql.NullInt64

		if err := rows.Scan(&settlement.ID, &settlement.TravelID, &settlement.FromMemberID, &settlement.ToMemberID,
			&settlement.Amount, &status, &settlement.CreatedAt, &settlement.UpdatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}

		settlement.Status = models.SettlementStatus(status)
		if completedAt.Valid {
			settlement.CompletedAt = completedAt.Int64
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// ReplaceAll deletes every saved settlement of the travel and inserts the
// transfers as pending settlements. The delete and inserts share one
// transaction, so a failed insert restores the previous plan.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, travelID string, transfers []models.Transfer) ([]*models.Settlement, error) {
	if len(transfers) == 0 {
		return nil, models.ErrNothingToSettle
	}

	now := time.Now().Unix()
	settlements := make([]*models.Settlement, len(transfers))
	for i, tr := range transfers {
		settlements[i] = &models.Settlement{
			ID:           uuid.New().String(),
			TravelID:     travelID,
			FromMemberID: tr.FromMemberID,
			ToMemberID:   tr.ToMemberID,
			Amount:       tr.Amount,
			Status:       models.StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM settlements WHERE travel_id = ?", travelID); err != nil {
			return fmt.Errorf("failed to delete settlements: %w", err)
		}

		for i, settlement := range settlements {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO settlements (id, travel_id, from_member_id, to_member_id, amount, status, position, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				settlement.ID, settlement.TravelID, settlement.FromMemberID, settlement.ToMemberID,
				settlement.Amount, string(settlement.Status), i, settlement.CreatedAt, settlement.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert settlement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlements, nil
}

// MarkCompleted transitions a saved settlement to completed. Completing an
// already completed settlement succeeds and leaves its timestamps untouched.
func (s *SQLiteStore) MarkCompleted(ctx context.Context, travelID, settlementID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT status FROM settlements WHERE travel_id = ? AND id = ?",
			travelID, settlementID,
		).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", models.ErrSettlementNotFound, settlementID)
		}
		if err != nil {
			return fmt.Errorf("failed to get settlement: %w", err)
		}

		if models.SettlementStatus(status) == models.StatusCompleted {
			return nil
		}

		now := time.Now().Unix()
		_, err = tx.ExecContext(ctx,
			`UPDATE settlements SET status = ?, completed_at = ?, updated_at = ?
			 WHERE travel_id = ? AND id = ?`,
			string(models.StatusCompleted), now, now, travelID, settlementID,
		)
		if err != nil {
			return fmt.Errorf("failed to complete settlement: %w", err)
		}
		return nil
	})
}

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/tripsettle/internal/models"
)

// ListSaved retrieves all saved settlements for a travel, oldest first.
func (s *PGStore) ListSaved(ctx context.Context, travelID string) ([]*models.Settlement, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, travel_id, from_member_id, to_member_id, amount::text, status, created_at, updated_at, completed_at
		 FROM settlements WHERE travel_id = $1 ORDER BY created_at, position`,
		travelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	settlements := []*models.Settlement{}
	for rows.Next() {
		settlement := &models.Settlement{}
		var amount, status string
		var completedAt *int64

		if err := rows.Scan(&settlement.ID, &settlement.TravelID, &settlement.FromMemberID, &settlement.ToMemberID,
			&amount, &status, &settlement.CreatedAt, &settlement.UpdatedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}

		if settlement.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		settlement.Status = models.SettlementStatus(status)
		if completedAt != nil {
			settlement.CompletedAt = *completedAt
		}
		settlements = append(settlements, settlement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}

	return settlements, nil
}

// ReplaceAll deletes every saved settlement of the travel and inserts the
// transfers as pending settlements in one transaction. A transaction-scoped
// advisory lock keyed on the travel serializes concurrent replacements.
func (s *PGStore) ReplaceAll(ctx context.Context, travelID string, transfers []models.Transfer) ([]*models.Settlement, error) {
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

	err := s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", travelID); err != nil {
			return fmt.Errorf("failed to lock travel settlements: %w", err)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM settlements WHERE travel_id = $1", travelID); err != nil {
			return fmt.Errorf("failed to delete settlements: %w", err)
		}

		batch := &pgx.Batch{}
		for i, settlement := range settlements {
			batch.Queue(
				`INSERT INTO settlements (id, travel_id, from_member_id, to_member_id, amount, status, position, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
				settlement.ID, settlement.TravelID, settlement.FromMemberID, settlement.ToMemberID,
				settlement.Amount.String(), string(settlement.Status), i, settlement.CreatedAt, settlement.UpdatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert settlements: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settlements, nil
}

// MarkCompleted transitions a saved settlement to completed. The row is
// locked for the duration of the check-and-update; completing an already
// completed settlement succeeds without touching its timestamps.
func (s *PGStore) MarkCompleted(ctx context.Context, travelID, settlementID string) error {
	return s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx,
			"SELECT status FROM settlements WHERE travel_id = $1 AND id = $2 FOR UPDATE",
			travelID, settlementID,
		).Scan(&status)
		if errNoRows(err) {
			return fmt.Errorf("%w: %s", models.ErrSettlementNotFound, settlementID)
		}
		if err != nil {
			return fmt.Errorf("failed to get settlement: %w", err)
		}

		if models.SettlementStatus(status) == models.StatusCompleted {
			return nil
		}

		now := time.Now().Unix()
		_, err = tx.Exec(ctx,
			`UPDATE settlements SET status = $1, completed_at = $2, updated_at = $3
			 WHERE travel_id = $4 AND id = $5`,
			string(models.StatusCompleted), now, now, travelID, settlementID,
		)
		if err != nil {
			return fmt.Errorf("failed to complete settlement: %w", err)
		}
		return nil
	})
}

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

// CreateTravel persists a new travel and its initial members.
func (s *SQLiteStore) CreateTravel(ctx context.Context, travel *models.Travel) error {
	// Generate ID if not set
	if travel.ID == "" {
		travel.ID = uuid.New().String()
	}
	if travel.CreatedAt == 0 {
		travel.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO travels (id, name, base_currency, created_at) VALUES (?, ?, ?, ?)",
			travel.ID, travel.Name, travel.BaseCurrency, travel.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert travel: %w", err)
		}

		for i := range travel.Members {
			member := &travel.Members[i]
			if member.JoinedAt == 0 {
				member.JoinedAt = travel.CreatedAt
			}
			if err := insertMember(ctx, tx, travel.ID, *member, i); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetTravel retrieves a travel by ID, including its members.
func (s *SQLiteStore) GetTravel(ctx context.Context, travelID string) (*models.Travel, error) {
	return getTravel(ctx, s.db, travelID)
}

// AddMember appends a member to an existing travel.
func (s *SQLiteStore) AddMember(ctx context.Context, travelID string, member models.Member) error {
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var memberCount int
		err := tx.QueryRowContext(ctx,
			"SELECT (SELECT COUNT(*) FROM travel_members WHERE travel_id = ?) FROM travels WHERE id = ?",
			travelID, travelID,
		).Scan(&memberCount)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", models.ErrTravelNotFound, travelID)
		}
		if err != nil {
			return fmt.Errorf("failed to check travel: %w", err)
		}

		var exists int
		err = tx.QueryRowContext(ctx,
			"SELECT 1 FROM travel_members WHERE travel_id = ? AND member_id = ?",
			travelID, member.ID,
		).Scan(&exists)
		if err == nil {
			return fmt.Errorf("%w: %s", models.ErrAlreadyMember, member.ID)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to check membership: %w", err)
		}

		return insertMember(ctx, tx, travelID, member, memberCount)
	})
}

func insertMember(ctx context.Context, q querier, travelID string, member models.Member, position int) error {
	role := member.Role
	if role == "" {
		role = models.RoleMember
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO travel_members (travel_id, member_id, display_name, role, joined_at, position)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		travelID, member.ID, member.Name, string(role), member.JoinedAt, position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// getTravel loads a travel and its members through q, so it can run inside
// a ledger snapshot.
func getTravel(ctx context.Context, q querier, travelID string) (*models.Travel, error) {
	travel := &models.Travel{}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, base_currency, created_at FROM travels WHERE id = ?",
		travelID,
	).Scan(&travel.ID, &travel.Name, &travel.BaseCurrency, &travel.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrTravelNotFound, travelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get travel: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT member_id, display_name, role, joined_at
		 FROM travel_members WHERE travel_id = ? ORDER BY position`,
		travelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member models.Member
		var name sql.NullString
		var role string
		if err := rows.Scan(&member.ID, &name, &role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if name.Valid {
			member.Name = &name.String
		}
		member.Role = models.Role(role)
		travel.Members = append(travel.Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return travel, nil
}

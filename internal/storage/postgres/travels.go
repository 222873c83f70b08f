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

// CreateTravel persists a new travel and its initial members.
func (s *PGStore) CreateTravel(ctx context.Context, travel *models.Travel) error {
	if travel.ID == "" {
		travel.ID = uuid.New().String()
	}
	if travel.CreatedAt == 0 {
		travel.CreatedAt = time.Now().Unix()
	}

	return s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			"INSERT INTO travels (id, name, base_currency, created_at) VALUES ($1, $2, $3, $4)",
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
func (s *PGStore) GetTravel(ctx context.Context, travelID string) (*models.Travel, error) {
	return getTravel(ctx, s.pool, travelID)
}

// AddMember appends a member to an existing travel. The travel row is locked
// so concurrent joins get distinct positions.
func (s *PGStore) AddMember(ctx context.Context, travelID string, member models.Member) error {
	if member.JoinedAt == 0 {
		member.JoinedAt = time.Now().Unix()
	}

	return s.withTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx, "SELECT id FROM travels WHERE id = $1 FOR UPDATE", travelID).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: %s", models.ErrTravelNotFound, travelID)
		}
		if err != nil {
			return fmt.Errorf("failed to lock travel: %w", err)
		}

		var exists bool
		var memberCount int
		err = tx.QueryRow(ctx,
			`SELECT COALESCE(BOOL_OR(member_id = $2), false), COUNT(*)
			 FROM travel_members WHERE travel_id = $1`,
			travelID, member.ID,
		).Scan(&exists, &memberCount)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", models.ErrAlreadyMember, member.ID)
		}

		return insertMember(ctx, tx, travelID, member, memberCount)
	})
}

func insertMember(ctx context.Context, q querier, travelID string, member models.Member, position int) error {
	role := member.Role
	if role == "" {
		role = models.RoleMember
	}
	_, err := q.Exec(ctx,
		`INSERT INTO travel_members (travel_id, member_id, display_name, role, joined_at, position)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		travelID, member.ID, member.Name, string(role), member.JoinedAt, position,
	)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

func getTravel(ctx context.Context, q querier, travelID string) (*models.Travel, error) {
	travel := &models.Travel{}
	err := q.QueryRow(ctx,
		"SELECT id, name, base_currency, created_at FROM travels WHERE id = $1",
		travelID,
	).Scan(&travel.ID, &travel.Name, &travel.BaseCurrency, &travel.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrTravelNotFound, travelID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get travel: %w", err)
	}

	rows, err := q.Query(ctx,
		`SELECT member_id, display_name, role, joined_at
		 FROM travel_members WHERE travel_id = $1 ORDER BY position`,
		travelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member models.Member
		var role string
		if err := rows.Scan(&member.ID, &member.Name, &role, &member.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		member.Role = models.Role(role)
		travel.Members = append(travel.Members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return travel, nil
}

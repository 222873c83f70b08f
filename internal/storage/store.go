// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// TravelStore manages travels and their membership.
type TravelStore interface {
	// CreateTravel persists a new travel with its initial members.
	// The travel.ID and CreatedAt fields are populated by the store.
	CreateTravel(ctx context.Context, travel *models.Travel) error

	// GetTravel retrieves a travel with its members.
	// Returns models.ErrTravelNotFound if the travel does not exist.
	GetTravel(ctx context.Context, travelID string) (*models.Travel, error)

	// AddMember adds a member to an existing travel.
	// Returns models.ErrAlreadyMember if the member already belongs to it.
	AddMember(ctx context.Context, travelID string, member models.Member) error
}

// ExpenseStore manages the expense ledger of a travel.
type ExpenseStore interface {
	// CreateExpense persists a new expense with its shares.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// GetExpense retrieves one expense of a travel.
	GetExpense(ctx context.Context, travelID, expenseID string) (*models.Expense, error)

	// UpdateExpense replaces an expense and its shares.
	UpdateExpense(ctx context.Context, expense *models.Expense) error

	// DeleteExpense removes an expense and its shares.
	DeleteExpense(ctx context.Context, travelID, expenseID string) error
}

// LedgerReader reads a travel, its members, and all of its expenses from a
// single transactional snapshot.
type LedgerReader interface {
	LoadLedger(ctx context.Context, travelID string) (*models.Ledger, error)
}

// SettlementStore owns saved settlements.
type SettlementStore interface {
	// ListSaved returns saved settlements ordered by creation time ascending.
	ListSaved(ctx context.Context, travelID string) ([]*models.Settlement, error)

	// ReplaceAll deletes every saved settlement of the travel and inserts the
	// given transfers as pending settlements, in one transaction.
	// Returns models.ErrNothingToSettle for an empty plan.
	ReplaceAll(ctx context.Context, travelID string, transfers []models.Transfer) ([]*models.Settlement, error)

	// MarkCompleted transitions one saved settlement to completed.
	// Returns models.ErrSettlementNotFound if no saved row matches.
	MarkCompleted(ctx context.Context, travelID, settlementID string) error
}

// RateStore persists exchange rates.
type RateStore interface {
	// Rate returns the rate for converting one unit of from into to.
	Rate(ctx context.Context, from, to string) (decimal.Decimal, error)

	// SetRate inserts or replaces a rate.
	SetRate(ctx context.Context, from, to string, rate decimal.Decimal) error
}

// Store is the full storage backend used by the server.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	TravelStore
	ExpenseStore
	LedgerReader
	SettlementStore
	RateStore

	// Close releases any resources held by the store.
	Close() error
}

// Package ledger implements the expense write path of a travel: creating,
// editing and deleting expenses with their currency conversion and shares.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/calculator"
	"github.com/mmynk/tripsettle/internal/currency"
	"github.com/mmynk/tripsettle/internal/models"
	"github.com/mmynk/tripsettle/internal/storage"
)

// Invalidator drops derived state of a travel after its ledger changes.
type Invalidator interface {
	Invalidate(ctx context.Context, travelID string)
}

// ExpenseInput is the caller-supplied part of an expense.
type ExpenseInput struct {
	PayerID        string
	Description    string
	Amount         decimal.Decimal
	Currency       string
	ParticipantIDs []string
}

// Service manages the expenses of travels.
type Service struct {
	travels     storage.TravelStore
	expenses    storage.ExpenseStore
	ledger      storage.LedgerReader
	normalizer  *currency.Normalizer
	invalidator Invalidator
}

// NewService creates a Service. invalidator may be nil.
func NewService(store storage.Store, normalizer *currency.Normalizer, invalidator Invalidator) *Service {
	return &Service{
		travels:     store,
		expenses:    store,
		ledger:      store,
		normalizer:  normalizer,
		invalidator: invalidator,
	}
}

// Create validates input, converts it into the travel's base currency and
// stores it as a new expense split evenly among the participants.
func (s *Service) Create(ctx context.Context, travelID, requesterID string, in ExpenseInput) (*models.Expense, error) {
	travel, err := s.memberTravel(ctx, travelID, requesterID)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{TravelID: travelID}
	if err := s.apply(ctx, travel, expense, in); err != nil {
		return nil, err
	}

	if err := s.expenses.CreateExpense(ctx, expense); err != nil {
		return nil, err
	}
	slog.Info("Expense created", "travel_id", travelID, "expense_id", expense.ID, "converted_amount", expense.ConvertedAmount)

	s.invalidate(ctx, travelID)
	return expense, nil
}

// Update replaces an existing expense with in.
func (s *Service) Update(ctx context.Context, travelID, requesterID, expenseID string, in ExpenseInput) (*models.Expense, error) {
	travel, err := s.memberTravel(ctx, travelID, requesterID)
	if err != nil {
		return nil, err
	}

	expense, err := s.expenses.GetExpense(ctx, travelID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, travel, expense, in); err != nil {
		return nil, err
	}

	if err := s.expenses.UpdateExpense(ctx, expense); err != nil {
		return nil, err
	}
	slog.Info("Expense updated", "travel_id", travelID, "expense_id", expense.ID)

	s.invalidate(ctx, travelID)
	return expense, nil
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, travelID, requesterID, expenseID string) error {
	if _, err := s.memberTravel(ctx, travelID, requesterID); err != nil {
		return err
	}

	if err := s.expenses.DeleteExpense(ctx, travelID, expenseID); err != nil {
		return err
	}
	slog.Info("Expense deleted", "travel_id", travelID, "expense_id", expenseID)

	s.invalidate(ctx, travelID)
	return nil
}

// List returns every expense of the travel, oldest first.
func (s *Service) List(ctx context.Context, travelID, requesterID string) ([]*models.Expense, error) {
	ledger, err := s.ledger.LoadLedger(ctx, travelID)
	if err != nil {
		return nil, err
	}
	if !ledger.Travel.HasMember(requesterID) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotMember, requesterID)
	}
	if ledger.Expenses == nil {
		return []*models.Expense{}, nil
	}
	return ledger.Expenses, nil
}

func (s *Service) memberTravel(ctx context.Context, travelID, requesterID string) (*models.Travel, error) {
	travel, err := s.travels.GetTravel(ctx, travelID)
	if err != nil {
		return nil, err
	}
	if !travel.HasMember(requesterID) {
		return nil, fmt.Errorf("%w: %s", models.ErrNotMember, requesterID)
	}
	return travel, nil
}

// apply validates in against the travel and writes it into expense.
func (s *Service) apply(ctx context.Context, travel *models.Travel, expense *models.Expense, in ExpenseInput) error {
	if err := validateParticipants(travel, in.PayerID, in.ParticipantIDs); err != nil {
		return err
	}

	code, err := currency.Normalize(in.Currency)
	if err != nil {
		return err
	}
	converted, err := s.normalizer.Convert(ctx, in.Amount, code, travel.BaseCurrency)
	if err != nil {
		return err
	}
	// Shares are split in cents, so the stored total must be too.
	converted = converted.Round(2)
	if !converted.IsPositive() {
		return fmt.Errorf("%w: %s rounds to zero", models.ErrInvalidAmount, in.Amount)
	}

	shares, err := calculator.SplitEvenly(converted, in.ParticipantIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidExpense, err)
	}

	expense.PayerID = in.PayerID
	expense.Description = strings.TrimSpace(in.Description)
	expense.Amount = in.Amount
	expense.Currency = code
	expense.ConvertedAmount = converted
	expense.Shares = shares
	return nil
}

// validateParticipants checks that the payer and every participant belong to
// the travel and that participants are non-empty and distinct.
func validateParticipants(travel *models.Travel, payerID string, participants []string) error {
	if payerID == "" {
		return fmt.Errorf("%w: payer_id required", models.ErrInvalidExpense)
	}
	if !travel.HasMember(payerID) {
		return fmt.Errorf("%w: payer '%s' is not a member", models.ErrInvalidExpense, payerID)
	}
	if len(participants) == 0 {
		return fmt.Errorf("%w: at least one participant required", models.ErrInvalidExpense)
	}

	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p] {
			return fmt.Errorf("%w: duplicate participant '%s'", models.ErrInvalidExpense, p)
		}
		seen[p] = true
		if !travel.HasMember(p) {
			return fmt.Errorf("%w: participant '%s' is not a member", models.ErrInvalidExpense, p)
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, travelID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, travelID)
	}
}

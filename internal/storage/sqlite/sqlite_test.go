package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// newTestStore creates a store backed by a temp database file.
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripsettle-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func strPtr(s string) *string { return &s }

// createTravel creates a KRW travel with the given member IDs, the first one as owner.
func createTravel(t *testing.T, store *SQLiteStore, memberIDs ...string) *models.Travel {
	t.Helper()

	travel := &models.Travel{Name: "Jeju", BaseCurrency: "KRW"}
	for i, id := range memberIDs {
		role := models.RoleMember
		if i == 0 {
			role = models.RoleOwner
		}
		travel.Members = append(travel.Members, models.Member{ID: id, Name: strPtr("name-" + id), Role: role})
	}
	if err := store.CreateTravel(context.Background(), travel); err != nil {
		t.Fatalf("CreateTravel failed: %v", err)
	}
	return travel
}

func TestTravels(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateTravel generates ID and timestamps", func(t *testing.T) {
		travel := createTravel(t, store, "alice", "bob")

		if travel.ID == "" {
			t.Error("Expected travel ID to be generated")
		}
		if travel.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if travel.Members[1].JoinedAt != travel.CreatedAt {
			t.Errorf("JoinedAt = %d, want %d", travel.Members[1].JoinedAt, travel.CreatedAt)
		}
	})

	t.Run("GetTravel returns members in join order", func(t *testing.T) {
		original := createTravel(t, store, "carol", "alice", "bob")

		retrieved, err := store.GetTravel(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetTravel failed: %v", err)
		}

		if retrieved.BaseCurrency != "KRW" {
			t.Errorf("BaseCurrency mismatch: got %s, want KRW", retrieved.BaseCurrency)
		}
		want := []string{"carol", "alice", "bob"}
		for i, id := range retrieved.MemberIDs() {
			if id != want[i] {
				t.Errorf("member %d = %s, want %s", i, id, want[i])
			}
		}
		if retrieved.Members[0].Role != models.RoleOwner {
			t.Errorf("first member role = %s, want owner", retrieved.Members[0].Role)
		}
		if retrieved.Members[0].DisplayName() != "name-carol" {
			t.Errorf("display name = %s, want name-carol", retrieved.Members[0].DisplayName())
		}
	})

	t.Run("GetTravel returns not found", func(t *testing.T) {
		_, err := store.GetTravel(ctx, "nonexistent-id")
		if !errors.Is(err, models.ErrTravelNotFound) {
			t.Errorf("Expected ErrTravelNotFound, got %v", err)
		}
	})

	t.Run("AddMember appends and keeps null names", func(t *testing.T) {
		travel := createTravel(t, store, "alice")

		if err := store.AddMember(ctx, travel.ID, models.Member{ID: "dave"}); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		retrieved, err := store.GetTravel(ctx, travel.ID)
		if err != nil {
			t.Fatalf("GetTravel failed: %v", err)
		}
		if len(retrieved.Members) != 2 {
			t.Fatalf("Expected 2 members, got %d", len(retrieved.Members))
		}
		dave := retrieved.Members[1]
		if dave.Name != nil {
			t.Errorf("Expected nil name, got %q", *dave.Name)
		}
		if dave.Role != models.RoleMember {
			t.Errorf("Expected default role member, got %s", dave.Role)
		}
		if dave.DisplayName() != "dave" {
			t.Errorf("DisplayName = %s, want dave", dave.DisplayName())
		}
	})

	t.Run("AddMember rejects duplicates and unknown travels", func(t *testing.T) {
		travel := createTravel(t, store, "alice")

		err := store.AddMember(ctx, travel.ID, models.Member{ID: "alice"})
		if !errors.Is(err, models.ErrAlreadyMember) {
			t.Errorf("Expected ErrAlreadyMember, got %v", err)
		}

		err = store.AddMember(ctx, "nonexistent-id", models.Member{ID: "bob"})
		if !errors.Is(err, models.ErrTravelNotFound) {
			t.Errorf("Expected ErrTravelNotFound, got %v", err)
		}
	})
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	newExpense := func(travelID string) *models.Expense {
		return &models.Expense{
			TravelID:        travelID,
			PayerID:         "alice",
			Description:     "Dinner",
			Amount:          decimal.RequireFromString("25.50"),
			Currency:        "USD",
			ConvertedAmount: decimal.RequireFromString("34425.00"),
			Shares: []models.Share{
				{MemberID: "bob", Amount: decimal.RequireFromString("17212.50")},
				{MemberID: "alice", Amount: decimal.RequireFromString("17212.50")},
			},
		}
	}

	t.Run("CreateExpense and GetExpense round-trip decimals", func(t *testing.T) {
		travel := createTravel(t, store, "alice", "bob")
		expense := newExpense(travel.ID)

		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		if expense.ID == "" {
			t.Fatal("Expected expense ID to be generated")
		}

		got, err := store.GetExpense(ctx, travel.ID, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if !got.Amount.Equal(expense.Amount) {
			t.Errorf("Amount = %s, want %s", got.Amount, expense.Amount)
		}
		if !got.ConvertedAmount.Equal(expense.ConvertedAmount) {
			t.Errorf("ConvertedAmount = %s, want %s", got.ConvertedAmount, expense.ConvertedAmount)
		}
		if len(got.Shares) != 2 || got.Shares[0].MemberID != "bob" {
			t.Errorf("Shares = %+v, want bob first", got.Shares)
		}
	})

	t.Run("GetExpense scoped to travel", func(t *testing.T) {
		travel := createTravel(t, store, "alice", "bob")
		other := createTravel(t, store, "alice", "bob")
		expense := newExpense(travel.ID)
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		_, err := store.GetExpense(ctx, other.ID, expense.ID)
		if !errors.Is(err, models.ErrExpenseNotFound) {
			t.Errorf("Expected ErrExpenseNotFound, got %v", err)
		}
	})

	t.Run("UpdateExpense replaces shares", func(t *testing.T) {
		travel := createTravel(t, store, "alice", "bob")
		expense := newExpense(travel.ID)
		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		expense.PayerID = "bob"
		expense.ConvertedAmount = decimal.NewFromInt(100)
		expense.Shares = []models.Share{{MemberID: "alice", Amount: decimal.NewFromInt(100)}}
		if err := store.UpdateExpense(ctx, expense); err != nil {
			t.Fatalf("UpdateExpense failed: %v", err)
		}

		got, err := store.GetExpense(ctx, travel.ID, expense.ID)
		if err != nil {
			t.Fatalf("GetExpense failed: %v", err)
		}
		if got.PayerID != "bob" {
			t.Errorf("PayerID = %s, want bob", got.PayerID)
		}
		if len(got.Shares) != 1 || got.Shares[0].MemberID != "alice" {
			t.Errorf("Shares = %+v, want only alice", got.Shares)
		}
	})

	t.Run("UpdateExpense and DeleteExpense report not found", func(t *testing.T) {
		travel := createTravel(t, store, "alice", "bob")
		missing := newExpense(travel.ID)
		missing.ID = "nonexistent-id"

		if err := store.UpdateExpense(ctx, missing); !errors.Is(err, models.ErrExpenseNotFound) {
			t.Errorf("UpdateExpense: expected ErrExpenseNotFound, got %v", err)
		}
		if err := store.DeleteExpense(ctx, travel.ID, "nonexistent-id"); !errors.Is(err, models.ErrExpenseNotFound) {
			t.Errorf("DeleteExpense: expected ErrExpenseNotFound, got %v", err)
		}
	})

	t.Run("LoadLedger returns travel and expenses with shares", func(t *testing.T) {
		travel := createTravel(t, store, "alice", "bob")
		first := newExpense(travel.ID)
		second := newExpense(travel.ID)
		for _, e := range []*models.Expense{first, second} {
			if err := store.CreateExpense(ctx, e); err != nil {
				t.Fatalf("CreateExpense failed: %v", err)
			}
		}
		if err := store.DeleteExpense(ctx, travel.ID, first.ID); err != nil {
			t.Fatalf("DeleteExpense failed: %v", err)
		}

		ledger, err := store.LoadLedger(ctx, travel.ID)
		if err != nil {
			t.Fatalf("LoadLedger failed: %v", err)
		}
		if ledger.Travel.ID != travel.ID || len(ledger.Travel.Members) != 2 {
			t.Errorf("unexpected travel in ledger: %+v", ledger.Travel)
		}
		if len(ledger.Expenses) != 1 || ledger.Expenses[0].ID != second.ID {
			t.Fatalf("Expected only the second expense, got %d", len(ledger.Expenses))
		}
		if len(ledger.Expenses[0].Shares) != 2 {
			t.Errorf("Expected 2 shares, got %d", len(ledger.Expenses[0].Shares))
		}
	})

	t.Run("LoadLedger returns not found", func(t *testing.T) {
		_, err := store.LoadLedger(ctx, "nonexistent-id")
		if !errors.Is(err, models.ErrTravelNotFound) {
			t.Errorf("Expected ErrTravelNotFound, got %v", err)
		}
	})
}

func TestRates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetRate(ctx, "USD", "KRW", decimal.RequireFromString("1350")); err != nil {
		t.Fatalf("SetRate failed: %v", err)
	}
	if err := store.SetRate(ctx, "USD", "KRW", decimal.RequireFromString("1400")); err != nil {
		t.Fatalf("SetRate overwrite failed: %v", err)
	}

	rate, err := store.Rate(ctx, "USD", "KRW")
	if err != nil {
		t.Fatalf("Rate failed: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(1400)) {
		t.Errorf("USD->KRW = %s, want 1400", rate)
	}

	inverse, err := store.Rate(ctx, "KRW", "USD")
	if err != nil {
		t.Fatalf("inverse Rate failed: %v", err)
	}
	if !inverse.Equal(decimal.NewFromInt(1).DivRound(decimal.NewFromInt(1400), 8)) {
		t.Errorf("KRW->USD = %s", inverse)
	}

	if _, err := store.Rate(ctx, "EUR", "JPY"); err == nil {
		t.Error("Expected error for unknown pair")
	}
}

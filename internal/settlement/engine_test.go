package settlement

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/cache"
	"github.com/mmynk/tripsettle/internal/calculator"
	"github.com/mmynk/tripsettle/internal/models"
	"github.com/mmynk/tripsettle/internal/storage"
	"github.com/mmynk/tripsettle/internal/storage/sqlite"
)

func setupEngine(t *testing.T, c cache.SummaryCache) (*Engine, *sqlite.SQLiteStore) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripsettle-engine-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	engine := New(Deps{
		Travels:     store,
		Ledger:      store,
		Settlements: store,
		Cache:       c,
		Timeout:     5 * time.Second,
	})
	return engine, store
}

func createTravel(t *testing.T, store *sqlite.SQLiteStore, memberIDs ...string) string {
	t.Helper()

	travel := &models.Travel{Name: "Seoul", BaseCurrency: "KRW"}
	for i, id := range memberIDs {
		m := models.Member{ID: id, Role: models.RoleMember}
		if i == 0 {
			m.Role = models.RoleOwner
			name := "Alice"
			m.Name = &name
		}
		travel.Members = append(travel.Members, m)
	}
	if err := store.CreateTravel(context.Background(), travel); err != nil {
		t.Fatalf("CreateTravel failed: %v", err)
	}
	return travel.ID
}

func addExpense(t *testing.T, store *sqlite.SQLiteStore, travelID, payer, amount string, participants ...string) {
	t.Helper()

	total := decimal.RequireFromString(amount)
	shares, err := calculator.SplitEvenly(total, participants)
	if err != nil {
		t.Fatalf("SplitEvenly failed: %v", err)
	}
	expense := &models.Expense{
		TravelID:        travelID,
		PayerID:         payer,
		Description:     "expense",
		Amount:          total,
		Currency:        "KRW",
		ConvertedAmount: total,
		Shares:          shares,
	}
	if err := store.CreateExpense(context.Background(), expense); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
}

func balanceOf(t *testing.T, summary *models.Summary, memberID string) decimal.Decimal {
	t.Helper()
	for _, b := range summary.Balances {
		if b.MemberID == memberID {
			return b.Balance
		}
	}
	t.Fatalf("no balance for %s", memberID)
	return decimal.Zero
}

func TestSummaryThreeMembers(t *testing.T) {
	engine, store := setupEngine(t, nil)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b", "c")
	addExpense(t, store, travelID, "a", "30000", "a", "b", "c")

	summary, err := engine.Summary(ctx, travelID, "b")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	want := map[string]string{"a": "20000", "b": "-10000", "c": "-10000"}
	for id, amount := range want {
		if got := balanceOf(t, summary, id); !got.Equal(decimal.RequireFromString(amount)) {
			t.Errorf("balance of %s = %s, want %s", id, got, amount)
		}
	}

	if len(summary.Recommended) != 2 {
		t.Fatalf("expected 2 recommended settlements, got %d", len(summary.Recommended))
	}
	for i, from := range []string{"b", "c"} {
		s := summary.Recommended[i]
		if s.FromMemberID != from || s.ToMemberID != "a" || !s.Amount.Equal(decimal.NewFromInt(10000)) {
			t.Errorf("recommended[%d] = %s->%s %s", i, s.FromMemberID, s.ToMemberID, s.Amount)
		}
		if s.Status != models.StatusPending || s.ID == "" {
			t.Errorf("recommended[%d] should be pending with an id, got %q %q", i, s.Status, s.ID)
		}
	}
	if summary.Recommended[0].ID == summary.Recommended[1].ID {
		t.Error("recommended settlements share an id")
	}

	if len(summary.Saved) != 0 || summary.Saved == nil {
		t.Errorf("expected empty saved list, got %v", summary.Saved)
	}

	if summary.Balances[0].Name == nil || *summary.Balances[0].Name != "Alice" {
		t.Errorf("expected name Alice for a, got %v", summary.Balances[0].Name)
	}
	if summary.Balances[1].Name != nil {
		t.Errorf("expected nil name for b, got %q", *summary.Balances[1].Name)
	}
}

func TestSaveAndComplete(t *testing.T) {
	engine, store := setupEngine(t, nil)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	saved, err := engine.Save(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if len(saved.Saved) != 1 {
		t.Fatalf("expected 1 saved settlement, got %d", len(saved.Saved))
	}
	row := saved.Saved[0]
	if row.FromMemberID != "b" || row.ToMemberID != "a" || !row.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected saved row %s->%s %s", row.FromMemberID, row.ToMemberID, row.Amount)
	}
	if row.Status != models.StatusPending {
		t.Errorf("expected pending, got %s", row.Status)
	}

	listed, err := store.ListSaved(ctx, travelID)
	if err != nil {
		t.Fatalf("ListSaved failed: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != row.ID {
		t.Fatalf("store does not hold the saved row: %v", listed)
	}

	completed, err := engine.Complete(ctx, travelID, "b", row.ID)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Saved[0].Status != models.StatusCompleted {
		t.Errorf("expected completed, got %s", completed.Saved[0].Status)
	}

	summary, err := engine.Summary(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Saved[0].Status != models.StatusCompleted {
		t.Errorf("expected completed in later summary, got %s", summary.Saved[0].Status)
	}

	if _, err := engine.Complete(ctx, travelID, "a", row.ID); err != nil {
		t.Errorf("completing twice should succeed, got %v", err)
	}
}

func TestSettlementDisplayNames(t *testing.T) {
	engine, store := setupEngine(t, nil)
	ctx := context.Background()

	// "a" is named Alice; "b" has no name and falls back to its ID.
	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	saved, err := engine.Save(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	summary, err := engine.Summary(ctx, travelID, "b")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	for name, rows := range map[string][]*models.Settlement{
		"save result":    saved.Saved,
		"saved":          summary.Saved,
		"recommended":    summary.Recommended,
		"save recommend": saved.Recommended,
	} {
		if len(rows) != 1 {
			t.Fatalf("%s: expected 1 settlement, got %d", name, len(rows))
		}
		if rows[0].FromName != "b" || rows[0].ToName != "Alice" {
			t.Errorf("%s: names = %q->%q, want \"b\"->\"Alice\"", name, rows[0].FromName, rows[0].ToName)
		}
	}
}

func TestCompleteRequiresSavedRow(t *testing.T) {
	engine, store := setupEngine(t, nil)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	summary, err := engine.Summary(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	recommendedID := summary.Recommended[0].ID

	_, err = engine.Complete(ctx, travelID, "a", recommendedID)
	if !errors.Is(err, models.ErrSettlementNotFound) {
		t.Errorf("expected ErrSettlementNotFound for recommended-only id, got %v", err)
	}
}

func TestSaveNothingToSettle(t *testing.T) {
	tests := []struct {
		name     string
		expenses func(t *testing.T, store *sqlite.SQLiteStore, travelID string)
	}{
		{
			name:     "no expenses",
			expenses: func(t *testing.T, store *sqlite.SQLiteStore, travelID string) {},
		},
		{
			name: "already balanced",
			expenses: func(t *testing.T, store *sqlite.SQLiteStore, travelID string) {
				addExpense(t, store, travelID, "a", "100", "a", "b")
				addExpense(t, store, travelID, "b", "100", "a", "b")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, store := setupEngine(t, nil)
			ctx := context.Background()

			travelID := createTravel(t, store, "a", "b")
			tt.expenses(t, store, travelID)

			_, err := engine.Save(ctx, travelID, "a")
			if !errors.Is(err, models.ErrNothingToSettle) {
				t.Fatalf("expected ErrNothingToSettle, got %v", err)
			}

			saved, err := store.ListSaved(ctx, travelID)
			if err != nil {
				t.Fatalf("ListSaved failed: %v", err)
			}
			if len(saved) != 0 {
				t.Errorf("expected no rows written, got %d", len(saved))
			}
		})
	}
}

func TestSaveReplacesPreviousPlan(t *testing.T) {
	engine, store := setupEngine(t, nil)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b", "c")
	addExpense(t, store, travelID, "a", "90", "a", "b", "c")

	first, err := engine.Save(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	addExpense(t, store, travelID, "b", "60", "a", "b", "c")
	second, err := engine.Save(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	listed, err := store.ListSaved(ctx, travelID)
	if err != nil {
		t.Fatalf("ListSaved failed: %v", err)
	}
	if len(listed) != len(second.Saved) {
		t.Fatalf("expected %d rows, got %d", len(second.Saved), len(listed))
	}
	for _, old := range first.Saved {
		for _, cur := range listed {
			if old.ID == cur.ID {
				t.Errorf("row %s from the first plan survived", old.ID)
			}
		}
	}
}

func TestNonMemberDenied(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute)
	engine, store := setupEngine(t, mem)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	// Warm the cache so a denial cannot come from a miss path.
	if _, err := engine.Summary(ctx, travelID, "a"); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if _, err := engine.Summary(ctx, travelID, "mallory"); !errors.Is(err, models.ErrNotMember) {
		t.Errorf("Summary: expected ErrNotMember, got %v", err)
	}
	if _, err := engine.Save(ctx, travelID, "mallory"); !errors.Is(err, models.ErrNotMember) {
		t.Errorf("Save: expected ErrNotMember, got %v", err)
	}
	if _, err := engine.Complete(ctx, travelID, "mallory", "anything"); !errors.Is(err, models.ErrNotMember) {
		t.Errorf("Complete: expected ErrNotMember, got %v", err)
	}

	saved, _ := store.ListSaved(ctx, travelID)
	if len(saved) != 0 {
		t.Errorf("non-member save wrote %d rows", len(saved))
	}
}

func TestUnknownTravel(t *testing.T) {
	engine, _ := setupEngine(t, nil)

	_, err := engine.Summary(context.Background(), "missing", "a")
	if !errors.Is(err, models.ErrTravelNotFound) {
		t.Errorf("expected ErrTravelNotFound, got %v", err)
	}
}

func TestSummaryCache(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute)
	engine, store := setupEngine(t, mem)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	first, err := engine.Summary(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	second, err := engine.Summary(ctx, travelID, "b")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if second != first {
		t.Error("expected second summary to be served from cache")
	}

	saved, err := engine.Save(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := mem.Get(ctx, travelID); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expected Save to invalidate the cache, got %v", err)
	}

	third, err := engine.Summary(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(third.Saved) != 1 {
		t.Fatalf("expected saved plan after Save, got %d rows", len(third.Saved))
	}

	if _, err := engine.Complete(ctx, travelID, "a", saved.Saved[0].ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if _, err := mem.Get(ctx, travelID); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expected Complete to invalidate the cache, got %v", err)
	}
}

// racingLedger invalidates the travel while the ledger is being read, as a
// concurrent Save would.
type racingLedger struct {
	storage.LedgerReader
	engine *Engine
}

func (r *racingLedger) LoadLedger(ctx context.Context, travelID string) (*models.Ledger, error) {
	ledger, err := r.LedgerReader.LoadLedger(ctx, travelID)
	r.engine.Invalidate(ctx, travelID)
	return ledger, err
}

func TestSummaryNotCachedAcrossInvalidation(t *testing.T) {
	mem := cache.NewMemoryCache(time.Minute)
	engine, store := setupEngine(t, mem)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	engine.ledger = &racingLedger{LedgerReader: store, engine: engine}
	if _, err := engine.Summary(ctx, travelID, "a"); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if _, err := mem.Get(ctx, travelID); !errors.Is(err, cache.ErrMiss) {
		t.Errorf("expected no cache entry after a concurrent invalidation, got %v", err)
	}

	engine.ledger = store
	if _, err := engine.Summary(ctx, travelID, "a"); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if _, err := mem.Get(ctx, travelID); err != nil {
		t.Errorf("expected summary to be cached, got %v", err)
	}
}

// brokenCache fails every call.
type brokenCache struct {
	calls int
}

func (b *brokenCache) Get(context.Context, string) (*models.Summary, error) {
	b.calls++
	return nil, errors.New("connection refused")
}

func (b *brokenCache) Set(context.Context, string, *models.Summary) error {
	b.calls++
	return errors.New("connection refused")
}

func (b *brokenCache) Invalidate(context.Context, string) error {
	b.calls++
	return errors.New("connection refused")
}

func TestCacheFailuresDoNotPropagate(t *testing.T) {
	broken := &brokenCache{}
	engine, store := setupEngine(t, broken)
	ctx := context.Background()

	travelID := createTravel(t, store, "a", "b")
	addExpense(t, store, travelID, "a", "100", "a", "b")

	summary, err := engine.Summary(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if len(summary.Recommended) != 1 {
		t.Errorf("expected 1 recommended settlement, got %d", len(summary.Recommended))
	}

	saved, err := engine.Save(ctx, travelID, "a")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := engine.Complete(ctx, travelID, "a", saved.Saved[0].ID); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if broken.calls == 0 {
		t.Error("expected the cache to be consulted")
	}
}

func TestTimeout(t *testing.T) {
	engine, store := setupEngine(t, nil)
	engine.timeout = time.Nanosecond

	travelID := createTravel(t, store, "a", "b")

	_, err := engine.Summary(context.Background(), travelID, "a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

// Package settlement assembles settlement summaries for a travel and drives
// the save and complete workflows.
//
// Balances and recommended transfers are always derived from the expense
// ledger; the only persisted settlement state is the saved plan.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/tripsettle/internal/cache"
	"github.com/mmynk/tripsettle/internal/calculator"
	"github.com/mmynk/tripsettle/internal/metrics"
	"github.com/mmynk/tripsettle/internal/models"
	"github.com/mmynk/tripsettle/internal/storage"
)

// Deps are the collaborators of an Engine. Cache and Logger are optional.
type Deps struct {
	Travels     storage.TravelStore
	Ledger      storage.LedgerReader
	Settlements storage.SettlementStore
	Cache       cache.SummaryCache
	Logger      *slog.Logger

	// Timeout bounds each operation; zero disables it.
	Timeout time.Duration
}

// Engine implements the summary, save and complete operations.
type Engine struct {
	travels     storage.TravelStore
	ledger      storage.LedgerReader
	settlements storage.SettlementStore
	cache       cache.SummaryCache
	logger      *slog.Logger
	timeout     time.Duration
	now         func() time.Time

	// generations counts invalidations per travel so a summary assembled
	// across an invalidation is not cached.
	mu          sync.Mutex
	generations map[string]uint64
}

// New creates an Engine from deps.
func New(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		travels:     deps.Travels,
		ledger:      deps.Ledger,
		settlements: deps.Settlements,
		cache:       deps.Cache,
		logger:      logger,
		timeout:     deps.Timeout,
		now:         time.Now,
		generations: make(map[string]uint64),
	}
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// authorize fails with ErrTravelNotFound or ErrNotMember unless requesterID
// belongs to the travel.
func (e *Engine) authorize(ctx context.Context, travelID, requesterID string) error {
	travel, err := e.travels.GetTravel(ctx, travelID)
	if err != nil {
		return err
	}
	if !travel.HasMember(requesterID) {
		return fmt.Errorf("%w: %s", models.ErrNotMember, requesterID)
	}
	return nil
}

// Summary returns balances, the saved plan and a recommended plan for the
// travel. A live cache entry is served after authorization.
func (e *Engine) Summary(ctx context.Context, travelID, requesterID string) (summary *models.Summary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(metrics.OpSummary, start, err) }()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(ctx, travelID, requesterID); err != nil {
		return nil, err
	}

	if cached := e.cacheGet(ctx, travelID); cached != nil {
		return cached, nil
	}

	gen := e.generation(travelID)
	summary, err = e.assemble(ctx, travelID)
	if err != nil {
		return nil, err
	}

	if e.generation(travelID) == gen {
		e.cacheSet(ctx, travelID, summary)
	}
	return summary, nil
}

// Save replaces the saved plan with the currently recommended one.
func (e *Engine) Save(ctx context.Context, travelID, requesterID string) (summary *models.Summary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(metrics.OpSave, start, err) }()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(ctx, travelID, requesterID); err != nil {
		return nil, err
	}

	ledger, err := e.ledger.LoadLedger(ctx, travelID)
	if err != nil {
		return nil, err
	}
	balances := calculator.ComputeBalances(ledger.Travel.Members, ledger.Expenses)
	transfers := calculator.Settle(balances)
	if len(transfers) == 0 {
		return nil, models.ErrNothingToSettle
	}

	saved, err := e.settlements.ReplaceAll(ctx, travelID, transfers)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Settlements saved", "travel_id", travelID, "count", len(saved), "requester", requesterID)

	e.Invalidate(ctx, travelID)
	return e.build(ledger.Travel, balances, transfers, saved), nil
}

// Complete marks one saved settlement as completed and returns the updated
// summary.
func (e *Engine) Complete(ctx context.Context, travelID, requesterID, settlementID string) (summary *models.Summary, err error) {
	start := time.Now()
	defer func() { metrics.ObserveOperation(metrics.OpComplete, start, err) }()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if err := e.authorize(ctx, travelID, requesterID); err != nil {
		return nil, err
	}

	if err := e.settlements.MarkCompleted(ctx, travelID, settlementID); err != nil {
		return nil, err
	}
	e.logger.Info("Settlement completed", "travel_id", travelID, "settlement_id", settlementID, "requester", requesterID)

	e.Invalidate(ctx, travelID)
	return e.assemble(ctx, travelID)
}

// Invalidate drops any cached summary of the travel. Failures are logged.
func (e *Engine) Invalidate(ctx context.Context, travelID string) {
	if e.cache == nil {
		return
	}
	e.mu.Lock()
	e.generations[travelID]++
	e.mu.Unlock()

	if err := e.cache.Invalidate(ctx, travelID); err != nil {
		e.logger.Warn("Summary cache invalidate failed", "travel_id", travelID, "error", err)
	}
}

func (e *Engine) generation(travelID string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generations[travelID]
}

// assemble recomputes the summary from storage.
func (e *Engine) assemble(ctx context.Context, travelID string) (*models.Summary, error) {
	ledger, err := e.ledger.LoadLedger(ctx, travelID)
	if err != nil {
		return nil, err
	}
	saved, err := e.settlements.ListSaved(ctx, travelID)
	if err != nil {
		return nil, err
	}

	balances := calculator.ComputeBalances(ledger.Travel.Members, ledger.Expenses)
	return e.build(ledger.Travel, balances, calculator.Settle(balances), saved), nil
}

func (e *Engine) build(travel *models.Travel, balances []models.Balance, transfers []models.Transfer, saved []*models.Settlement) *models.Summary {
	summary := &models.Summary{
		TravelID:     travel.ID,
		BaseCurrency: travel.BaseCurrency,
		Balances:     make([]models.MemberBalance, 0, len(balances)),
		Saved:        saved,
		Recommended:  make([]*models.Settlement, 0, len(transfers)),
	}
	if summary.Saved == nil {
		summary.Saved = []*models.Settlement{}
	}
	for _, s := range summary.Saved {
		resolveNames(travel, s)
	}

	for _, b := range balances {
		mb := models.MemberBalance{MemberID: b.MemberID, Balance: b.Amount}
		if member, ok := travel.Member(b.MemberID); ok {
			mb.Name = member.Name
		}
		summary.Balances = append(summary.Balances, mb)
	}

	now := e.now().Unix()
	for _, t := range transfers {
		s := &models.Settlement{
			ID:           uuid.New().String(),
			TravelID:     travel.ID,
			FromMemberID: t.FromMemberID,
			ToMemberID:   t.ToMemberID,
			Amount:       t.Amount,
			Status:       models.StatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		resolveNames(travel, s)
		summary.Recommended = append(summary.Recommended, s)
	}
	metrics.ObservePlan(len(transfers))

	return summary
}

// resolveNames fills the display names of both sides of s. Members without a
// name are shown by ID.
func resolveNames(travel *models.Travel, s *models.Settlement) {
	s.FromName = displayName(travel, s.FromMemberID)
	s.ToName = displayName(travel, s.ToMemberID)
}

func displayName(travel *models.Travel, memberID string) string {
	if member, ok := travel.Member(memberID); ok {
		return member.DisplayName()
	}
	return memberID
}

func (e *Engine) cacheGet(ctx context.Context, travelID string) *models.Summary {
	if e.cache == nil {
		return nil
	}
	summary, err := e.cache.Get(ctx, travelID)
	switch {
	case err == nil:
		metrics.CacheRequest(metrics.CacheHit)
		return summary
	case errors.Is(err, cache.ErrMiss):
		metrics.CacheRequest(metrics.CacheMiss)
	default:
		metrics.CacheRequest(metrics.CacheError)
		e.logger.Warn("Summary cache read failed", "travel_id", travelID, "error", err)
	}
	return nil
}

func (e *Engine) cacheSet(ctx context.Context, travelID string, summary *models.Summary) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Set(ctx, travelID, summary); err != nil {
		e.logger.Warn("Summary cache write failed", "travel_id", travelID, "error", err)
	}
}

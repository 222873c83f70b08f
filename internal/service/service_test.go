package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/auth"
	"github.com/mmynk/tripsettle/internal/cache"
	"github.com/mmynk/tripsettle/internal/currency"
	"github.com/mmynk/tripsettle/internal/ledger"
	"github.com/mmynk/tripsettle/internal/middleware"
	"github.com/mmynk/tripsettle/internal/settlement"
	"github.com/mmynk/tripsettle/internal/storage/sqlite"
)

type testEnv struct {
	url string
	jwt *auth.JWTManager
}

// clients bundles Connect clients that authenticate as one member.
type clients struct {
	getSummary *connect.Client[GetSummaryRequest, Summary]
	save       *connect.Client[SaveSettlementsRequest, Summary]
	complete   *connect.Client[CompleteSettlementRequest, Summary]

	createTravel *connect.Client[CreateTravelRequest, Travel]
	getTravel    *connect.Client[GetTravelRequest, Travel]
	addMember    *connect.Client[AddMemberRequest, Travel]

	createExpense *connect.Client[CreateExpenseRequest, Expense]
	updateExpense *connect.Client[UpdateExpenseRequest, Expense]
	deleteExpense *connect.Client[DeleteExpenseRequest, DeleteExpenseResponse]
	listExpenses  *connect.Client[ListExpensesRequest, ListExpensesResponse]
}

// setupTestServer creates a test server backed by a temp SQLite database, an
// in-memory summary cache, and USD->KRW at 1350.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "tripsettle-service-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rates := currency.NewStaticRates()
	rates.Set("USD", "KRW", decimal.RequireFromString("1350"))

	engine := settlement.New(settlement.Deps{
		Travels:     store,
		Ledger:      store,
		Settlements: store,
		Cache:       cache.NewMemoryCache(time.Minute),
		Timeout:     5 * time.Second,
	})

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	mux := http.NewServeMux()
	Register(mux, Services{
		Settlements: NewSettlementService(engine),
		Travels:     NewTravelService(store, engine),
		Expenses:    NewExpenseService(ledger.NewService(store, currency.NewNormalizer(rates), engine)),
	}, connect.WithInterceptors(middleware.RequireAuth(jwtManager)))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{url: server.URL, jwt: jwtManager}
}

// bearer returns a client interceptor that authenticates as memberID.
func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}

func (e *testEnv) as(t *testing.T, memberID string) *clients {
	t.Helper()

	token := ""
	if memberID != "" {
		var err error
		token, err = e.jwt.Generate(memberID)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}
	}
	opts := []connect.ClientOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(bearer(token)),
	}

	return &clients{
		getSummary: connect.NewClient[GetSummaryRequest, Summary](http.DefaultClient, e.url+GetSummaryProcedure, opts...),
		save:       connect.NewClient[SaveSettlementsRequest, Summary](http.DefaultClient, e.url+SaveSettlementsProcedure, opts...),
		complete:   connect.NewClient[CompleteSettlementRequest, Summary](http.DefaultClient, e.url+CompleteSettlementProcedure, opts...),

		createTravel: connect.NewClient[CreateTravelRequest, Travel](http.DefaultClient, e.url+CreateTravelProcedure, opts...),
		getTravel:    connect.NewClient[GetTravelRequest, Travel](http.DefaultClient, e.url+GetTravelProcedure, opts...),
		addMember:    connect.NewClient[AddMemberRequest, Travel](http.DefaultClient, e.url+AddMemberProcedure, opts...),

		createExpense: connect.NewClient[CreateExpenseRequest, Expense](http.DefaultClient, e.url+CreateExpenseProcedure, opts...),
		updateExpense: connect.NewClient[UpdateExpenseRequest, Expense](http.DefaultClient, e.url+UpdateExpenseProcedure, opts...),
		deleteExpense: connect.NewClient[DeleteExpenseRequest, DeleteExpenseResponse](http.DefaultClient, e.url+DeleteExpenseProcedure, opts...),
		listExpenses:  connect.NewClient[ListExpensesRequest, ListExpensesResponse](http.DefaultClient, e.url+ListExpensesProcedure, opts...),
	}
}

func strPtr(s string) *string { return &s }

// createTrip creates a KRW travel owned by the first member and adds the rest.
func createTrip(t *testing.T, env *testEnv, memberIDs ...string) string {
	t.Helper()
	ctx := context.Background()
	owner := env.as(t, memberIDs[0])

	resp, err := owner.createTravel.CallUnary(ctx, connect.NewRequest(&CreateTravelRequest{
		Name:         "Jeju",
		BaseCurrency: "krw",
		DisplayName:  strPtr("Owner"),
	}))
	if err != nil {
		t.Fatalf("CreateTravel failed: %v", err)
	}
	travelID := resp.Msg.ID

	for _, id := range memberIDs[1:] {
		if _, err := owner.addMember.CallUnary(ctx, connect.NewRequest(&AddMemberRequest{
			TravelID: travelID,
			MemberID: id,
		})); err != nil {
			t.Fatalf("AddMember %s failed: %v", id, err)
		}
	}
	return travelID
}

func addExpense(t *testing.T, c *clients, travelID, payer, amount, currency string, participants ...string) *Expense {
	t.Helper()

	resp, err := c.createExpense.CallUnary(context.Background(), connect.NewRequest(&CreateExpenseRequest{
		TravelID:       travelID,
		PayerID:        payer,
		Description:    "shared",
		Amount:         amount,
		Currency:       currency,
		ParticipantIDs: participants,
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return resp.Msg
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil error", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected %v, got %v (%v)", want, got, err)
	}
}

package service

import (
	"net/http"

	"connectrpc.com/connect"
)

// Connect procedure paths.
const (
	GetSummaryProcedure         = "/tripsettle.v1.SettlementService/GetSummary"
	SaveSettlementsProcedure    = "/tripsettle.v1.SettlementService/SaveSettlements"
	CompleteSettlementProcedure = "/tripsettle.v1.SettlementService/CompleteSettlement"

	CreateTravelProcedure = "/tripsettle.v1.TravelService/CreateTravel"
	GetTravelProcedure    = "/tripsettle.v1.TravelService/GetTravel"
	AddMemberProcedure    = "/tripsettle.v1.TravelService/AddMember"

	CreateExpenseProcedure = "/tripsettle.v1.ExpenseService/CreateExpense"
	UpdateExpenseProcedure = "/tripsettle.v1.ExpenseService/UpdateExpense"
	DeleteExpenseProcedure = "/tripsettle.v1.ExpenseService/DeleteExpense"
	ListExpensesProcedure  = "/tripsettle.v1.ExpenseService/ListExpenses"
)

// Services groups the Connect services served by Register.
type Services struct {
	Settlements *SettlementService
	Travels     *TravelService
	Expenses    *ExpenseService
}

// Register mounts every procedure on mux. The JSON codec is always installed;
// opts typically carry the auth and logging interceptors.
func Register(mux *http.ServeMux, svcs Services, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(JSONCodec{})}, opts...)

	mux.Handle(GetSummaryProcedure, connect.NewUnaryHandler(GetSummaryProcedure, svcs.Settlements.GetSummary, opts...))
	mux.Handle(SaveSettlementsProcedure, connect.NewUnaryHandler(SaveSettlementsProcedure, svcs.Settlements.SaveSettlements, opts...))
	mux.Handle(CompleteSettlementProcedure, connect.NewUnaryHandler(CompleteSettlementProcedure, svcs.Settlements.CompleteSettlement, opts...))

	mux.Handle(CreateTravelProcedure, connect.NewUnaryHandler(CreateTravelProcedure, svcs.Travels.CreateTravel, opts...))
	mux.Handle(GetTravelProcedure, connect.NewUnaryHandler(GetTravelProcedure, svcs.Travels.GetTravel, opts...))
	mux.Handle(AddMemberProcedure, connect.NewUnaryHandler(AddMemberProcedure, svcs.Travels.AddMember, opts...))

	mux.Handle(CreateExpenseProcedure, connect.NewUnaryHandler(CreateExpenseProcedure, svcs.Expenses.CreateExpense, opts...))
	mux.Handle(UpdateExpenseProcedure, connect.NewUnaryHandler(UpdateExpenseProcedure, svcs.Expenses.UpdateExpense, opts...))
	mux.Handle(DeleteExpenseProcedure, connect.NewUnaryHandler(DeleteExpenseProcedure, svcs.Expenses.DeleteExpense, opts...))
	mux.Handle(ListExpensesProcedure, connect.NewUnaryHandler(ListExpensesProcedure, svcs.Expenses.ListExpenses, opts...))
}

package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/ledger"
	"github.com/mmynk/tripsettle/internal/models"
)

// ExpenseService exposes the expense ledger over Connect.
type ExpenseService struct {
	ledger *ledger.Service
}

// NewExpenseService creates an ExpenseService backed by the ledger service.
func NewExpenseService(ledger *ledger.Service) *ExpenseService {
	return &ExpenseService{ledger: ledger}
}

func expenseInput(msg *CreateExpenseRequest) (ledger.ExpenseInput, error) {
	amount, err := decimal.NewFromString(msg.Amount)
	if err != nil {
		return ledger.ExpenseInput{}, fmt.Errorf("%w: %q", models.ErrInvalidAmount, msg.Amount)
	}
	return ledger.ExpenseInput{
		PayerID:        msg.PayerID,
		Description:    msg.Description,
		Amount:         amount,
		Currency:       msg.Currency,
		ParticipantIDs: msg.ParticipantIDs,
	}, nil
}

// CreateExpense records a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[CreateExpenseRequest]) (*connect.Response[Expense], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}

	in, err := expenseInput(req.Msg)
	if err != nil {
		return nil, toConnectError("CreateExpense", err)
	}

	expense, err := s.ledger.Create(ctx, req.Msg.TravelID, memberID, in)
	if err != nil {
		return nil, toConnectError("CreateExpense", err)
	}
	return connect.NewResponse(ptr(toExpenseMessage(expense))), nil
}

// UpdateExpense replaces an existing expense.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[UpdateExpenseRequest]) (*connect.Response[Expense], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}
	if err := requireField("expense_id", req.Msg.ExpenseID); err != nil {
		return nil, err
	}

	in, err := expenseInput(&req.Msg.CreateExpenseRequest)
	if err != nil {
		return nil, toConnectError("UpdateExpense", err)
	}

	expense, err := s.ledger.Update(ctx, req.Msg.TravelID, memberID, req.Msg.ExpenseID, in)
	if err != nil {
		return nil, toConnectError("UpdateExpense", err)
	}
	return connect.NewResponse(ptr(toExpenseMessage(expense))), nil
}

// DeleteExpense removes an expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[DeleteExpenseRequest]) (*connect.Response[DeleteExpenseResponse], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}
	if err := requireField("expense_id", req.Msg.ExpenseID); err != nil {
		return nil, err
	}

	if err := s.ledger.Delete(ctx, req.Msg.TravelID, memberID, req.Msg.ExpenseID); err != nil {
		return nil, toConnectError("DeleteExpense", err)
	}
	return connect.NewResponse(&DeleteExpenseResponse{}), nil
}

// ListExpenses returns every expense of a travel.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[ListExpensesRequest]) (*connect.Response[ListExpensesResponse], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}

	expenses, err := s.ledger.List(ctx, req.Msg.TravelID, memberID)
	if err != nil {
		return nil, toConnectError("ListExpenses", err)
	}

	resp := &ListExpensesResponse{Expenses: make([]Expense, len(expenses))}
	for i, e := range expenses {
		resp.Expenses[i] = toExpenseMessage(e)
	}
	return connect.NewResponse(resp), nil
}

func ptr[T any](v T) *T { return &v }

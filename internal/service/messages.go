package service

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/tripsettle/internal/models"
)

// Settlement service

type GetSummaryRequest struct {
	TravelID string `json:"travelId"`
}

type SaveSettlementsRequest struct {
	TravelID string `json:"travelId"`
}

type CompleteSettlementRequest struct {
	TravelID     string `json:"travelId"`
	SettlementID string `json:"settlementId"`
}

type Balance struct {
	MemberID string  `json:"memberId"`
	Name     *string `json:"name"`
	Balance  string  `json:"balance"`
}

type Settlement struct {
	ID         string `json:"id"`
	FromMember string `json:"fromMember"`
	ToMember   string `json:"toMember"`
	Amount     string `json:"amount"`
	Status     string `json:"status"`
	UpdatedAt  int64  `json:"updatedAt"`
}

type Summary struct {
	TravelID               string       `json:"travelId"`
	BaseCurrency           string       `json:"baseCurrency"`
	Balances               []Balance    `json:"balances"`
	SavedSettlements       []Settlement `json:"savedSettlements"`
	RecommendedSettlements []Settlement `json:"recommendedSettlements"`
}

// Travel service

type CreateTravelRequest struct {
	Name         string  `json:"name"`
	BaseCurrency string  `json:"baseCurrency"`
	DisplayName  *string `json:"displayName"`
}

type GetTravelRequest struct {
	TravelID string `json:"travelId"`
}

type AddMemberRequest struct {
	TravelID    string  `json:"travelId"`
	MemberID    string  `json:"memberId"`
	DisplayName *string `json:"displayName"`
}

type Member struct {
	MemberID string  `json:"memberId"`
	Name     *string `json:"name"`
	Role     string  `json:"role"`
	JoinedAt int64   `json:"joinedAt"`
}

type Travel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	BaseCurrency string   `json:"baseCurrency"`
	CreatedAt    int64    `json:"createdAt"`
	Members      []Member `json:"members"`
}

// Expense service

type CreateExpenseRequest struct {
	TravelID       string   `json:"travelId"`
	PayerID        string   `json:"payerId"`
	Description    string   `json:"description"`
	Amount         string   `json:"amount"`
	Currency       string   `json:"currency"`
	ParticipantIDs []string `json:"participantIds"`
}

type UpdateExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
	CreateExpenseRequest
}

type DeleteExpenseRequest struct {
	TravelID  string `json:"travelId"`
	ExpenseID string `json:"expenseId"`
}

type DeleteExpenseResponse struct{}

type ListExpensesRequest struct {
	TravelID string `json:"travelId"`
}

type Share struct {
	MemberID string `json:"memberId"`
	Amount   string `json:"amount"`
}

type Expense struct {
	ID              string  `json:"id"`
	TravelID        string  `json:"travelId"`
	PayerID         string  `json:"payerId"`
	Description     string  `json:"description"`
	Amount          string  `json:"amount"`
	Currency        string  `json:"currency"`
	ConvertedAmount string  `json:"convertedAmount"`
	Shares          []Share `json:"shares"`
	CreatedAt       int64   `json:"createdAt"`
	UpdatedAt       int64   `json:"updatedAt"`
}

type ListExpensesResponse struct {
	Expenses []Expense `json:"expenses"`
}

// money formats an amount with two fraction digits.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toSummaryMessage(s *models.Summary) *Summary {
	out := &Summary{
		TravelID:               s.TravelID,
		BaseCurrency:           s.BaseCurrency,
		Balances:               make([]Balance, len(s.Balances)),
		SavedSettlements:       toSettlementMessages(s.Saved),
		RecommendedSettlements: toSettlementMessages(s.Recommended),
	}
	for i, b := range s.Balances {
		out.Balances[i] = Balance{MemberID: b.MemberID, Name: b.Name, Balance: money(b.Balance)}
	}
	return out
}

func toSettlementMessages(settlements []*models.Settlement) []Settlement {
	out := make([]Settlement, len(settlements))
	for i, s := range settlements {
		out[i] = Settlement{
			ID:         s.ID,
			FromMember: s.FromName,
			ToMember:   s.ToName,
			Amount:     money(s.Amount),
			Status:     string(s.Status),
			UpdatedAt:  s.UpdatedAt,
		}
	}
	return out
}

func toTravelMessage(t *models.Travel) *Travel {
	out := &Travel{
		ID:           t.ID,
		Name:         t.Name,
		BaseCurrency: t.BaseCurrency,
		CreatedAt:    t.CreatedAt,
		Members:      make([]Member, len(t.Members)),
	}
	for i, m := range t.Members {
		out.Members[i] = Member{MemberID: m.ID, Name: m.Name, Role: string(m.Role), JoinedAt: m.JoinedAt}
	}
	return out
}

func toExpenseMessage(e *models.Expense) Expense {
	out := Expense{
		ID:              e.ID,
		TravelID:        e.TravelID,
		PayerID:         e.PayerID,
		Description:     e.Description,
		Amount:          e.Amount.String(),
		Currency:        e.Currency,
		ConvertedAmount: money(e.ConvertedAmount),
		Shares:          make([]Share, len(e.Shares)),
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
	for i, s := range e.Shares {
		out.Shares[i] = Share{MemberID: s.MemberID, Amount: money(s.Amount)}
	}
	return out
}

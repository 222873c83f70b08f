package service

import (
	"context"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsettle/internal/middleware"
	"github.com/mmynk/tripsettle/internal/settlement"
)

// SettlementService exposes the settlement engine over Connect.
type SettlementService struct {
	engine *settlement.Engine
}

// NewSettlementService creates a SettlementService backed by engine.
func NewSettlementService(engine *settlement.Engine) *SettlementService {
	return &SettlementService{engine: engine}
}

// requesterID returns the authenticated member or an Unauthenticated error.
func requesterID(ctx context.Context) (string, error) {
	memberID := middleware.GetMemberID(ctx)
	if memberID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("authentication required"))
	}
	return memberID, nil
}

func requireField(name, value string) error {
	if value == "" {
		return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s required", name))
	}
	return nil
}

// GetSummary returns balances, saved settlements and recommended settlements.
func (s *SettlementService) GetSummary(ctx context.Context, req *connect.Request[GetSummaryRequest]) (*connect.Response[Summary], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}

	summary, err := s.engine.Summary(ctx, req.Msg.TravelID, memberID)
	if err != nil {
		return nil, toConnectError("GetSummary", err)
	}
	return connect.NewResponse(toSummaryMessage(summary)), nil
}

// SaveSettlements replaces the saved plan with the current recommendation.
func (s *SettlementService) SaveSettlements(ctx context.Context, req *connect.Request[SaveSettlementsRequest]) (*connect.Response[Summary], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}

	summary, err := s.engine.Save(ctx, req.Msg.TravelID, memberID)
	if err != nil {
		return nil, toConnectError("SaveSettlements", err)
	}
	return connect.NewResponse(toSummaryMessage(summary)), nil
}

// CompleteSettlement marks a saved settlement as paid.
func (s *SettlementService) CompleteSettlement(ctx context.Context, req *connect.Request[CompleteSettlementRequest]) (*connect.Response[Summary], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}
	if err := requireField("settlement_id", req.Msg.SettlementID); err != nil {
		return nil, err
	}

	summary, err := s.engine.Complete(ctx, req.Msg.TravelID, memberID, req.Msg.SettlementID)
	if err != nil {
		return nil, toConnectError("CompleteSettlement", err)
	}
	return connect.NewResponse(toSummaryMessage(summary)), nil
}

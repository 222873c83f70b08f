package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/tripsettle/internal/currency"
	"github.com/mmynk/tripsettle/internal/ledger"
	"github.com/mmynk/tripsettle/internal/models"
	"github.com/mmynk/tripsettle/internal/storage"
)

// TravelService implements travel creation and membership.
type TravelService struct {
	store       storage.TravelStore
	invalidator ledger.Invalidator
}

// NewTravelService creates a new TravelService with the given storage backend.
// invalidator is told when a membership change makes cached summaries stale
// and may be nil.
func NewTravelService(store storage.TravelStore, invalidator ledger.Invalidator) *TravelService {
	return &TravelService{store: store, invalidator: invalidator}
}

// CreateTravel creates a travel owned by the caller.
func (s *TravelService) CreateTravel(ctx context.Context, req *connect.Request[CreateTravelRequest]) (*connect.Response[Travel], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, toConnectError("CreateTravel", fmt.Errorf("%w: name required", models.ErrInvalidTravel))
	}
	base, err := currency.Normalize(req.Msg.BaseCurrency)
	if err != nil {
		return nil, toConnectError("CreateTravel", err)
	}

	travel := &models.Travel{
		Name:         name,
		BaseCurrency: base,
		Members: []models.Member{
			{ID: memberID, Name: req.Msg.DisplayName, Role: models.RoleOwner},
		},
	}
	if err := s.store.CreateTravel(ctx, travel); err != nil {
		return nil, toConnectError("CreateTravel", err)
	}
	slog.Info("Travel created", "travel_id", travel.ID, "owner", memberID, "base_currency", base)

	return connect.NewResponse(toTravelMessage(travel)), nil
}

// GetTravel returns a travel to one of its members.
func (s *TravelService) GetTravel(ctx context.Context, req *connect.Request[GetTravelRequest]) (*connect.Response[Travel], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}

	travel, err := s.store.GetTravel(ctx, req.Msg.TravelID)
	if err != nil {
		return nil, toConnectError("GetTravel", err)
	}
	if !travel.HasMember(memberID) {
		return nil, toConnectError("GetTravel", fmt.Errorf("%w: %s", models.ErrNotMember, memberID))
	}

	return connect.NewResponse(toTravelMessage(travel)), nil
}

// AddMember adds a member to a travel. Only the owner may add members.
func (s *TravelService) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[Travel], error) {
	memberID, err := requesterID(ctx)
	if err != nil {
		return nil, err
	}
	if err := requireField("travel_id", req.Msg.TravelID); err != nil {
		return nil, err
	}
	if err := requireField("member_id", req.Msg.MemberID); err != nil {
		return nil, err
	}

	travel, err := s.store.GetTravel(ctx, req.Msg.TravelID)
	if err != nil {
		return nil, toConnectError("AddMember", err)
	}
	requester, ok := travel.Member(memberID)
	if !ok {
		return nil, toConnectError("AddMember", fmt.Errorf("%w: %s", models.ErrNotMember, memberID))
	}
	if requester.Role != models.RoleOwner {
		return nil, toConnectError("AddMember", models.ErrNotOwner)
	}

	member := models.Member{ID: req.Msg.MemberID, Name: req.Msg.DisplayName, Role: models.RoleMember}
	if err := s.store.AddMember(ctx, travel.ID, member); err != nil {
		return nil, toConnectError("AddMember", err)
	}
	slog.Info("Member added", "travel_id", travel.ID, "member_id", member.ID, "added_by", memberID)
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, travel.ID)
	}

	travel, err = s.store.GetTravel(ctx, travel.ID)
	if err != nil {
		return nil, toConnectError("AddMember", err)
	}
	return connect.NewResponse(toTravelMessage(travel)), nil
}

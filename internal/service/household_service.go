package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/roomsplit/internal/api"
	"github.com/mmynk/roomsplit/internal/events"
	"github.com/mmynk/roomsplit/internal/models"
	"github.com/mmynk/roomsplit/internal/storage"
)

// HouseholdService implements api.HouseholdServiceHandler.
type HouseholdService struct {
	store     storage.Store
	publisher events.Publisher
}

// NewHouseholdService creates a HouseholdService with the given storage
// backend. A nil publisher drops events.
func NewHouseholdService(store storage.Store, publisher events.Publisher) *HouseholdService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &HouseholdService{store: store, publisher: publisher}
}

// CreateHousehold creates a household owned by the caller. When MemberName
// is set the caller is also added as a linked member.
func (s *HouseholdService) CreateHousehold(ctx context.Context, req *connect.Request[api.CreateHouseholdRequest]) (*connect.Response[api.CreateHouseholdResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}

	slog.Info("CreateHousehold request received", "name", req.Msg.Name, "user_id", userID)

	household := &models.Household{Name: req.Msg.Name, CreatedBy: userID}
	if err := s.store.CreateHousehold(ctx, household); err != nil {
		slog.Error("CreateHousehold failed", "error", err)
		return nil, toConnectError(err)
	}

	resp := &api.CreateHouseholdResponse{Household: householdToAPI(household)}
	if req.Msg.MemberName != "" {
		member := &models.Member{HouseholdID: household.ID, Name: req.Msg.MemberName, UserID: userID}
		if err := s.store.CreateMember(ctx, member); err != nil {
			slog.Error("CreateHousehold: adding creator as member failed", "household_id", household.ID, "error", err)
			return nil, toConnectError(err)
		}
		resp.Member = memberToAPI(member)
	}

	slog.Info("Household created", "household_id", household.ID)
	return connect.NewResponse(resp), nil
}

// GetHousehold returns a household with its rooms and members.
func (s *HouseholdService) GetHousehold(ctx context.Context, req *connect.Request[api.GetHouseholdRequest]) (*connect.Response[api.GetHouseholdResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}

	rooms, err := s.store.ListRooms(ctx, req.Msg.HouseholdID)
	if err != nil {
		slog.Error("GetHousehold: listing rooms failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.GetHouseholdResponse{
		Household: householdToAPI(access.household),
		Rooms:     roomsToAPI(rooms),
		Members:   membersToAPI(access.members),
	}), nil
}

// ListHouseholds returns every household the caller can access.
func (s *HouseholdService) ListHouseholds(ctx context.Context, req *connect.Request[api.ListHouseholdsRequest]) (*connect.Response[api.ListHouseholdsResponse], error) {
	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	households, err := s.store.ListHouseholdsForUser(ctx, userID)
	if err != nil {
		slog.Error("ListHouseholds failed", "user_id", userID, "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*api.Household, 0, len(households))
	for _, h := range households {
		out = append(out, householdToAPI(h))
	}

	slog.Info("ListHouseholds successful", "user_id", userID, "count", len(out))
	return connect.NewResponse(&api.ListHouseholdsResponse{Households: out}), nil
}

// DeleteHousehold removes a household and everything in it. Only the
// creator may do this.
func (s *HouseholdService) DeleteHousehold(ctx context.Context, req *connect.Request[api.DeleteHouseholdRequest]) (*connect.Response[api.DeleteHouseholdResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}
	if access.household.CreatedBy != access.userID {
		return nil, connect.NewError(connect.CodePermissionDenied, errCreatorOnly)
	}

	if err := s.store.DeleteHousehold(ctx, req.Msg.HouseholdID); err != nil {
		slog.Error("DeleteHousehold failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Household deleted", "household_id", req.Msg.HouseholdID, "user_id", access.userID)
	return connect.NewResponse(&api.DeleteHouseholdResponse{}), nil
}

func (s *HouseholdService) CreateRoom(ctx context.Context, req *connect.Request[api.CreateRoomRequest]) (*connect.Response[api.CreateRoomResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, req.Msg.HouseholdID); err != nil {
		return nil, err
	}

	room := &models.Room{HouseholdID: req.Msg.HouseholdID, Name: req.Msg.Name}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		slog.Error("CreateRoom failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Room created", "household_id", room.HouseholdID, "room_id", room.ID)
	return connect.NewResponse(&api.CreateRoomResponse{Room: roomToAPI(room)}), nil
}

func (s *HouseholdService) ListRooms(ctx context.Context, req *connect.Request[api.ListRoomsRequest]) (*connect.Response[api.ListRoomsResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, req.Msg.HouseholdID); err != nil {
		return nil, err
	}

	rooms, err := s.store.ListRooms(ctx, req.Msg.HouseholdID)
	if err != nil {
		slog.Error("ListRooms failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.ListRoomsResponse{Rooms: roomsToAPI(rooms)}), nil
}

// DeleteRoom removes a room. Its members stay in the household, unassigned.
func (s *HouseholdService) DeleteRoom(ctx context.Context, req *connect.Request[api.DeleteRoomRequest]) (*connect.Response[api.DeleteRoomResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, req.Msg.HouseholdID); err != nil {
		return nil, err
	}
	if err := s.checkRoom(ctx, req.Msg.HouseholdID, req.Msg.RoomID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteRoom(ctx, req.Msg.RoomID); err != nil {
		slog.Error("DeleteRoom failed", "room_id", req.Msg.RoomID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Room deleted", "household_id", req.Msg.HouseholdID, "room_id", req.Msg.RoomID)
	return connect.NewResponse(&api.DeleteRoomResponse{}), nil
}

// AddMember adds a roommate, optionally placed in a room and linked to a
// registered user.
func (s *HouseholdService) AddMember(ctx context.Context, req *connect.Request[api.AddMemberRequest]) (*connect.Response[api.AddMemberResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}
	if err := s.checkMemberRefs(ctx, access, "", req.Msg.RoomID, req.Msg.UserID); err != nil {
		return nil, err
	}

	member := &models.Member{
		HouseholdID: req.Msg.HouseholdID,
		RoomID:      req.Msg.RoomID,
		Name:        req.Msg.Name,
		UserID:      req.Msg.UserID,
	}
	if err := s.store.CreateMember(ctx, member); err != nil {
		slog.Error("AddMember failed", "household_id", req.Msg.HouseholdID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Member added", "household_id", member.HouseholdID, "member_id", member.ID)
	events.Emit(ctx, s.publisher, events.New(events.MemberAdded, member.HouseholdID, access.userID, member.ID))
	return connect.NewResponse(&api.AddMemberResponse{Member: memberToAPI(member)}), nil
}

func (s *HouseholdService) ListMembers(ctx context.Context, req *connect.Request[api.ListMembersRequest]) (*connect.Response[api.ListMembersResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.ListMembersResponse{Members: membersToAPI(access.members)}), nil
}

// UpdateMember renames a member, moves them between rooms or changes the
// linked user.
func (s *HouseholdService) UpdateMember(ctx context.Context, req *connect.Request[api.UpdateMemberRequest]) (*connect.Response[api.UpdateMemberResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}
	existing := access.member(req.Msg.MemberID)
	if existing == nil {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrNotFound)
	}
	if err := s.checkMemberRefs(ctx, access, existing.ID, req.Msg.RoomID, req.Msg.UserID); err != nil {
		return nil, err
	}

	updated := *existing
	updated.Name = req.Msg.Name
	updated.RoomID = req.Msg.RoomID
	updated.UserID = req.Msg.UserID
	if err := s.store.UpdateMember(ctx, &updated); err != nil {
		slog.Error("UpdateMember failed", "member_id", updated.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Member updated", "household_id", updated.HouseholdID, "member_id", updated.ID)
	return connect.NewResponse(&api.UpdateMemberResponse{Member: memberToAPI(&updated)}), nil
}

// RemoveMember deletes a member. Members who paid for or share in an
// expense cannot be removed until those expenses are edited or deleted.
func (s *HouseholdService) RemoveMember(ctx context.Context, req *connect.Request[api.RemoveMemberRequest]) (*connect.Response[api.RemoveMemberResponse], error) {
	if err := validateMsg(req.Msg); err != nil {
		return nil, err
	}
	access, err := authorize(ctx, s.store, req.Msg.HouseholdID)
	if err != nil {
		return nil, err
	}
	if access.member(req.Msg.MemberID) == nil {
		return nil, connect.NewError(connect.CodeNotFound, storage.ErrNotFound)
	}

	if err := s.store.DeleteMember(ctx, req.Msg.MemberID); err != nil {
		slog.Warn("RemoveMember failed", "member_id", req.Msg.MemberID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Info("Member removed", "household_id", req.Msg.HouseholdID, "member_id", req.Msg.MemberID)
	events.Emit(ctx, s.publisher, events.New(events.MemberRemoved, req.Msg.HouseholdID, access.userID, req.Msg.MemberID))
	return connect.NewResponse(&api.RemoveMemberResponse{}), nil
}

// checkRoom verifies that roomID is a room of householdID.
func (s *HouseholdService) checkRoom(ctx context.Context, householdID, roomID string) error {
	rooms, err := s.store.ListRooms(ctx, householdID)
	if err != nil {
		return toConnectError(err)
	}
	for _, r := range rooms {
		if r.ID == roomID {
			return nil
		}
	}
	return wrongHousehold("room", roomID)
}

// checkMemberRefs validates the optional room and user of a member being
// created or updated. A user may be linked to at most one member per
// household.
func (s *HouseholdService) checkMemberRefs(ctx context.Context, access *householdAccess, memberID, roomID, userID string) error {
	if roomID != "" {
		if err := s.checkRoom(ctx, access.household.ID, roomID); err != nil {
			return err
		}
	}
	if userID == "" {
		return nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return toConnectError(err)
	}
	if user == nil {
		return connect.NewError(connect.CodeInvalidArgument, storage.ErrNotFound)
	}
	for _, m := range access.members {
		if m.UserID == userID && m.ID != memberID {
			return connect.NewError(connect.CodeAlreadyExists, errUserAlreadyLinked)
		}
	}
	return nil
}

func householdToAPI(h *models.Household) *api.Household {
	return &api.Household{
		ID:        h.ID,
		Name:      h.Name,
		CreatedBy: h.CreatedBy,
		CreatedAt: h.CreatedAt,
	}
}

func roomToAPI(r *models.Room) *api.Room {
	return &api.Room{
		ID:          r.ID,
		HouseholdID: r.HouseholdID,
		Name:        r.Name,
		CreatedAt:   r.CreatedAt,
	}
}

func roomsToAPI(rooms []*models.Room) []*api.Room {
	out := make([]*api.Room, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, roomToAPI(r))
	}
	return out
}

func memberToAPI(m *models.Member) *api.Member {
	return &api.Member{
		ID:          m.ID,
		HouseholdID: m.HouseholdID,
		RoomID:      m.RoomID,
		Name:        m.Name,
		UserID:      m.UserID,
		CreatedAt:   m.CreatedAt,
	}
}

func membersToAPI(members []*models.Member) []*api.Member {
	out := make([]*api.Member, 0, len(members))
	for _, m := range members {
		out = append(out, memberToAPI(m))
	}
	return out
}

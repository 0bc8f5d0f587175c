package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// HouseholdServiceName is the fully-qualified name of the HouseholdService.
const HouseholdServiceName = "roomsplit.v1.HouseholdService"

const (
	HouseholdServiceCreateHouseholdProcedure = "/roomsplit.v1.HouseholdService/CreateHousehold"
	HouseholdServiceGetHouseholdProcedure    = "/roomsplit.v1.HouseholdService/GetHousehold"
	HouseholdServiceListHouseholdsProcedure  = "/roomsplit.v1.HouseholdService/ListHouseholds"
	HouseholdServiceDeleteHouseholdProcedure = "/roomsplit.v1.HouseholdService/DeleteHousehold"
	HouseholdServiceCreateRoomProcedure      = "/roomsplit.v1.HouseholdService/CreateRoom"
	HouseholdServiceListRoomsProcedure       = "/roomsplit.v1.HouseholdService/ListRooms"
	HouseholdServiceDeleteRoomProcedure      = "/roomsplit.v1.HouseholdService/DeleteRoom"
	HouseholdServiceAddMemberProcedure       = "/roomsplit.v1.HouseholdService/AddMember"
	HouseholdServiceListMembersProcedure     = "/roomsplit.v1.HouseholdService/ListMembers"
	HouseholdServiceUpdateMemberProcedure    = "/roomsplit.v1.HouseholdService/UpdateMember"
	HouseholdServiceRemoveMemberProcedure    = "/roomsplit.v1.HouseholdService/RemoveMember"
)

type Household struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

type Room struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	Name        string `json:"name"`
	CreatedAt   int64  `json:"created_at"`
}

type Member struct {
	ID          string `json:"id"`
	HouseholdID string `json:"household_id"`
	RoomID      string `json:"room_id,omitempty"`
	Name        string `json:"name"`
	UserID      string `json:"user_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

type CreateHouseholdRequest struct {
	Name string `json:"name" validate:"required,max=100"`
	// MemberName, when set, also adds the caller as a member linked to
	// their account.
	MemberName string `json:"member_name,omitempty" validate:"max=64"`
}

type CreateHouseholdResponse struct {
	Household *Household `json:"household"`
	Member    *Member    `json:"member,omitempty"`
}

type GetHouseholdRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type GetHouseholdResponse struct {
	Household *Household `json:"household"`
	Rooms     []*Room    `json:"rooms"`
	Members   []*Member  `json:"members"`
}

type ListHouseholdsRequest struct{}

type ListHouseholdsResponse struct {
	Households []*Household `json:"households"`
}

type DeleteHouseholdRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type DeleteHouseholdResponse struct{}

type CreateRoomRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=64"`
}

type CreateRoomResponse struct {
	Room *Room `json:"room"`
}

type ListRoomsRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type ListRoomsResponse struct {
	Rooms []*Room `json:"rooms"`
}

type DeleteRoomRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	RoomID      string `json:"room_id" validate:"required"`
}

type DeleteRoomResponse struct{}

type AddMemberRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=64"`
	RoomID      string `json:"room_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

type AddMemberResponse struct {
	Member *Member `json:"member"`
}

type ListMembersRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
}

type ListMembersResponse struct {
	Members []*Member `json:"members"`
}

type UpdateMemberRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	MemberID    string `json:"member_id" validate:"required"`
	Name        string `json:"name" validate:"required,max=64"`
	RoomID      string `json:"room_id,omitempty"`
	UserID      string `json:"user_id,omitempty"`
}

type UpdateMemberResponse struct {
	Member *Member `json:"member"`
}

type RemoveMemberRequest struct {
	HouseholdID string `json:"household_id" validate:"required"`
	MemberID    string `json:"member_id" validate:"required"`
}

type RemoveMemberResponse struct{}

// HouseholdServiceHandler is implemented by service.HouseholdService.
type HouseholdServiceHandler interface {
	CreateHousehold(context.Context, *connect.Request[CreateHouseholdRequest]) (*connect.Response[CreateHouseholdResponse], error)
	GetHousehold(context.Context, *connect.Request[GetHouseholdRequest]) (*connect.Response[GetHouseholdResponse], error)
	ListHouseholds(context.Context, *connect.Request[ListHouseholdsRequest]) (*connect.Response[ListHouseholdsResponse], error)
	DeleteHousehold(context.Context, *connect.Request[DeleteHouseholdRequest]) (*connect.Response[DeleteHouseholdResponse], error)
	CreateRoom(context.Context, *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error)
	ListRooms(context.Context, *connect.Request[ListRoomsRequest]) (*connect.Response[ListRoomsResponse], error)
	DeleteRoom(context.Context, *connect.Request[DeleteRoomRequest]) (*connect.Response[DeleteRoomResponse], error)
	AddMember(context.Context, *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error)
	ListMembers(context.Context, *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error)
	UpdateMember(context.Context, *connect.Request[UpdateMemberRequest]) (*connect.Response[UpdateMemberResponse], error)
	RemoveMember(context.Context, *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error)
}

// NewHouseholdServiceHandler builds an HTTP handler for the
// HouseholdService and returns the path prefix to mount it on.
func NewHouseholdServiceHandler(svc HouseholdServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	handle(mux, HouseholdServiceCreateHouseholdProcedure, svc.CreateHousehold, opts)
	handle(mux, HouseholdServiceGetHouseholdProcedure, svc.GetHousehold, opts)
	handle(mux, HouseholdServiceListHouseholdsProcedure, svc.ListHouseholds, opts)
	handle(mux, HouseholdServiceDeleteHouseholdProcedure, svc.DeleteHousehold, opts)
	handle(mux, HouseholdServiceCreateRoomProcedure, svc.CreateRoom, opts)
	handle(mux, HouseholdServiceListRoomsProcedure, svc.ListRooms, opts)
	handle(mux, HouseholdServiceDeleteRoomProcedure, svc.DeleteRoom, opts)
	handle(mux, HouseholdServiceAddMemberProcedure, svc.AddMember, opts)
	handle(mux, HouseholdServiceListMembersProcedure, svc.ListMembers, opts)
	handle(mux, HouseholdServiceUpdateMemberProcedure, svc.UpdateMember, opts)
	handle(mux, HouseholdServiceRemoveMemberProcedure, svc.RemoveMember, opts)
	return "/" + HouseholdServiceName + "/", mux
}

// HouseholdServiceClient calls the HouseholdService.
type HouseholdServiceClient struct {
	createHousehold *connect.Client[CreateHouseholdRequest, CreateHouseholdResponse]
	getHousehold    *connect.Client[GetHouseholdRequest, GetHouseholdResponse]
	listHouseholds  *connect.Client[ListHouseholdsRequest, ListHouseholdsResponse]
	deleteHousehold *connect.Client[DeleteHouseholdRequest, DeleteHouseholdResponse]
	createRoom      *connect.Client[CreateRoomRequest, CreateRoomResponse]
	listRooms       *connect.Client[ListRoomsRequest, ListRoomsResponse]
	deleteRoom      *connect.Client[DeleteRoomRequest, DeleteRoomResponse]
	addMember       *connect.Client[AddMemberRequest, AddMemberResponse]
	listMembers     *connect.Client[ListMembersRequest, ListMembersResponse]
	updateMember    *connect.Client[UpdateMemberRequest, UpdateMemberResponse]
	removeMember    *connect.Client[RemoveMemberRequest, RemoveMemberResponse]
}

// NewHouseholdServiceClient creates a client for the HouseholdService at baseURL.
func NewHouseholdServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *HouseholdServiceClient {
	return &HouseholdServiceClient{
		createHousehold: newClient[CreateHouseholdRequest, CreateHouseholdResponse](httpClient, baseURL, HouseholdServiceCreateHouseholdProcedure, opts),
		getHousehold:    newClient[GetHouseholdRequest, GetHouseholdResponse](httpClient, baseURL, HouseholdServiceGetHouseholdProcedure, opts),
		listHouseholds:  newClient[ListHouseholdsRequest, ListHouseholdsResponse](httpClient, baseURL, HouseholdServiceListHouseholdsProcedure, opts),
		deleteHousehold: newClient[DeleteHouseholdRequest, DeleteHouseholdResponse](httpClient, baseURL, HouseholdServiceDeleteHouseholdProcedure, opts),
		createRoom:      newClient[CreateRoomRequest, CreateRoomResponse](httpClient, baseURL, HouseholdServiceCreateRoomProcedure, opts),
		listRooms:       newClient[ListRoomsRequest, ListRoomsResponse](httpClient, baseURL, HouseholdServiceListRoomsProcedure, opts),
		deleteRoom:      newClient[DeleteRoomRequest, DeleteRoomResponse](httpClient, baseURL, HouseholdServiceDeleteRoomProcedure, opts),
		addMember:       newClient[AddMemberRequest, AddMemberResponse](httpClient, baseURL, HouseholdServiceAddMemberProcedure, opts),
		listMembers:     newClient[ListMembersRequest, ListMembersResponse](httpClient, baseURL, HouseholdServiceListMembersProcedure, opts),
		updateMember:    newClient[UpdateMemberRequest, UpdateMemberResponse](httpClient, baseURL, HouseholdServiceUpdateMemberProcedure, opts),
		removeMember:    newClient[RemoveMemberRequest, RemoveMemberResponse](httpClient, baseURL, HouseholdServiceRemoveMemberProcedure, opts),
	}
}

func (c *HouseholdServiceClient) CreateHousehold(ctx context.Context, req *connect.Request[CreateHouseholdRequest]) (*connect.Response[CreateHouseholdResponse], error) {
	return c.createHousehold.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) GetHousehold(ctx context.Context, req *connect.Request[GetHouseholdRequest]) (*connect.Response[GetHouseholdResponse], error) {
	return c.getHousehold.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) ListHouseholds(ctx context.Context, req *connect.Request[ListHouseholdsRequest]) (*connect.Response[ListHouseholdsResponse], error) {
	return c.listHouseholds.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) DeleteHousehold(ctx context.Context, req *connect.Request[DeleteHouseholdRequest]) (*connect.Response[DeleteHouseholdResponse], error) {
	return c.deleteHousehold.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) CreateRoom(ctx context.Context, req *connect.Request[CreateRoomRequest]) (*connect.Response[CreateRoomResponse], error) {
	return c.createRoom.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) ListRooms(ctx context.Context, req *connect.Request[ListRoomsRequest]) (*connect.Response[ListRoomsResponse], error) {
	return c.listRooms.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) DeleteRoom(ctx context.Context, req *connect.Request[DeleteRoomRequest]) (*connect.Response[DeleteRoomResponse], error) {
	return c.deleteRoom.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[AddMemberResponse], error) {
	return c.addMember.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) ListMembers(ctx context.Context, req *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error) {
	return c.listMembers.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) UpdateMember(ctx context.Context, req *connect.Request[UpdateMemberRequest]) (*connect.Response[UpdateMemberResponse], error) {
	return c.updateMember.CallUnary(ctx, req)
}

func (c *HouseholdServiceClient) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[RemoveMemberResponse], error) {
	return c.removeMember.CallUnary(ctx, req)
}

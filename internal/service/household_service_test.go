package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/roomsplit/internal/api"
	"github.com/mmynk/roomsplit/internal/events"
)

func TestHouseholdService_GetHousehold(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()

	resp, err := env.households.GetHousehold(ctx, as(f.owner.ID, &api.GetHouseholdRequest{HouseholdID: f.household.ID}))
	require.NoError(t, err)

	assert.Equal(t, "Flat 4B", resp.Msg.Household.Name)
	assert.Equal(t, f.owner.ID, resp.Msg.Household.CreatedBy)
	require.Len(t, resp.Msg.Rooms, 2)
	assert.Equal(t, "Room A", resp.Msg.Rooms[0].Name)
	require.Len(t, resp.Msg.Members, 3)
	assert.Equal(t, f.roomA.ID, resp.Msg.Members[0].RoomID)
	assert.Equal(t, f.owner.ID, resp.Msg.Members[0].UserID)
}

func TestHouseholdService_Access(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()
	outsider := env.createUser(t, "Mallory")

	t.Run("outsider is denied", func(t *testing.T) {
		_, err := env.households.GetHousehold(ctx, as(outsider.ID, &api.GetHouseholdRequest{HouseholdID: f.household.ID}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		list, err := env.households.ListHouseholds(ctx, as(outsider.ID, &api.ListHouseholdsRequest{}))
		require.NoError(t, err)
		assert.Empty(t, list.Msg.Households)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := env.households.ListHouseholds(ctx, connect.NewRequest(&api.ListHouseholdsRequest{}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("unknown household", func(t *testing.T) {
		_, err := env.households.GetHousehold(ctx, as(f.owner.ID, &api.GetHouseholdRequest{HouseholdID: "missing"}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("linked member gains access", func(t *testing.T) {
		_, err := env.households.UpdateMember(ctx, as(f.owner.ID, &api.UpdateMemberRequest{
			HouseholdID: f.household.ID, MemberID: f.carol.ID, Name: "Carol", RoomID: f.roomB.ID, UserID: outsider.ID,
		}))
		require.NoError(t, err)

		_, err = env.households.GetHousehold(ctx, as(outsider.ID, &api.GetHouseholdRequest{HouseholdID: f.household.ID}))
		require.NoError(t, err)

		list, err := env.households.ListHouseholds(ctx, as(outsider.ID, &api.ListHouseholdsRequest{}))
		require.NoError(t, err)
		require.Len(t, list.Msg.Households, 1)
		assert.Equal(t, f.household.ID, list.Msg.Households[0].ID)
	})

	t.Run("only creator deletes", func(t *testing.T) {
		_, err := env.households.DeleteHousehold(ctx, as(outsider.ID, &api.DeleteHouseholdRequest{HouseholdID: f.household.ID}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})
}

func TestHouseholdService_Members(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()
	hid := f.household.ID

	t.Run("room from another household", func(t *testing.T) {
		other, err := env.households.CreateHousehold(ctx, as(f.owner.ID, &api.CreateHouseholdRequest{Name: "Other"}))
		require.NoError(t, err)
		room, err := env.households.CreateRoom(ctx, as(f.owner.ID, &api.CreateRoomRequest{HouseholdID: other.Msg.Household.ID, Name: "X"}))
		require.NoError(t, err)

		_, err = env.households.AddMember(ctx, as(f.owner.ID, &api.AddMemberRequest{HouseholdID: hid, Name: "Dave", RoomID: room.Msg.Room.ID}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.households.AddMember(ctx, as(f.owner.ID, &api.AddMemberRequest{HouseholdID: hid, Name: "Dave", UserID: "nobody"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("user linked twice", func(t *testing.T) {
		_, err := env.households.AddMember(ctx, as(f.owner.ID, &api.AddMemberRequest{HouseholdID: hid, Name: "Alice again", UserID: f.owner.ID}))
		assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := env.households.AddMember(ctx, as(f.owner.ID, &api.AddMemberRequest{HouseholdID: hid}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("delete room unassigns members", func(t *testing.T) {
		_, err := env.households.DeleteRoom(ctx, as(f.owner.ID, &api.DeleteRoomRequest{HouseholdID: hid, RoomID: f.roomB.ID}))
		require.NoError(t, err)

		members, err := env.households.ListMembers(ctx, as(f.owner.ID, &api.ListMembersRequest{HouseholdID: hid}))
		require.NoError(t, err)
		for _, m := range members.Msg.Members {
			if m.ID == f.carol.ID {
				assert.Empty(t, m.RoomID)
			}
		}

		rooms, err := env.households.ListRooms(ctx, as(f.owner.ID, &api.ListRoomsRequest{HouseholdID: hid}))
		require.NoError(t, err)
		assert.Len(t, rooms.Msg.Rooms, 1)
	})

	t.Run("remove payer is refused", func(t *testing.T) {
		_, err := env.expenses.CreateExpense(ctx, as(f.owner.ID, &api.CreateExpenseRequest{
			HouseholdID: hid, Description: "Milk", Amount: 3, PayerID: f.bob.ID,
		}))
		require.NoError(t, err)

		_, err = env.households.RemoveMember(ctx, as(f.owner.ID, &api.RemoveMemberRequest{HouseholdID: hid, MemberID: f.bob.ID}))
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("remove member", func(t *testing.T) {
		_, err := env.households.RemoveMember(ctx, as(f.owner.ID, &api.RemoveMemberRequest{HouseholdID: hid, MemberID: f.carol.ID}))
		require.NoError(t, err)

		_, err = env.households.RemoveMember(ctx, as(f.owner.ID, &api.RemoveMemberRequest{HouseholdID: hid, MemberID: f.carol.ID}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	assert.Contains(t, env.publisher.types(), events.MemberAdded)
	assert.Contains(t, env.publisher.types(), events.MemberRemoved)
}

func TestHouseholdService_DeleteHousehold(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()

	_, err := env.expenses.CreateExpense(ctx, as(f.owner.ID, &api.CreateExpenseRequest{
		HouseholdID: f.household.ID, Description: "Rent", Amount: 900, PayerID: f.alice.ID,
	}))
	require.NoError(t, err)

	_, err = env.households.DeleteHousehold(ctx, as(f.owner.ID, &api.DeleteHouseholdRequest{HouseholdID: f.household.ID}))
	require.NoError(t, err)

	_, err = env.households.GetHousehold(ctx, as(f.owner.ID, &api.GetHouseholdRequest{HouseholdID: f.household.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestHouseholdService_RemoveParticipant(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()
	hid := f.household.ID

	created, err := env.expenses.CreateExpense(ctx, as(f.owner.ID, &api.CreateExpenseRequest{
		HouseholdID: hid, Description: "Carol's parcel", Amount: 100, PayerID: f.alice.ID,
		Shares: []*api.Share{{MemberID: f.carol.ID}},
	}))
	require.NoError(t, err)

	balances := func() map[string]int64 {
		resp, err := env.expenses.GetBalances(ctx, as(f.owner.ID, &api.GetBalancesRequest{HouseholdID: hid}))
		require.NoError(t, err)
		out := make(map[string]int64)
		for _, b := range resp.Msg.Balances {
			out[b.MemberID] = b.Balance
		}
		return out
	}

	_, err = env.households.RemoveMember(ctx, as(f.owner.ID, &api.RemoveMemberRequest{HouseholdID: hid, MemberID: f.carol.ID}))
	assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))

	// Bob never took part, so he must not inherit Carol's share.
	got := balances()
	assert.Equal(t, int64(100), got[f.alice.ID])
	assert.Equal(t, int64(0), got[f.bob.ID])
	assert.Equal(t, int64(-100), got[f.carol.ID])

	_, err = env.expenses.UpdateExpense(ctx, as(f.owner.ID, &api.UpdateExpenseRequest{
		ExpenseID: created.Msg.Expense.ID, Description: "Parcel", Amount: 100, PayerID: f.alice.ID,
		Shares: []*api.Share{{MemberID: f.alice.ID}},
	}))
	require.NoError(t, err)

	_, err = env.households.RemoveMember(ctx, as(f.owner.ID, &api.RemoveMemberRequest{HouseholdID: hid, MemberID: f.carol.ID}))
	require.NoError(t, err)

	got = balances()
	assert.Equal(t, int64(0), got[f.alice.ID])
	assert.Equal(t, int64(0), got[f.bob.ID])
	assert.NotContains(t, got, f.carol.ID)
}

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

func balancesByName(t *testing.T, resp *connect.Response[api.GetBalancesResponse]) map[string]int64 {
	t.Helper()
	out := make(map[string]int64, len(resp.Msg.Balances))
	for _, b := range resp.Msg.Balances {
		out[b.MemberName] = b.Balance
	}
	return out
}

func TestExpenseService_Settlement(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()
	hid := f.household.ID
	user := f.owner.ID

	// No shares: split across the payer's room (Alice and Bob).
	groceries, err := env.expenses.CreateExpense(ctx, as(user, &api.CreateExpenseRequest{
		HouseholdID: hid, Description: "Groceries", Amount: 90, PayerID: f.alice.ID,
	}))
	require.NoError(t, err)
	assert.Len(t, groceries.Msg.Expense.Shares, 0)
	assert.Equal(t, "Alice", groceries.Msg.Expense.CreatedByName)

	internet, err := env.expenses.CreateExpense(ctx, as(user, &api.CreateExpenseRequest{
		HouseholdID: hid, Description: "Internet", Amount: 30, PayerID: f.carol.ID,
		Shares: []*api.Share{{MemberID: f.alice.ID}, {MemberID: f.bob.ID}, {MemberID: f.carol.ID}},
	}))
	require.NoError(t, err)

	balances, err := env.expenses.GetBalances(ctx, as(user, &api.GetBalancesRequest{HouseholdID: hid}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Alice": 35, "Bob": -55, "Carol": 20}, balancesByName(t, balances))

	settlement, err := env.expenses.GetSettlement(ctx, as(user, &api.GetSettlementRequest{HouseholdID: hid, IncludeBreakdown: true}))
	require.NoError(t, err)
	transfers := settlement.Msg.Transfers
	require.Len(t, transfers, 2)

	assert.Equal(t, "Bob", transfers[0].FromName)
	assert.Equal(t, "Alice", transfers[0].ToName)
	assert.Equal(t, int64(35), transfers[0].Amount)
	assert.Equal(t, f.bob.ID+":"+f.alice.ID, transfers[0].Key)
	require.Len(t, transfers[0].Breakdown, 1)
	assert.Equal(t, groceries.Msg.Expense.ID, transfers[0].Breakdown[0].ExpenseID)
	assert.Equal(t, int64(45), transfers[0].Breakdown[0].Amount)

	assert.Equal(t, "Carol", transfers[1].ToName)
	assert.Equal(t, int64(20), transfers[1].Amount)
	require.Len(t, transfers[1].Breakdown, 1)
	assert.Equal(t, internet.Msg.Expense.ID, transfers[1].Breakdown[0].ExpenseID)
	assert.Equal(t, int64(10), transfers[1].Breakdown[0].Amount)

	t.Run("without breakdown", func(t *testing.T) {
		resp, err := env.expenses.GetSettlement(ctx, as(user, &api.GetSettlementRequest{HouseholdID: hid}))
		require.NoError(t, err)
		for _, tr := range resp.Msg.Transfers {
			assert.Empty(t, tr.Breakdown)
		}
	})

	t.Run("paid flags overlay", func(t *testing.T) {
		_, err := env.expenses.SetPaymentStatus(ctx, as(user, &api.SetPaymentStatusRequest{
			HouseholdID: hid, FromID: f.bob.ID, ToID: f.alice.ID, Paid: true,
		}))
		require.NoError(t, err)
		_, err = env.expenses.SetPaymentStatus(ctx, as(user, &api.SetPaymentStatusRequest{
			HouseholdID: hid, FromID: f.bob.ID, ToID: f.carol.ID, ExpenseID: internet.Msg.Expense.ID, Paid: true,
		}))
		require.NoError(t, err)

		resp, err := env.expenses.GetSettlement(ctx, as(user, &api.GetSettlementRequest{HouseholdID: hid, IncludeBreakdown: true}))
		require.NoError(t, err)
		assert.True(t, resp.Msg.Transfers[0].Paid)
		assert.False(t, resp.Msg.Transfers[1].Paid)
		assert.True(t, resp.Msg.Transfers[1].Breakdown[0].Paid)

		// Paid flags do not change balances.
		again, err := env.expenses.GetBalances(ctx, as(user, &api.GetBalancesRequest{HouseholdID: hid}))
		require.NoError(t, err)
		assert.Equal(t, balancesByName(t, balances), balancesByName(t, again))

		statuses, err := env.expenses.ListPaymentStatuses(ctx, as(user, &api.ListPaymentStatusesRequest{HouseholdID: hid}))
		require.NoError(t, err)
		assert.Len(t, statuses.Msg.Statuses, 2)
	})

	t.Run("unpay", func(t *testing.T) {
		_, err := env.expenses.SetPaymentStatus(ctx, as(user, &api.SetPaymentStatusRequest{
			HouseholdID: hid, FromID: f.bob.ID, ToID: f.alice.ID, Paid: false,
		}))
		require.NoError(t, err)

		resp, err := env.expenses.GetSettlement(ctx, as(user, &api.GetSettlementRequest{HouseholdID: hid}))
		require.NoError(t, err)
		assert.False(t, resp.Msg.Transfers[0].Paid)
	})

	t.Run("delete expense rebalances", func(t *testing.T) {
		_, err := env.expenses.DeleteExpense(ctx, as(user, &api.DeleteExpenseRequest{ExpenseID: internet.Msg.Expense.ID}))
		require.NoError(t, err)

		resp, err := env.expenses.GetBalances(ctx, as(user, &api.GetBalancesRequest{HouseholdID: hid}))
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"Alice": 45, "Bob": -45, "Carol": 0}, balancesByName(t, resp))
	})

	assert.Equal(t, []events.Type{
		events.MemberAdded,
		events.MemberAdded,
		events.ExpenseCreated,
		events.ExpenseCreated,
		events.PaymentStatusChanged,
		events.PaymentStatusChanged,
		events.PaymentStatusChanged,
		events.ExpenseDeleted,
	}, env.publisher.types())
}

func TestExpenseService_CreateValidation(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()
	hid := f.household.ID
	user := f.owner.ID

	t.Run("rounds half up", func(t *testing.T) {
		resp, err := env.expenses.CreateExpense(ctx, as(user, &api.CreateExpenseRequest{
			HouseholdID: hid, Description: "Soap", Amount: 12.5, PayerID: f.bob.ID,
			Shares: []*api.Share{{MemberID: f.bob.ID, Weight: 2}, {MemberID: f.carol.ID}},
		}))
		require.NoError(t, err)
		assert.Equal(t, int64(13), resp.Msg.Expense.Amount)
		require.Len(t, resp.Msg.Expense.Shares, 2)

		weights := map[string]int{}
		for _, s := range resp.Msg.Expense.Shares {
			weights[s.MemberID] = s.Weight
		}
		assert.Equal(t, map[string]int{f.bob.ID: 2, f.carol.ID: 1}, weights)
	})

	cases := []struct {
		name string
		req  *api.CreateExpenseRequest
		code connect.Code
	}{
		{
			name: "zero amount",
			req:  &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 0, PayerID: f.alice.ID},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "rounds to zero",
			req:  &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 0.4, PayerID: f.alice.ID},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "amount too large",
			req:  &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 2e19, PayerID: f.alice.ID},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "missing description",
			req:  &api.CreateExpenseRequest{HouseholdID: hid, Amount: 10, PayerID: f.alice.ID},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "payer outside household",
			req:  &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 10, PayerID: "stranger"},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "participant outside household",
			req: &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 10, PayerID: f.alice.ID,
				Shares: []*api.Share{{MemberID: "stranger"}}},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "duplicate participant",
			req: &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 10, PayerID: f.alice.ID,
				Shares: []*api.Share{{MemberID: f.bob.ID}, {MemberID: f.bob.ID}}},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "negative weight",
			req: &api.CreateExpenseRequest{HouseholdID: hid, Description: "x", Amount: 10, PayerID: f.alice.ID,
				Shares: []*api.Share{{MemberID: f.bob.ID, Weight: -1}}},
			code: connect.CodeInvalidArgument,
		},
		{
			name: "unknown household",
			req:  &api.CreateExpenseRequest{HouseholdID: "missing", Description: "x", Amount: 10, PayerID: f.alice.ID},
			code: connect.CodeNotFound,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.expenses.CreateExpense(ctx, as(user, tc.req))
			require.Error(t, err)
			assert.Equal(t, tc.code, connect.CodeOf(err))
		})
	}

	t.Run("outsider", func(t *testing.T) {
		outsider := env.createUser(t, "Mallory")
		_, err := env.expenses.CreateExpense(ctx, as(outsider.ID, &api.CreateExpenseRequest{
			HouseholdID: hid, Description: "x", Amount: 10, PayerID: f.alice.ID,
		}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})
}

func TestExpenseService_UpdateAndList(t *testing.T) {
	env := setupTestServer(t)
	f := env.seedFlat(t)
	ctx := context.Background()
	hid := f.household.ID
	user := f.owner.ID

	created, err := env.expenses.CreateExpense(ctx, as(user, &api.CreateExpenseRequest{
		HouseholdID: hid, Description: "Rent", Amount: 900, PayerID: f.alice.ID, Date: 1700000000,
	}))
	require.NoError(t, err)
	id := created.Msg.Expense.ID
	assert.Equal(t, int64(1700000000), created.Msg.Expense.CreatedAt)

	updated, err := env.expenses.UpdateExpense(ctx, as(user, &api.UpdateExpenseRequest{
		ExpenseID: id, Description: "Rent (March)", Amount: 600, PayerID: f.carol.ID,
		Shares: []*api.Share{{MemberID: f.alice.ID}, {MemberID: f.carol.ID}},
	}))
	require.NoError(t, err)
	assert.Equal(t, int64(600), updated.Msg.Expense.Amount)
	assert.Equal(t, int64(1700000000), updated.Msg.Expense.CreatedAt, "zero date keeps the stored date")

	got, err := env.expenses.GetExpense(ctx, as(user, &api.GetExpenseRequest{ExpenseID: id}))
	require.NoError(t, err)
	assert.Equal(t, "Rent (March)", got.Msg.Expense.Description)
	assert.Equal(t, f.carol.ID, got.Msg.Expense.PayerID)
	assert.Len(t, got.Msg.Expense.Shares, 2)

	balances, err := env.expenses.GetBalances(ctx, as(user, &api.GetBalancesRequest{HouseholdID: hid}))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Alice": -300, "Bob": 0, "Carol": 300}, balancesByName(t, balances))

	list, err := env.expenses.ListExpenses(ctx, as(user, &api.ListExpensesRequest{HouseholdID: hid}))
	require.NoError(t, err)
	require.Len(t, list.Msg.Expenses, 1)
	assert.Equal(t, "Alice", list.Msg.Expenses[0].CreatedByName)

	t.Run("missing expense", func(t *testing.T) {
		_, err := env.expenses.GetExpense(ctx, as(user, &api.GetExpenseRequest{ExpenseID: "missing"}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})

	t.Run("outsider cannot read", func(t *testing.T) {
		outsider := env.createUser(t, "Mallory")
		_, err := env.expenses.GetExpense(ctx, as(outsider.ID, &api.GetExpenseRequest{ExpenseID: id}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("payment status for foreign member", func(t *testing.T) {
		_, err := env.expenses.SetPaymentStatus(ctx, as(user, &api.SetPaymentStatusRequest{
			HouseholdID: hid, FromID: f.alice.ID, ToID: "stranger", Paid: true,
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("payment status to self", func(t *testing.T) {
		_, err := env.expenses.SetPaymentStatus(ctx, as(user, &api.SetPaymentStatusRequest{
			HouseholdID: hid, FromID: f.alice.ID, ToID: f.alice.ID, Paid: true,
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}
